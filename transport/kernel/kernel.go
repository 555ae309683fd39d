//go:build linux

// Package kernel provides the transport for NCI controllers bound to a Linux
// kernel driver (pn5xx_i2c, nxpnfc) exposing a character device such as
// /dev/pn5xx_i2c or /dev/nxpnfc.
package kernel

import (
	"errors"
	"fmt"
	"io"
	"time"

	nci "github.com/ZaparooProject/go-nci"
	"golang.org/x/sys/unix"
)

const (
	// DefaultDevice is the node created by the pn5xx_i2c driver.
	DefaultDevice = "/dev/pn5xx_i2c"

	// pn5xxSetPower switches VEN through the driver: 0 off, 1 on.
	pn5xxSetPower = 0xE901

	powerCycleDelay = 10 * time.Millisecond
)

// Option configures the transport
type Option func(*Transport) error

// WithoutPowerCycle skips the VEN off/on sequence on open
func WithoutPowerCycle() Option {
	return func(t *Transport) error {
		t.powerCycle = false
		return nil
	}
}

// Transport implements the nci.Transport interface over a kernel device
type Transport struct {
	devName    string
	fd         int
	powerCycle bool
}

// New opens the character device and, unless disabled, power cycles the
// controller so it starts from a known state.
func New(devName string, opts ...Option) (*Transport, error) {
	t := &Transport{devName: devName, fd: -1, powerCycle: true}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	fd, err := unix.Open(devName, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", devName, err)
	}
	t.fd = fd

	if t.powerCycle {
		if err := t.cyclePower(); err != nil {
			_ = unix.Close(fd)
			return nil, err
		}
	}
	return t, nil
}

// newFromFD wraps an already-open descriptor
func newFromFD(fd int, devName string) *Transport {
	return &Transport{devName: devName, fd: fd}
}

func (t *Transport) cyclePower() error {
	if err := t.SetPower(false); err != nil {
		return err
	}
	time.Sleep(powerCycleDelay)
	if err := t.SetPower(true); err != nil {
		return err
	}
	time.Sleep(powerCycleDelay)
	return nil
}

// SetPower drives the controller's VEN line through the driver
func (t *Transport) SetPower(on bool) error {
	if t.fd < 0 {
		return nci.NewTransportError("SetPower", t.devName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	value := 0
	if on {
		value = 1
	}
	if err := unix.IoctlSetInt(t.fd, pn5xxSetPower, value); err != nil {
		return nci.NewTransportError("SetPower", t.devName,
			fmt.Errorf("ioctl power control: %w", err), nci.ErrorTypePermanent)
	}
	return nil
}

// Transmit writes one NCI frame
func (t *Transport) Transmit(frm []byte) error {
	if t.fd < 0 {
		return nci.NewTransportError("Transmit", t.devName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	n, err := unix.Write(t.fd, frm)
	if err == nil && n != len(frm) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return nci.NewTransportError("Transmit", t.devName,
			fmt.Errorf("%w: %w", nci.ErrTransportWrite, err), nci.ErrorTypeTransient)
	}
	return nil
}

// Ready polls the descriptor for pending data without blocking
func (t *Transport) Ready() (bool, error) {
	if t.fd < 0 {
		return false, nci.NewTransportError("Ready", t.devName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, nci.NewTransportError("Ready", t.devName,
				fmt.Errorf("%w: poll: %w", nci.ErrTransportRead, err), nci.ErrorTypeTransient)
		}
		return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
	}
}

// Receive reads exactly len(buf) bytes
func (t *Transport) Receive(buf []byte) error {
	if t.fd < 0 {
		return nci.NewTransportError("Receive", t.devName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	for off := 0; off < len(buf); {
		n, err := unix.Read(t.fd, buf[off:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err == nil && n == 0 {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			return nci.NewTransportError("Receive", t.devName,
				fmt.Errorf("%w: %w", nci.ErrTransportRead, err), nci.ErrorTypeTransient)
		}
		off += n
	}
	return nil
}

// Close powers the controller down and closes the device
func (t *Transport) Close() error {
	if t.fd < 0 {
		return nil
	}
	if t.powerCycle {
		_ = t.SetPower(false)
	}
	fd := t.fd
	t.fd = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("failed to close device %s: %w", t.devName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	return t.fd >= 0
}

// Type returns the transport type
func (*Transport) Type() nci.TransportType {
	return nci.TransportKernel
}

// Ensure Transport implements nci.Transport
var _ nci.Transport = (*Transport)(nil)
