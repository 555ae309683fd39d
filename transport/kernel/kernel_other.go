//go:build !linux

package kernel

import (
	"errors"
	"fmt"

	nci "github.com/ZaparooProject/go-nci"
)

// DefaultDevice is the node created by the pn5xx_i2c driver.
const DefaultDevice = "/dev/pn5xx_i2c"

// ErrUnsupportedPlatform is returned outside Linux
var ErrUnsupportedPlatform = errors.New("kernel NCI devices are only supported on Linux")

// Option configures the transport
type Option func(*Transport) error

// WithoutPowerCycle skips the VEN off/on sequence on open
func WithoutPowerCycle() Option {
	return func(*Transport) error { return nil }
}

// Transport is unavailable outside Linux
type Transport struct{}

// New always fails outside Linux
func New(devName string, _ ...Option) (*Transport, error) {
	return nil, fmt.Errorf("%s: %w", devName, ErrUnsupportedPlatform)
}

func (*Transport) Transmit([]byte) error   { return ErrUnsupportedPlatform }
func (*Transport) Ready() (bool, error)    { return false, ErrUnsupportedPlatform }
func (*Transport) Receive([]byte) error    { return ErrUnsupportedPlatform }
func (*Transport) Close() error            { return nil }
func (*Transport) IsConnected() bool       { return false }
func (*Transport) Type() nci.TransportType { return nci.TransportKernel }
func (*Transport) SetPower(bool) error     { return ErrUnsupportedPlatform }

var _ nci.Transport = (*Transport)(nil)
