//go:build linux

package i2c

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ZaparooProject/go-nci/detection"
	"github.com/ZaparooProject/go-nci/transport/i2c"
	"golang.org/x/sys/unix"
)

const (
	// i2cSlave is the ioctl command to set the I2C slave address
	i2cSlave = 0x0703

	// i2cFuncs is the ioctl command to get adapter functionality
	i2cFuncs = 0x0705

	// i2cFuncI2C indicates plain I2C support
	i2cFuncI2C = 0x00000001
)

// detectLinux searches for NCI controllers on Linux I2C buses
func detectLinux(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	buses, err := findI2CBuses()
	if err != nil {
		return nil, err
	}
	if len(buses) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	var devices []detection.DeviceInfo
	for _, bus := range buses {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		for _, addr := range scanBus(bus) {
			if device, ok := deviceInfo(ctx, bus, addr, opts); ok {
				devices = append(devices, device)
			}
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// deviceInfo builds the candidate for one responding address
func deviceInfo(ctx context.Context, bus string, addr uint8, opts *detection.Options) (detection.DeviceInfo, bool) {
	devicePath := fmt.Sprintf("%s:0x%02X", bus, addr)
	if detection.IsPathIgnored(devicePath, opts.IgnorePaths) || detection.IsPathIgnored(bus, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  "i2c",
		Path:       bus,
		Name:       fmt.Sprintf("I2C device at %s address 0x%02X", bus, addr),
		Confidence: detection.Medium,
		Metadata: map[string]string{
			"bus":     bus,
			"address": fmt.Sprintf("0x%02X", addr),
		},
	}

	if opts.Mode == detection.Passive {
		return device, true
	}

	tr, err := i2c.New(bus, i2c.WithAddress(uint16(addr)))
	if err != nil {
		return device, true
	}
	defer func() { _ = tr.Close() }()

	metadata, err := detection.Probe(ctx, tr, opts.ProbeTimeout)
	if err != nil {
		// A silent device on an NCI address is kept only in full mode.
		return device, opts.Mode == detection.Full
	}
	device.Confidence = detection.High
	for k, v := range metadata {
		device.Metadata[k] = v
	}
	return device, true
}

// findI2CBuses lists /dev/i2c-* adapters that support plain I2C
func findI2CBuses() ([]string, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C devices: %w", err)
	}

	buses := make([]string, 0, len(matches))
	for _, path := range matches {
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		funcs, err := unix.IoctlGetUint32(fd, i2cFuncs)
		_ = unix.Close(fd)
		if err != nil || funcs&i2cFuncI2C == 0 {
			continue
		}
		buses = append(buses, path)
	}
	return buses, nil
}

// scanBus returns the NCI addresses that acknowledge a one-byte read
func scanBus(busPath string) []uint8 {
	fd, err := unix.Open(busPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil
	}
	defer func() { _ = unix.Close(fd) }()

	var found []uint8
	buf := make([]byte, 1)
	for addr := uint8(firstNCIAddress); isNCIAddress(addr); addr++ {
		if err := unix.IoctlSetInt(fd, i2cSlave, int(addr)); err != nil {
			continue
		}
		if _, err := unix.Read(fd, buf); err == nil {
			found = append(found, addr)
		}
	}
	return found
}
