// go-nci
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nci.
//
// go-nci is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nci is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nci; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command ncitag brings up an NCI controller (PN7150, PN7160) and reads or
// writes NFC tags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	nci "github.com/ZaparooProject/go-nci"
	"github.com/ZaparooProject/go-nci/detection"
	"github.com/ZaparooProject/go-nci/polling"
	"github.com/ZaparooProject/go-nci/tagops"
	"github.com/hsanjuan/go-ndef"
	"github.com/lmittmann/tint"
)

type config struct {
	devicePath *string
	irqPin     *string
	timeout    *time.Duration
	writeText  *string
	debug      *bool
	detect     *bool
	once       *bool
}

func parseFlags() *config {
	cfg := &config{
		devicePath: flag.String("device", "",
			"Device path (e.g. /dev/i2c-1, /dev/pn5xx_i2c, /dev/ttyACM0). Leave empty for auto-detection."),
		irqPin:    flag.String("irq", "", "GPIO name of the controller IRQ line (required for SPI)"),
		timeout:   flag.Duration("timeout", 30*time.Second, "Timeout for tag detection"),
		writeText: flag.String("write", "", "Text to write to the next tag (if not specified, will only read)"),
		debug:     flag.Bool("debug", false, "Enable debug output"),
		detect:    flag.Bool("detect", false, "List detected controllers and exit"),
		once:      flag.Bool("once", false, "Exit after the first tag is read"),
	}
	flag.Parse()
	return cfg
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()
	logger := newLogger(*cfg.debug)
	slog.SetDefault(logger)
	if *cfg.debug {
		nci.SetDebugEnabled(true)
		nci.SetLogger(logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *cfg.detect {
		return listDevices(ctx, os.Stdout)
	}

	transport, err := openTransport(ctx, cfg)
	if err != nil {
		return err
	}

	session, err := nci.New(transport, nci.WithLogger(logger))
	if err != nil {
		_ = transport.Close()
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = session.Close() }()

	if err := session.BringUp(ctx); err != nil {
		return fmt.Errorf("failed to bring up controller: %w", err)
	}
	printControllerInfo(os.Stdout, session.ControllerInfo())

	if *cfg.writeText != "" {
		return handleWriteMode(ctx, session, *cfg.timeout, *cfg.writeText)
	}
	return handleReadMode(ctx, session, cfg)
}

// openTransport opens the configured device, or the best detected one
func openTransport(ctx context.Context, cfg *config) (nci.Transport, error) {
	if *cfg.devicePath != "" {
		_, _ = fmt.Printf("Opening device: %s\n", *cfg.devicePath)
		return newTransport(*cfg.devicePath, *cfg.irqPin)
	}

	_, _ = fmt.Println("Auto-detecting NCI controllers...")
	opts := detection.DefaultOptions()
	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("no controller found: %w", err)
	}
	device := devices[0]
	_, _ = fmt.Printf("Using %s\n", device)
	return newTransportFromDevice(device, *cfg.irqPin)
}

func listDevices(ctx context.Context, w *os.File) error {
	opts := detection.DefaultOptions()
	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil && !errors.Is(err, detection.ErrNoDevicesFound) {
		return fmt.Errorf("detection failed: %w", err)
	}
	printDevices(w, devices)
	return nil
}

func handleReadMode(ctx context.Context, session *nci.Session, cfg *config) error {
	scanner, err := polling.NewScanner(session, polling.DefaultConfig())
	if err != nil {
		return err
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	scanner.OnTagDetected = func(ctx context.Context, target *nci.RemoteTarget) error {
		printTarget(os.Stdout, target)
		err := readTag(ctx, session, target)
		if *cfg.once {
			cancel()
		}
		return err
	}
	scanner.OnTagRemoved = func(*nci.RemoteTarget) {
		_, _ = fmt.Println("Tag removed - ready for next tag...")
	}

	_, _ = fmt.Println("Waiting for NFC tag...")
	if err := scanner.Start(readCtx); err != nil {
		return fmt.Errorf("failed to start scanner: %w", err)
	}

	<-readCtx.Done()
	if err := scanner.Stop(); err != nil {
		return fmt.Errorf("failed to stop scanner: %w", err)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scanner stopped: %w", err)
	}
	return nil
}

func readTag(ctx context.Context, session *nci.Session, target *nci.RemoteTarget) error {
	ops := tagops.New(session, target)
	if info, err := ops.GetTagInfo(ctx); err == nil {
		printTagInfo(os.Stdout, info)
	}
	if !ops.IsNDEFCapable() {
		return nil
	}
	msg, err := ops.ReadNDEF(ctx)
	printNDEF(os.Stdout, msg, err)
	return nil
}

func handleWriteMode(ctx context.Context, session *nci.Session, timeout time.Duration, text string) error {
	scanner, err := polling.NewScanner(session, polling.DefaultConfig())
	if err != nil {
		return err
	}
	if err := scanner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scanner: %w", err)
	}
	defer func() { _ = scanner.Stop() }()

	_, _ = fmt.Println("Waiting for tag to write...")
	err = scanner.WriteToNextTag(ctx, timeout, func(ctx context.Context, s *nci.Session, target *nci.RemoteTarget) error {
		ops := tagops.New(s, target)
		if err := ops.WriteNDEF(ctx, ndef.NewTextMessage(text, "en")); err != nil {
			return fmt.Errorf("failed to write text: %w", err)
		}
		printTarget(os.Stdout, target)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			_, _ = fmt.Printf("timeout: no tag detected within %s\n", timeout)
			return nil
		}
		return fmt.Errorf("write operation failed: %w", err)
	}

	_, _ = fmt.Println("Write operation completed successfully!")
	return nil
}
