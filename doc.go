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

/*
Package nci provides a pure Go host stack for NFC controllers speaking the
NFC Controller Interface (NCI), such as the NXP PN7150 and PN7160.

The package implements the NCI packet codec, command/response correlation,
controller bring-up, RF discovery and activation, per-protocol presence
checks and raw tag command exchange over any half-duplex byte transport.

Features:
  - Multiple transport support: SPI, I2C, UART and the Linux pn5xx/nxpnfc
    kernel driver
  - Reader mode for NFC-A, NFC-B, NFC-F and ISO15693 targets
  - Multi-target discovery with selection of the next queued candidate
  - Blocking presence checks for T1T, T2T, T3T, ISO-DEP, T5T and MIFARE
  - Structured logging with log/slog

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-nci"
	    "github.com/ZaparooProject/go-nci/transport/i2c"
	)

	transport, err := i2c.New("/dev/i2c-1", i2c.WithIRQPin("GPIO23"))
	if err != nil {
	    log.Fatal(err)
	}

	session, err := nci.New(transport, nci.WithTimeout(2*time.Second))
	if err != nil {
	    log.Fatal(err)
	}
	defer session.Close()

	if err := session.BringUp(ctx); err != nil {
	    log.Fatal(err)
	}
	if err := session.StartDiscovery(ctx); err != nil {
	    log.Fatal(err)
	}

	target, err := session.WaitForTarget(ctx)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("Tag detected: %s\n", target)

	// READ page 4 of a Type 2 tag
	data, err := session.Transceive(ctx, []byte{0x30, 0x04})

	// Block until the tag leaves the field
	err = session.CheckPresence(ctx)

Discovery:

WaitForTarget returns the activated target. When several targets are in the
field the controller reports them as a run of discovery notifications; the
first one is selected, Target().MoreTags is set and ActivateNext selects the
queued candidate.

Error Handling:

Errors wrap a small set of sentinels that can be inspected:

	if nci.IsTimeout(err) {
	    // the controller did not answer in time
	}
	var se *nci.StatusError
	if errors.As(err, &se) {
	    // the controller answered with se.Status
	}

Thread Safety:

Session operations are not thread-safe. NCI is half-duplex, so only one
exchange may be in flight; serialize access in your application.
*/
package nci
