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

package tagops_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	nci "github.com/ZaparooProject/go-nci"
	testutil "github.com/ZaparooProject/go-nci/internal/testing"
	"github.com/ZaparooProject/go-nci/tagops"
)

func Example_readNDEF() {
	// A simulated controller stands in for real hardware
	c := testutil.NewVirtualController()
	field := testutil.NewRFField(c)
	tag := testutil.NewVirtualNTAG213(nil)
	if err := tag.SetNDEFText("Hello from go-nci!"); err != nil {
		panic(err)
	}
	field.Place(testutil.NFCAActivation(0x01, 0x02, tag.UID, 0x00, nil), tag)

	session, err := nci.New(nci.NewVirtualTransport(c),
		nci.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		panic(err)
	}
	defer func() { _ = session.Close() }()

	ctx := context.Background()
	if err := session.StartDiscovery(ctx); err != nil {
		panic(err)
	}
	target, err := session.WaitForTarget(ctx)
	if err != nil {
		panic(err)
	}

	ops := tagops.New(session, target)
	_, _ = fmt.Printf("Detected %s tag with UID: %X\n", ops.TagType(), target.UID())

	msg, err := ops.ReadNDEF(ctx)
	if err != nil {
		panic(err)
	}
	for _, record := range msg.Records {
		_, _ = fmt.Printf("Found NDEF record: %s\n", record.Type())
	}

	// Output:
	// Detected NTAG tag with UID: 04123456789ABC
	// Found NDEF record: T
}
