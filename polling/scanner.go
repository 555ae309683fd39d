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

package polling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	nci "github.com/ZaparooProject/go-nci"
)

// Scanner runs a Monitor in the background and coordinates one-shot tag
// operations (such as writes) with the polling loop, so they execute on the
// monitor goroutine that owns the session.
type Scanner struct {
	session       *nci.Session
	config        *Config
	monitor       *Monitor
	pendingWrite  atomic.Pointer[WriteRequest]
	cancelFunc    context.CancelFunc
	done          chan struct{}
	err           error
	OnTagDetected func(ctx context.Context, target *nci.RemoteTarget) error
	OnTagRemoved  func(target *nci.RemoteTarget)
	stopMutex     sync.Mutex
	running       atomic.Bool
}

// TagOperation runs against an activated target on the monitor goroutine
type TagOperation func(ctx context.Context, session *nci.Session, target *nci.RemoteTarget) error

// WriteRequest represents a pending tag operation
type WriteRequest struct {
	operation TagOperation
	result    chan error
	ctx       context.Context
	createdAt time.Time
}

// Scanner-specific errors
var (
	ErrWriteAlreadyPending = errors.New("write operation already pending")
	ErrScannerNotRunning   = errors.New("scanner is not running")
	ErrScannerRunning      = errors.New("scanner is already running")
)

// NewScanner creates a new scanner instance with the given session and configuration
func NewScanner(session *nci.Session, config *Config) (*Scanner, error) {
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Scanner{
		session: session,
		config:  config,
	}, nil
}

// Start begins continuous scanning (non-blocking)
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrScannerRunning
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.done = make(chan struct{})
	s.err = nil
	s.monitor = NewMonitor(s.session, s.config)
	s.setupEventHandlers()
	monitor, done := s.monitor, s.done
	s.stopMutex.Unlock()

	go func() {
		defer cancel()
		err := monitor.Start(scanCtx)
		s.stopMutex.Lock()
		s.err = err
		s.cancelFunc = nil
		s.stopMutex.Unlock()
		s.running.Store(false)
		s.failPendingWrite(err)
		close(done)
	}()

	return nil
}

// Stop cancels the scanner and blocks until it has fully stopped
func (s *Scanner) Stop() error {
	s.stopMutex.Lock()
	cancelFunc, done := s.cancelFunc, s.done
	s.stopMutex.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}
	if done != nil {
		<-done
	}
	return nil
}

// Err returns why the last run ended, or nil while running
func (s *Scanner) Err() error {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	return s.err
}

// IsRunning returns whether the scanner is currently active
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// HasPendingWrite returns true if a write operation is waiting
func (s *Scanner) HasPendingWrite() bool {
	return s.pendingWrite.Load() != nil
}

// Metrics returns the metrics of the current or last run
func (s *Scanner) Metrics() Metrics {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	if s.monitor == nil {
		return Metrics{}
	}
	return s.monitor.GetMetrics()
}
