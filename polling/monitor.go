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
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	nci "github.com/ZaparooProject/go-nci"
)

// Metrics tracks operational counters of a Monitor
type Metrics struct {
	PollCycles      int64         // Completed discovery cycles
	PollErrors      int64         // Failed cycles
	CardsDetected   int64         // Targets handed to OnCardDetected
	CardsRemoved    int64         // Targets that left the field
	CallbackErrors  int64         // Errors returned by OnCardDetected
	LastPollLatency time.Duration // Time from discovery start to activation
}

// Monitor runs the discovery loop on a session: wait for a target, hand it
// to the callbacks, block in the presence check until it leaves, restart
// discovery. The monitor owns the session while Start runs.
type Monitor struct {
	session        *nci.Session
	config         *Config
	log            *slog.Logger
	OnCardDetected func(ctx context.Context, target *nci.RemoteTarget) error
	OnCardRemoved  func(target *nci.RemoteTarget)
	state          CardState
	pollCycles     atomic.Int64
	pollErrors     atomic.Int64
	cardsDetected  atomic.Int64
	cardsRemoved   atomic.Int64
	callbackErrors atomic.Int64
	lastLatency    atomic.Int64
	stateMu        sync.RWMutex
	running        atomic.Bool
}

// NewMonitor creates a new card monitor
func NewMonitor(session *nci.Session, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		session: session,
		config:  config,
		log:     slog.Default().With("component", "polling", "session", session.ID().String()),
	}
}

// SetLogger replaces the monitor's logger
func (m *Monitor) SetLogger(l *slog.Logger) {
	if l != nil {
		m.log = l.With("component", "polling", "session", m.session.ID().String())
	}
}

// Start runs the monitor loop until ctx is done or too many consecutive
// cycles fail. It always returns a non-nil error.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrMonitorRunning
	}
	defer m.running.Store(false)
	defer m.shutdown(ctx)

	failures := 0
	for {
		err := m.cycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			failures = 0
			continue
		}

		m.pollErrors.Add(1)
		failures++
		m.log.Warn("polling cycle failed", "error", err, "consecutive", failures)
		if m.config.MaxConsecutiveErrors > 0 && failures >= m.config.MaxConsecutiveErrors {
			return fmt.Errorf("%w: %w", ErrTooManyErrors, err)
		}
		if err := sleep(ctx, m.config.ErrorBackoff); err != nil {
			return err
		}
	}
}

// cycle performs one discovery round from idle back to idle
func (m *Monitor) cycle(ctx context.Context) error {
	if err := m.session.StopDiscovery(ctx); err != nil {
		return err
	}
	start := time.Now()
	if err := m.session.StartDiscovery(ctx); err != nil {
		return err
	}

	target, err := m.session.WaitForTarget(ctx)
	if err != nil {
		return err
	}
	m.pollCycles.Add(1)
	m.lastLatency.Store(int64(time.Since(start)))

	for {
		m.handleDetected(ctx, target)
		if !m.config.ActivateAll || m.session.NextProtocol() == nci.ProtocolUndetermined {
			break
		}
		next, err := m.session.ActivateNext(ctx)
		if err != nil {
			m.handleRemoved(target)
			return fmt.Errorf("activate next target: %w", err)
		}
		target = next
	}

	if err := m.waitRemoval(ctx); err != nil {
		if ctx.Err() == nil {
			m.handleRemoved(target)
		}
		return err
	}
	m.handleRemoved(target)
	return nil
}

// waitRemoval blocks in the presence check. Targets whose protocol has no
// presence check are treated as removed straight away.
func (m *Monitor) waitRemoval(ctx context.Context) error {
	for {
		err := m.session.CheckPresence(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, nci.ErrTargetStillPresent):
			continue
		case errors.Is(err, nci.ErrUnsupportedProtocol):
			m.log.Debug("no presence check for target", "error", err)
			return nil
		default:
			return err
		}
	}
}

func (m *Monitor) handleDetected(ctx context.Context, target *nci.RemoteTarget) {
	m.cardsDetected.Add(1)
	m.stateMu.Lock()
	m.state.TransitionToDetected(target)
	m.stateMu.Unlock()
	m.log.Debug("card detected", "target", target.String())

	if m.OnCardDetected == nil {
		return
	}

	m.stateMu.Lock()
	m.state.TransitionToReading()
	m.stateMu.Unlock()

	if err := m.OnCardDetected(ctx, target); err != nil {
		m.callbackErrors.Add(1)
		m.log.Warn("card detected callback failed", "error", err)
	}

	m.stateMu.Lock()
	m.state.DetectionState = StateTagDetected
	m.stateMu.Unlock()
}

func (m *Monitor) handleRemoved(target *nci.RemoteTarget) {
	m.stateMu.Lock()
	present := m.state.Present
	m.state.TransitionToIdle()
	m.stateMu.Unlock()
	if !present {
		return
	}

	m.cardsRemoved.Add(1)
	m.log.Debug("card removed", "target", target.String())
	if m.OnCardRemoved != nil {
		m.OnCardRemoved(target)
	}
}

// shutdown stops discovery with a context that outlives the cancelled one
func (m *Monitor) shutdown(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.StopTimeout)
	defer cancel()
	if err := m.session.StopDiscovery(stopCtx); err != nil {
		m.log.Debug("stop discovery on shutdown failed", "error", err)
	}
	m.stateMu.Lock()
	m.state.TransitionToIdle()
	m.stateMu.Unlock()
}

// GetState returns the current card state
func (m *Monitor) GetState() CardState {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// GetMetrics returns current operational metrics
func (m *Monitor) GetMetrics() Metrics {
	return Metrics{
		PollCycles:      m.pollCycles.Load(),
		PollErrors:      m.pollErrors.Load(),
		CardsDetected:   m.cardsDetected.Load(),
		CardsRemoved:    m.cardsRemoved.Load(),
		CallbackErrors:  m.callbackErrors.Load(),
		LastPollLatency: time.Duration(m.lastLatency.Load()),
	}
}

// IsRunning reports whether Start is executing
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// Session returns the underlying session
func (m *Monitor) Session() *nci.Session {
	return m.session
}

// Close closes the session and its transport
func (m *Monitor) Close() error {
	if err := m.session.Close(); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

func hexUID(target *nci.RemoteTarget) string {
	return hex.EncodeToString(target.UID())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
