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

package tagops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hsanjuan/go-ndef"
)

// Limits applied to NDEF messages before they are written
const (
	MaxNDEFRecordCount = 16
	MaxNDEFMessageSize = 8192
)

// Validation errors
var (
	ErrSecurityViolation  = errors.New("security violation")
	ErrVerificationFailed = errors.New("verification failed")
)

// ValidationConfig holds configuration for data validation and reliability
type ValidationConfig struct {
	// RetryDelay specifies delay between retry attempts
	RetryDelay time.Duration

	// ReadRetries specifies max number of read retries on validation failure
	ReadRetries int

	// WriteRetries specifies max number of write retries on verification failure
	WriteRetries int

	// EnableReadVerification enables automatic verification of read data
	EnableReadVerification bool

	// EnableWriteVerification enables automatic write-after-verify
	EnableWriteVerification bool
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		EnableReadVerification:  true,
		ReadRetries:             3,
		EnableWriteVerification: true,
		WriteRetries:            3,
		RetryDelay:              50 * time.Millisecond,
	}
}

// ValidationMetrics tracks validation statistics
type ValidationMetrics struct {
	LastValidation     time.Time
	TotalOperations    uint64
	FailedValidations  uint64
	SecurityViolations uint64
}

// ValidationResult represents the outcome of a validation operation
type ValidationResult struct {
	Success           bool
	SecurityViolation bool
}

// ValidatedTag wraps TagOperations with read verification and
// write-then-read-back checks
type ValidatedTag struct {
	*TagOperations
	config  *ValidationConfig
	metrics ValidationMetrics
	mu      sync.RWMutex
}

// NewValidatedTag wraps ops with validation
func NewValidatedTag(ops *TagOperations, config *ValidationConfig) *ValidatedTag {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &ValidatedTag{TagOperations: ops, config: config}
}

// GetValidationMetrics returns current validation metrics (thread-safe)
func (t *ValidatedTag) GetValidationMetrics() ValidationMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics
}

func (t *ValidatedTag) record(result ValidationResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalOperations++
	t.metrics.LastValidation = time.Now()

	if !result.Success {
		t.metrics.FailedValidations++
	}
	if result.SecurityViolation {
		t.metrics.SecurityViolations++
	}
}

// ReadPagesValidated reads four pages and only returns once two
// consecutive reads agree
func (t *ValidatedTag) ReadPagesValidated(ctx context.Context, page uint8) ([]byte, error) {
	data, err := performValidatedRead(ctx, t.config, func() ([]byte, error) {
		return t.ReadPages(ctx, page)
	})
	t.record(ValidationResult{Success: err == nil})
	return data, err
}

// WritePageValidated writes one page and reads it back
func (t *ValidatedTag) WritePageValidated(ctx context.Context, page uint8, data []byte) error {
	err := performValidatedWrite(ctx, T2TPageSize, data, t.config,
		func() error { return t.WritePage(ctx, page, data) },
		func() ([]byte, error) {
			pages, err := t.ReadPages(ctx, page)
			if err != nil {
				return nil, err
			}
			return pages[:T2TPageSize], nil
		})
	t.record(ValidationResult{Success: err == nil})
	return err
}

// WriteNDEFValidated checks msg against the size limits, writes it and
// compares the encoding read back from the tag
func (t *ValidatedTag) WriteNDEFValidated(ctx context.Context, msg *ndef.Message) error {
	want, err := validateNDEFMessage(msg)
	if err != nil {
		t.record(ValidationResult{SecurityViolation: errors.Is(err, ErrSecurityViolation)})
		return err
	}

	err = t.writeNDEFVerified(ctx, msg, want)
	t.record(ValidationResult{Success: err == nil})
	return err
}

func (t *ValidatedTag) writeNDEFVerified(ctx context.Context, msg *ndef.Message, want []byte) error {
	if err := t.WriteNDEF(ctx, msg); err != nil {
		return fmt.Errorf("failed to write NDEF message to tag: %w", err)
	}
	if !t.config.EnableWriteVerification {
		return nil
	}

	got, err := t.ReadNDEF(ctx)
	if err != nil {
		return fmt.Errorf("NDEF write verification failed: %w", err)
	}
	raw, err := got.Marshal()
	if err != nil {
		return fmt.Errorf("NDEF write verification failed: %w", err)
	}
	if !bytes.Equal(raw, want) {
		return fmt.Errorf("%w: NDEF message read back differs", ErrVerificationFailed)
	}
	return nil
}

// validateNDEFMessage enforces the record and size limits and returns the
// message encoding
func validateNDEFMessage(msg *ndef.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil NDEF message", ErrSecurityViolation)
	}
	if len(msg.Records) == 0 {
		return nil, fmt.Errorf("%w: NDEF message has no records", ErrSecurityViolation)
	}
	if len(msg.Records) > MaxNDEFRecordCount {
		return nil, fmt.Errorf("%w: record count %d exceeds maximum %d",
			ErrSecurityViolation, len(msg.Records), MaxNDEFRecordCount)
	}
	raw, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("NDEF build failed: %w", err)
	}
	if len(raw) > MaxNDEFMessageSize {
		return nil, fmt.Errorf("%w: message size %d exceeds maximum %d",
			ErrSecurityViolation, len(raw), MaxNDEFMessageSize)
	}
	return raw, nil
}

// performValidatedRead is a common function for validated reads
func performValidatedRead(
	ctx context.Context, config *ValidationConfig, readFunc func() ([]byte, error),
) ([]byte, error) {
	data, err := readFunc()
	if !config.EnableReadVerification || err != nil {
		return data, err
	}

	return performReadVerification(ctx, data, config, readFunc)
}

func performReadVerification(
	ctx context.Context, initialData []byte, config *ValidationConfig, readFunc func() ([]byte, error),
) ([]byte, error) {
	var lastErr error
	lastData := initialData
	consecutiveMatches := 0
	requiredMatches := 2 // Require 2 consecutive matching reads

	for retry := 0; retry < config.ReadRetries; retry++ {
		if retry > 0 {
			if err := sleep(ctx, config.RetryDelay); err != nil {
				return nil, err
			}
		}

		verifyData, err := readFunc()
		if err != nil {
			lastErr = err
			consecutiveMatches = 0
			continue
		}

		consecutiveMatches, lastData = updateVerificationState(lastData, verifyData, consecutiveMatches)

		if consecutiveMatches >= requiredMatches {
			return verifyData, nil
		}
	}

	return handleVerificationFailure(lastErr, config.ReadRetries)
}

func updateVerificationState(lastData, verifyData []byte, consecutiveMatches int) (newMatches int, newData []byte) {
	if bytes.Equal(lastData, verifyData) {
		return consecutiveMatches + 1, lastData
	}
	return 0, verifyData
}

func handleVerificationFailure(lastErr error, readRetries int) ([]byte, error) {
	if lastErr != nil {
		return nil, fmt.Errorf("read validation failed after %d retries: %w", readRetries, lastErr)
	}
	return nil, fmt.Errorf("%w: inconsistent data after %d retries", ErrVerificationFailed, readRetries)
}

// performValidatedWrite is a common function for validated block writes
func performValidatedWrite(
	ctx context.Context,
	expectedBlockSize int,
	data []byte,
	config *ValidationConfig,
	writeFunc func() error,
	readFunc func() ([]byte, error),
) error {
	if len(data) != expectedBlockSize {
		return fmt.Errorf("invalid block size: expected %d, got %d", expectedBlockSize, len(data))
	}

	var lastErr error

	for retry := 0; retry <= config.WriteRetries; retry++ {
		if retry > 0 {
			if err := sleep(ctx, config.RetryDelay); err != nil {
				return err
			}
		}

		if err := writeFunc(); err != nil {
			lastErr = err
			continue
		}

		if !config.EnableWriteVerification {
			return nil
		}

		readData, err := readFunc()
		if err != nil {
			lastErr = err
			continue
		}

		if bytes.Equal(data, readData) {
			return nil
		}

		lastErr = fmt.Errorf("%w: data mismatch", ErrVerificationFailed)
	}

	return fmt.Errorf("write validation failed after %d retries: %w",
		config.WriteRetries, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
