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

package nci

import (
	"fmt"
	"log/slog"
	"time"
)

// Default timeouts
const (
	DefaultTimeout           = 1 * time.Second
	DefaultPollTimeout       = 100 * time.Millisecond
	DefaultReadyPollInterval = 1 * time.Millisecond
	DefaultPresenceInterval  = 100 * time.Millisecond
)

// Parameter is one CORE_SET_CONFIG TLV. IDs above 0xFF are NXP extended
// parameters and are encoded on two bytes.
type Parameter struct {
	Value []byte
	ID    uint16
}

// ParameterSet is applied with a single CORE_SET_CONFIG command
type ParameterSet []Parameter

// Config contains configuration options for a Session
type Config struct {
	Logger       *slog.Logger
	RetryConfig  *RetryConfig
	Technologies []ModeTech
	Parameters   []ParameterSet
	// Timeout is the default wait for a correlated response
	Timeout time.Duration
	// PollTimeout is used for waits inside a sequence, e.g. the
	// CORE_RESET_NTF or the RF_INTF_ACTIVATED_NTF after a select
	PollTimeout       time.Duration
	ReadyPollInterval time.Duration
	PresenceInterval  time.Duration
	// MaxPresenceChecks bounds CheckPresence; 0 polls until removal
	MaxPresenceChecks int
	ExpectedVersion   byte
	Standby           bool
	// Proprietary enables the NXP proprietary bring-up commands
	Proprietary bool
}

// DefaultConfig returns the configuration used by New
func DefaultConfig() *Config {
	return &Config{
		RetryConfig: DefaultRetryConfig(),
		Technologies: []ModeTech{
			ModeTechPassiveNFCA,
			ModeTechPassiveNFCB,
			ModeTechPassiveNFCF,
			ModeTechPassiveISO15693,
		},
		Parameters:        DefaultParameters(),
		Timeout:           DefaultTimeout,
		PollTimeout:       DefaultPollTimeout,
		ReadyPollInterval: DefaultReadyPollInterval,
		PresenceInterval:  DefaultPresenceInterval,
		ExpectedVersion:   NCIVersion20,
		Standby:           true,
		Proprietary:       true,
	}
}

// DefaultParameters returns the PN7150/PN7160 reader-mode configuration
func DefaultParameters() []ParameterSet {
	return []ParameterSet{
		// TOTAL_DURATION: 510ms discovery period
		{{ID: ParamTotalDuration, Value: []byte{0xFE, 0x01}}},
		// Low power card detector disabled
		{
			{ID: ParamTagDetector, Value: []byte{0x00}},
			{ID: ParamTagDetectorThreshold, Value: []byte{0x04}},
			{ID: ParamTagDetectorFallback, Value: []byte{0x00}},
		},
		// 27.12MHz crystal
		{{ID: ParamClockSelect, Value: []byte{0x08}}},
		// TVDD from internal LDO
		{{ID: ParamPMU, Value: []byte{0x02, 0x09, 0x00}}},
		// RF analog settings
		{
			{ID: ParamRFTransition, Value: []byte{0x06, 0x44, 0x01, 0x90, 0x03, 0x00}},
			{ID: ParamRFTransition, Value: []byte{0x06, 0x30, 0xB0, 0x01, 0x10, 0x00}},
		},
	}
}

// Option is a functional option for configuring a Session
type Option func(*Session) error

// WithTimeout sets the default correlated response timeout
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive", ErrInvalidParameter)
		}
		s.config.Timeout = timeout
		return nil
	}
}

// WithPollTimeout sets the timeout for intra-sequence waits
func WithPollTimeout(timeout time.Duration) Option {
	return func(s *Session) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: poll timeout must be positive", ErrInvalidParameter)
		}
		s.config.PollTimeout = timeout
		return nil
	}
}

// WithRetryConfig sets the transmit retry configuration
func WithRetryConfig(config *RetryConfig) Option {
	return func(s *Session) error {
		if config == nil || config.MaxRetries < 0 {
			return fmt.Errorf("%w: retry config", ErrInvalidParameter)
		}
		s.config.RetryConfig = config
		return nil
	}
}

// WithRetryDelay sets the delay before the single transmit retry
func WithRetryDelay(delay time.Duration) Option {
	return func(s *Session) error {
		if delay < 0 {
			return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidParameter)
		}
		rc := *s.config.RetryConfig
		rc.RetryDelay = delay
		s.config.RetryConfig = &rc
		return nil
	}
}

// WithReadyPollInterval sets the delay between ready-line polls
func WithReadyPollInterval(interval time.Duration) Option {
	return func(s *Session) error {
		if interval <= 0 {
			return fmt.Errorf("%w: ready poll interval must be positive", ErrInvalidParameter)
		}
		s.config.ReadyPollInterval = interval
		return nil
	}
}

// WithPresenceInterval sets the delay between presence checks
func WithPresenceInterval(interval time.Duration) Option {
	return func(s *Session) error {
		if interval < 0 {
			return fmt.Errorf("%w: presence interval must not be negative", ErrInvalidParameter)
		}
		s.config.PresenceInterval = interval
		return nil
	}
}

// WithMaxPresenceChecks bounds the number of presence polls in CheckPresence
func WithMaxPresenceChecks(n int) Option {
	return func(s *Session) error {
		if n < 0 {
			return fmt.Errorf("%w: max presence checks must not be negative", ErrInvalidParameter)
		}
		s.config.MaxPresenceChecks = n
		return nil
	}
}

// WithTechnologies sets the technologies polled by StartDiscovery
func WithTechnologies(techs ...ModeTech) Option {
	return func(s *Session) error {
		if len(techs) == 0 {
			return fmt.Errorf("%w: at least one technology required", ErrInvalidParameter)
		}
		s.config.Technologies = techs
		return nil
	}
}

// WithParameters replaces the CORE_SET_CONFIG parameter sets applied by BringUp
func WithParameters(sets ...ParameterSet) Option {
	return func(s *Session) error {
		for _, set := range sets {
			if _, err := encodeParameterSet(set); err != nil {
				return err
			}
		}
		s.config.Parameters = sets
		return nil
	}
}

// WithStandby enables or disables the controller standby power mode
func WithStandby(enabled bool) Option {
	return func(s *Session) error {
		s.config.Standby = enabled
		return nil
	}
}

// WithProprietary enables or disables the NXP proprietary bring-up steps
func WithProprietary(enabled bool) Option {
	return func(s *Session) error {
		s.config.Proprietary = enabled
		return nil
	}
}

// WithExpectedVersion sets the NCI version required in CORE_RESET_NTF
func WithExpectedVersion(version byte) Option {
	return func(s *Session) error {
		s.config.ExpectedVersion = version
		return nil
	}
}

// WithLogger sets the structured logger used by the session
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidParameter)
		}
		s.config.Logger = logger
		return nil
	}
}

// encodeParameterSet builds the CORE_SET_CONFIG payload for set
func encodeParameterSet(set ParameterSet) ([]byte, error) {
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: empty parameter set", ErrInvalidParameter)
	}
	payload := []byte{byte(len(set))}
	for _, p := range set {
		if len(p.Value) > 0xFF {
			return nil, fmt.Errorf("%w: parameter 0x%04X value too long", ErrInvalidParameter, p.ID)
		}
		if p.ID > 0xFF {
			payload = append(payload, byte(p.ID>>8), byte(p.ID))
		} else {
			payload = append(payload, byte(p.ID))
		}
		payload = append(payload, byte(len(p.Value)))
		payload = append(payload, p.Value...)
	}
	if len(payload) > 0xFF {
		return nil, fmt.Errorf("%w: parameter set exceeds one packet", ErrFrameTooLarge)
	}
	return payload, nil
}
