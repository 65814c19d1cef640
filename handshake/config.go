// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package handshake

import (
	"fmt"
	"time"

	"github.com/ZaparooProject/go-acrble"
)

// Config holds handshake configuration options
type Config struct {
	// Classifier decides the card type and command APDU for an ATR.
	// nil uses acrble.DefaultATRTable.
	Classifier acrble.ATRClassifier

	// MasterKey authenticates the reader. nil uses acrble.MasterKey.
	MasterKey []byte

	// ConnectTimeout bounds the Connecting state. Zero disables it.
	ConnectTimeout time.Duration

	// StageTimeout bounds every other state that waits on a callback.
	// Zero disables it.
	StageTimeout time.Duration

	// EventBuffer is the capacity of the coordinator's event queue
	EventBuffer int

	// TraceSize is the number of wire entries kept per session
	TraceSize int

	// PowerOnCard requests the ATR right after authentication. Readers
	// that push the ATR on their own can turn this off.
	PowerOnCard bool

	// AutoScan starts scanning as soon as the adapter powers on while idle
	AutoScan bool
}

// DefaultConfig returns the default handshake configuration
func DefaultConfig() *Config {
	return &Config{
		Classifier:     acrble.DefaultATRTable(),
		MasterKey:      acrble.MasterKey(),
		ConnectTimeout: 10 * time.Second,
		StageTimeout:   5 * time.Second,
		EventBuffer:    32,
		TraceSize:      16,
		PowerOnCard:    true,
		AutoScan:       true,
	}
}

// Validate checks the configuration and fills in missing defaults
func (c *Config) Validate() error {
	if c.ConnectTimeout < 0 || c.StageTimeout < 0 {
		return fmt.Errorf("%w: negative timeout", acrble.ErrInvalidParameter)
	}
	if c.EventBuffer < 0 || c.TraceSize < 0 {
		return fmt.Errorf("%w: negative buffer size", acrble.ErrInvalidParameter)
	}

	defaults := DefaultConfig()
	if c.Classifier == nil {
		c.Classifier = defaults.Classifier
	}
	if len(c.MasterKey) == 0 {
		c.MasterKey = defaults.MasterKey
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = defaults.EventBuffer
	}
	if c.TraceSize == 0 {
		c.TraceSize = defaults.TraceSize
	}
	return nil
}

// timeoutFor returns how long the handshake may wait in state s
func (c *Config) timeoutFor(s State) time.Duration {
	if !s.Waiting() {
		return 0
	}
	if s == StateConnecting {
		return c.ConnectTimeout
	}
	return c.StageTimeout
}
