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

// State is a step of the reader pairing and card detection handshake
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateConnected
	StateReaderDetected
	StateAttached
	StateAuthenticated
	StateATRReceived
	StateCommandSent
	StateResponseReceived
	StateFaulted
)

var stateNames = [...]string{
	"Idle",
	"Scanning",
	"Connecting",
	"Connected",
	"ReaderDetected",
	"Attached",
	"Authenticated",
	"ATRReceived",
	"CommandSent",
	"ResponseReceived",
	"Faulted",
}

// String returns the state name
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// IsTerminal reports whether the session has finished, successfully or not
func (s State) IsTerminal() bool {
	return s == StateResponseReceived || s == StateFaulted
}

// ReaderAttached reports whether the session's reader is attached, which
// is when battery reports and escape commands make sense.
func (s State) ReaderAttached() bool {
	return s >= StateAttached && s <= StateResponseReceived
}

// Waiting reports whether the state waits on an external callback and is
// therefore bounded by a stage timer.
func (s State) Waiting() bool {
	switch s {
	case StateConnecting, StateConnected, StateReaderDetected,
		StateAttached, StateAuthenticated, StateCommandSent:
		return true
	case StateIdle, StateScanning, StateATRReceived,
		StateResponseReceived, StateFaulted:
		return false
	}
	return false
}

// Transition is one state change
type Transition struct {
	From State
	To   State
}
