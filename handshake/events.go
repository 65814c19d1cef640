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

import "github.com/ZaparooProject/go-acrble"

// Event is anything delivered to the handshake: callbacks from the BLE
// stack or the reader SDK, and requests made by the caller.
type Event interface {
	EventName() string
}

// EventSink accepts events from adapters running on other goroutines
type EventSink interface {
	Post(ev Event) error
}

// EventSinkFunc adapts a plain function to EventSink
type EventSinkFunc func(ev Event) error

// Post calls f(ev)
func (f EventSinkFunc) Post(ev Event) error { return f(ev) }

// BLE stack events

// AdapterStateChanged reports the Bluetooth adapter power state
type AdapterStateChanged struct {
	State     string
	PoweredOn bool
}

// PeripheralDiscovered reports one advertisement seen while scanning
type PeripheralDiscovered struct {
	Peripheral acrble.Peripheral
}

// PeripheralConnected reports the outcome of a connection request.
// A non-nil Err means the connection failed.
type PeripheralConnected struct {
	Err          error
	PeripheralID string
}

// PeripheralDisconnected reports that a peripheral connection went away
type PeripheralDisconnected struct {
	Err          error
	PeripheralID string
}

// Reader SDK events

// ReaderDetected reports the reader found behind a connected peripheral
type ReaderDetected struct {
	Reader       acrble.Reader
	Err          error
	PeripheralID string
}

// ReaderAttached reports the outcome of attaching the reader
type ReaderAttached struct {
	Err          error
	PeripheralID string
}

// ReaderAuthenticated reports the outcome of master key authentication
type ReaderAuthenticated struct {
	Err          error
	PeripheralID string
}

// BatteryStatusChanged reports a battery code from the reader
type BatteryStatusChanged struct {
	Err          error
	PeripheralID string
	Status       acrble.BatteryStatus
}

// ATRReturned carries the answer-to-reset of the card on the reader
type ATRReturned struct {
	Err          error
	PeripheralID string
	ATR          []byte
}

// ResponseReturned carries the card's response to the command APDU
type ResponseReturned struct {
	Err          error
	PeripheralID string
	APDU         []byte
}

// EscapeResponseReturned carries the reader's answer to an escape command
type EscapeResponseReturned struct {
	Err          error
	PeripheralID string
	Response     []byte
}

// Caller requests

// StartScan starts discovering readers
type StartScan struct{}

// Select starts a session with a discovered peripheral
type Select struct {
	PeripheralID string
}

// SoundBuzzer sends the buzzer escape command to the attached reader
type SoundBuzzer struct{}

// Reset releases the session and stops scanning
type Reset struct{}

// StageTimeout is posted by the stage timer when State lasted too long
type StageTimeout struct {
	State      State
	Generation uint64
}

// scanFailed undoes StartScan when the central refused to scan
type scanFailed struct{}

func (AdapterStateChanged) EventName() string    { return "AdapterStateChanged" }
func (PeripheralDiscovered) EventName() string   { return "PeripheralDiscovered" }
func (PeripheralConnected) EventName() string    { return "PeripheralConnected" }
func (PeripheralDisconnected) EventName() string { return "PeripheralDisconnected" }
func (ReaderDetected) EventName() string         { return "ReaderDetected" }
func (ReaderAttached) EventName() string         { return "ReaderAttached" }
func (ReaderAuthenticated) EventName() string    { return "ReaderAuthenticated" }
func (BatteryStatusChanged) EventName() string   { return "BatteryStatusChanged" }
func (ATRReturned) EventName() string            { return "ATRReturned" }
func (ResponseReturned) EventName() string       { return "ResponseReturned" }
func (EscapeResponseReturned) EventName() string { return "EscapeResponseReturned" }
func (StartScan) EventName() string              { return "StartScan" }
func (Select) EventName() string                 { return "Select" }
func (SoundBuzzer) EventName() string            { return "SoundBuzzer" }
func (Reset) EventName() string                  { return "Reset" }
func (StageTimeout) EventName() string           { return "StageTimeout" }
func (scanFailed) EventName() string             { return "scanFailed" }
