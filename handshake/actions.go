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

// ActionKind is a request the coordinator makes of the BLE stack or reader
type ActionKind int

const (
	ActionStartScan ActionKind = iota
	ActionStopScan
	ActionConnect
	ActionCancelConnection
	ActionDetectReader
	ActionAttach
	ActionAuthenticate
	ActionPowerOnCard
	ActionTransmitAPDU
	ActionTransmitEscape
)

var actionNames = [...]string{
	"StartScan",
	"StopScan",
	"Connect",
	"CancelConnection",
	"DetectReader",
	"Attach",
	"Authenticate",
	"PowerOnCard",
	"TransmitAPDU",
	"TransmitEscape",
}

// String returns the action name
func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionNames) {
		return "Unknown"
	}
	return actionNames[k]
}

// Action is produced by the Machine and carried out by the coordinator
type Action struct {
	Reader       acrble.Reader
	PeripheralID string
	Data         []byte
	Kind         ActionKind
}

// failure converts a synchronous error from carrying out the action into
// the event the stack would have delivered had the request failed later.
func (a Action) failure(err error) Event {
	switch a.Kind {
	case ActionStartScan:
		return scanFailed{}
	case ActionConnect:
		return PeripheralConnected{PeripheralID: a.PeripheralID, Err: err}
	case ActionDetectReader:
		return ReaderDetected{PeripheralID: a.PeripheralID, Err: err}
	case ActionAttach:
		return ReaderAttached{PeripheralID: a.PeripheralID, Err: err}
	case ActionAuthenticate:
		return ReaderAuthenticated{PeripheralID: a.PeripheralID, Err: err}
	case ActionPowerOnCard:
		return ATRReturned{PeripheralID: a.PeripheralID, Err: err}
	case ActionTransmitAPDU:
		return ResponseReturned{PeripheralID: a.PeripheralID, Err: err}
	case ActionTransmitEscape:
		return EscapeResponseReturned{PeripheralID: a.PeripheralID, Err: err}
	case ActionStopScan, ActionCancelConnection:
		return nil
	}
	return nil
}
