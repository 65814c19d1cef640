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
	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/detection"
)

// Observer receives notifications from the coordinator. Every method runs
// on the coordinator goroutine, so implementations must return quickly and
// must not call blocking Coordinator methods; post work elsewhere instead.
type Observer interface {
	// OnDiscovered is called once per newly admitted reader
	OnDiscovered(peripheralID string, label detection.Label, rssi float64)
}

// FaultObserver is implemented by observers that want stage failures.
// Use acrble.IsFatal to tell session-ending faults from advisory ones.
type FaultObserver interface {
	OnFault(err error)
}

// StateObserver is implemented by observers that track the handshake state
type StateObserver interface {
	OnStateChanged(from, to State)
}

// BatteryObserver is implemented by observers that want battery reports
type BatteryObserver interface {
	OnBatteryStatus(peripheralID string, status acrble.BatteryStatus)
}

// ResponseObserver is implemented by observers that want the final response
type ResponseObserver interface {
	OnResponse(peripheralID string, card acrble.CardType, response acrble.ResponseAPDU)
}

// ObserverFuncs adapts plain functions to all observer interfaces.
// Nil fields are skipped.
type ObserverFuncs struct {
	Discovered   func(peripheralID string, label detection.Label, rssi float64)
	Fault        func(err error)
	StateChanged func(from, to State)
	Battery      func(peripheralID string, status acrble.BatteryStatus)
	Response     func(peripheralID string, card acrble.CardType, response acrble.ResponseAPDU)
}

// OnDiscovered implements Observer
func (o ObserverFuncs) OnDiscovered(peripheralID string, label detection.Label, rssi float64) {
	if o.Discovered != nil {
		o.Discovered(peripheralID, label, rssi)
	}
}

// OnFault implements FaultObserver
func (o ObserverFuncs) OnFault(err error) {
	if o.Fault != nil {
		o.Fault(err)
	}
}

// OnStateChanged implements StateObserver
func (o ObserverFuncs) OnStateChanged(from, to State) {
	if o.StateChanged != nil {
		o.StateChanged(from, to)
	}
}

// OnBatteryStatus implements BatteryObserver
func (o ObserverFuncs) OnBatteryStatus(peripheralID string, status acrble.BatteryStatus) {
	if o.Battery != nil {
		o.Battery(peripheralID, status)
	}
}

// OnResponse implements ResponseObserver
func (o ObserverFuncs) OnResponse(peripheralID string, card acrble.CardType, response acrble.ResponseAPDU) {
	if o.Response != nil {
		o.Response(peripheralID, card, response)
	}
}

// relay fans coordinator notifications out to whichever observer
// interfaces the registered observer implements.
type relay struct {
	discovered Observer
	fault      FaultObserver
	state      StateObserver
	battery    BatteryObserver
	response   ResponseObserver
}

func newRelay(o Observer) relay {
	var r relay
	if o == nil {
		return r
	}
	r.discovered = o
	r.fault, _ = o.(FaultObserver)
	r.state, _ = o.(StateObserver)
	r.battery, _ = o.(BatteryObserver)
	r.response, _ = o.(ResponseObserver)
	return r
}

func (r relay) onDiscovered(c detection.Candidate) {
	if r.discovered != nil {
		r.discovered.OnDiscovered(c.Peripheral.ID, c.Label, c.Peripheral.RSSI)
	}
}

func (r relay) onFault(err error) {
	if r.fault != nil {
		r.fault.OnFault(err)
	}
}

func (r relay) onStateChanged(t Transition) {
	if r.state != nil {
		r.state.OnStateChanged(t.From, t.To)
	}
}

func (r relay) onBatteryStatus(peripheralID string, status acrble.BatteryStatus) {
	if r.battery != nil {
		r.battery.OnBatteryStatus(peripheralID, status)
	}
}

func (r relay) onResponse(peripheralID string, card acrble.CardType, response acrble.ResponseAPDU) {
	if r.response != nil {
		r.response.OnResponse(peripheralID, card, response)
	}
}
