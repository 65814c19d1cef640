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

package testing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/detection"
	"github.com/ZaparooProject/go-acrble/handshake"
	"github.com/ZaparooProject/go-acrble/internal/syncutil"
)

var (
	// ErrNoCard is reported when the ATR is requested with an empty field
	ErrNoCard = errors.New("no card in field")
	// ErrInjected is the default cause for injected stage failures
	ErrInjected = errors.New("injected failure")
	// ErrNotAdvertised is returned when connecting to an unknown peripheral
	ErrNotAdvertised = errors.New("peripheral not advertised")
)

// VirtualReader simulates the BLE central, the reader manager and an
// ACR reader at once. Requests are answered through a JitteryQueue, so
// results reach the sink asynchronously and in order.
type VirtualReader struct {
	queue       *JitteryQueue
	card        *VirtualCard
	failures    map[acrble.Stage]error
	muted       map[acrble.Stage]bool
	connected   map[string]bool
	battery     *acrble.BatteryStatus
	peripherals []acrble.Peripheral
	calls       []string
	mu          syncutil.Mutex
}

// NewVirtualReader creates a simulator advertising peripherals and
// delivering callbacks to sink.
func NewVirtualReader(sink handshake.EventSink, peripherals []acrble.Peripheral, config JitterConfig) *VirtualReader {
	return &VirtualReader{
		queue:       NewJitteryQueue(sink, config),
		peripherals: slices.Clone(peripherals),
		failures:    make(map[acrble.Stage]error),
		muted:       make(map[acrble.Stage]bool),
		connected:   make(map[string]bool),
	}
}

// Close stops callback delivery
func (v *VirtualReader) Close() {
	v.queue.Close()
}

// InsertCard places card in the reader's field; nil removes it
func (v *VirtualReader) InsertCard(card *VirtualCard) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.card = card
}

// SetBattery makes the reader report status after attaching
func (v *VirtualReader) SetBattery(status acrble.BatteryStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.battery = &status
}

// Fail makes the given stage report err (ErrInjected if nil)
func (v *VirtualReader) Fail(stage acrble.Stage, err error) {
	if err == nil {
		err = ErrInjected
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failures[stage] = err
}

// Mute makes the given stage never call back
func (v *VirtualReader) Mute(stage acrble.Stage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.muted[stage] = true
}

// PowerOn reports the adapter as powered on
func (v *VirtualReader) PowerOn() {
	v.queue.Enqueue(handshake.AdapterStateChanged{State: "PoweredOn", PoweredOn: true})
}

// PowerOff reports the adapter as powered off
func (v *VirtualReader) PowerOff() {
	v.mu.Lock()
	clear(v.connected)
	v.mu.Unlock()
	v.queue.Enqueue(handshake.AdapterStateChanged{State: "PoweredOff"})
}

// Advertise reports an extra peripheral as if seen by an ongoing scan
func (v *VirtualReader) Advertise(p acrble.Peripheral) {
	v.queue.Enqueue(handshake.PeripheralDiscovered{Peripheral: p})
}

// Disconnect drops the connection to peripheralID from the reader side
func (v *VirtualReader) Disconnect(peripheralID string, cause error) {
	v.mu.Lock()
	delete(v.connected, detection.NormalizeID(peripheralID))
	v.mu.Unlock()
	v.queue.Enqueue(handshake.PeripheralDisconnected{PeripheralID: peripheralID, Err: cause})
}

// Calls returns the names of the requests made so far
func (v *VirtualReader) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.calls)
}

// CallCount returns how often method was requested
func (v *VirtualReader) CallCount(method string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	count := 0
	for _, c := range v.calls {
		if c == method {
			count++
		}
	}
	return count
}

// begin records a request and returns the injected failure for stage
func (v *VirtualReader) begin(method string, stage acrble.Stage) (failure error, muted bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, method)
	return v.failures[stage], v.muted[stage]
}

// Scan implements acrble.Central
func (v *VirtualReader) Scan() error {
	v.mu.Lock()
	v.calls = append(v.calls, "Scan")
	peripherals := slices.Clone(v.peripherals)
	v.mu.Unlock()

	for _, p := range peripherals {
		v.queue.Enqueue(handshake.PeripheralDiscovered{Peripheral: p})
	}
	return nil
}

// StopScan implements acrble.Central
func (v *VirtualReader) StopScan() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, "StopScan")
	return nil
}

// Connect implements acrble.Central
func (v *VirtualReader) Connect(peripheralID string) error {
	failure, muted := v.begin("Connect", acrble.StageConnect)

	v.mu.Lock()
	known := slices.ContainsFunc(v.peripherals, func(p acrble.Peripheral) bool {
		return detection.NormalizeID(p.ID) == detection.NormalizeID(peripheralID)
	})
	if known && failure == nil {
		v.connected[detection.NormalizeID(peripheralID)] = true
	}
	v.mu.Unlock()

	if !known {
		return fmt.Errorf("%w: %s", ErrNotAdvertised, peripheralID)
	}
	if !muted {
		v.queue.Enqueue(handshake.PeripheralConnected{PeripheralID: peripheralID, Err: failure})
	}
	return nil
}

// CancelConnection implements acrble.Central
func (v *VirtualReader) CancelConnection(peripheralID string) error {
	v.mu.Lock()
	v.calls = append(v.calls, "CancelConnection")
	id := detection.NormalizeID(peripheralID)
	wasConnected := v.connected[id]
	delete(v.connected, id)
	v.mu.Unlock()

	if wasConnected {
		v.queue.Enqueue(handshake.PeripheralDisconnected{PeripheralID: peripheralID})
	}
	return nil
}

// DetectReader implements acrble.ReaderManager
func (v *VirtualReader) DetectReader(peripheralID string) error {
	failure, muted := v.begin("DetectReader", acrble.StageDetection)
	if muted {
		return nil
	}
	ev := handshake.ReaderDetected{PeripheralID: peripheralID, Err: failure}
	if failure == nil {
		ev.Reader = &virtualReaderHandle{sim: v, peripheralID: peripheralID}
	}
	v.queue.Enqueue(ev)
	return nil
}

// virtualReaderHandle is the acrble.Reader handed out by DetectReader. It
// remembers its peripheral so callbacks carry the right ID.
type virtualReaderHandle struct {
	sim          *VirtualReader
	peripheralID string
}

// Attach implements acrble.Reader
func (h *virtualReaderHandle) Attach(peripheralID string) error {
	v := h.sim
	failure, muted := v.begin("Attach", acrble.StageAttach)
	if muted {
		return nil
	}
	v.queue.Enqueue(handshake.ReaderAttached{PeripheralID: peripheralID, Err: failure})
	if failure != nil {
		return nil
	}

	v.mu.Lock()
	battery := v.battery
	batteryErr := v.failures[acrble.StageBattery]
	v.mu.Unlock()
	switch {
	case batteryErr != nil:
		v.queue.Enqueue(handshake.BatteryStatusChanged{PeripheralID: peripheralID, Err: batteryErr})
	case battery != nil:
		v.queue.Enqueue(handshake.BatteryStatusChanged{PeripheralID: peripheralID, Status: *battery})
	}
	return nil
}

// Authenticate implements acrble.Reader
func (h *virtualReaderHandle) Authenticate(masterKey []byte) error {
	v := h.sim
	failure, muted := v.begin("Authenticate", acrble.StageAuthentication)
	if muted {
		return nil
	}
	if failure == nil && len(masterKey) != len(acrble.MasterKey()) {
		failure = fmt.Errorf("%w: master key must be %d bytes", acrble.ErrInvalidParameter, len(acrble.MasterKey()))
	}
	v.queue.Enqueue(handshake.ReaderAuthenticated{PeripheralID: h.peripheralID, Err: failure})
	return nil
}

// PowerOnCard implements acrble.Reader
func (h *virtualReaderHandle) PowerOnCard() error {
	v := h.sim
	failure, muted := v.begin("PowerOnCard", acrble.StageATR)
	if muted {
		return nil
	}

	v.mu.Lock()
	card := v.card
	v.mu.Unlock()

	ev := handshake.ATRReturned{PeripheralID: h.peripheralID, Err: failure}
	switch {
	case failure != nil:
	case card == nil:
		ev.Err = ErrNoCard
	default:
		ev.ATR = append([]byte(nil), card.ATR...)
	}
	v.queue.Enqueue(ev)
	return nil
}

// TransmitAPDU implements acrble.Reader
func (h *virtualReaderHandle) TransmitAPDU(apdu []byte) error {
	v := h.sim
	failure, muted := v.begin("TransmitAPDU", acrble.StageResponse)
	if muted {
		return nil
	}

	v.mu.Lock()
	card := v.card
	v.mu.Unlock()

	ev := handshake.ResponseReturned{PeripheralID: h.peripheralID, Err: failure}
	switch {
	case failure != nil:
	case card == nil:
		ev.Err = ErrNoCard
	default:
		ev.APDU = card.Respond(apdu)
	}
	v.queue.Enqueue(ev)
	return nil
}

// TransmitEscapeCommand implements acrble.Reader
func (h *virtualReaderHandle) TransmitEscapeCommand(command []byte) error {
	v := h.sim
	failure, muted := v.begin("TransmitEscapeCommand", acrble.StageEscape)
	if muted {
		return nil
	}
	ev := handshake.EscapeResponseReturned{PeripheralID: h.peripheralID, Err: failure}
	if failure == nil {
		ev.Response = BuildEscapeResponse(command)
	}
	v.queue.Enqueue(ev)
	return nil
}
