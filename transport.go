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

package acrble

import "github.com/ZaparooProject/go-acrble/internal/syncutil"

// Central is the BLE central role the handshake drives. Results of
// Connect arrive later as events; a returned error means the request
// could not even be issued.
type Central interface {
	// Scan starts discovering peripherals without duplicate reports
	Scan() error

	// StopScan stops discovering peripherals
	StopScan() error

	// Connect requests a connection to a discovered peripheral
	Connect(peripheralID string) error

	// CancelConnection releases a connected or connecting peripheral
	CancelConnection(peripheralID string) error
}

// ReaderManager detects a card reader behind a connected peripheral.
// The detected Reader is delivered asynchronously.
type ReaderManager interface {
	DetectReader(peripheralID string) error
}

// Reader is a detected card reader. Every method only issues the request;
// the reader reports the outcome asynchronously.
type Reader interface {
	// Attach binds the reader to its peripheral
	Attach(peripheralID string) error

	// Authenticate performs mutual authentication with the master key
	Authenticate(masterKey []byte) error

	// PowerOnCard asks the reader for the ATR of the card in the field
	PowerOnCard() error

	// TransmitAPDU sends a command APDU to the card
	TransmitAPDU(apdu []byte) error

	// TransmitEscapeCommand sends a reader-specific escape command
	TransmitEscapeCommand(command []byte) error
}

// Call records a single request made to a mock
type Call struct {
	Method       string
	PeripheralID string
	Data         []byte
}

// callRecorder is shared by the mocks below
type callRecorder struct {
	calls    []Call
	errorMap map[string]error
	mu       syncutil.RWMutex
}

func (r *callRecorder) record(method, peripheralID string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Method: method, PeripheralID: peripheralID, Data: clone(data)})
	return r.errorMap[method]
}

// SetError configures an error to be returned for a method
func (r *callRecorder) SetError(method string, err error) {
	r.mu.Lock()
	if r.errorMap == nil {
		r.errorMap = make(map[string]error)
	}
	r.errorMap[method] = err
	r.mu.Unlock()
}

// ClearError removes error injection for a method
func (r *callRecorder) ClearError(method string) {
	r.mu.Lock()
	delete(r.errorMap, method)
	r.mu.Unlock()
}

// Calls returns a copy of every recorded call
func (r *callRecorder) Calls() []Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallCount returns how many times a method was called
func (r *callRecorder) CallCount(method string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastCall returns the most recent call of a method
func (r *callRecorder) LastCall(method string) (Call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Method == method {
			return r.calls[i], true
		}
	}
	return Call{}, false
}

// Reset clears recorded calls and injected errors
func (r *callRecorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.errorMap = nil
	r.mu.Unlock()
}

// MockCentral provides a mock implementation of Central for testing.
// It only records requests; tests deliver the resulting events themselves.
type MockCentral struct {
	callRecorder
}

// NewMockCentral creates a new mock central
func NewMockCentral() *MockCentral {
	return &MockCentral{}
}

// Scan implements Central
func (m *MockCentral) Scan() error { return m.record("Scan", "", nil) }

// StopScan implements Central
func (m *MockCentral) StopScan() error { return m.record("StopScan", "", nil) }

// Connect implements Central
func (m *MockCentral) Connect(peripheralID string) error {
	return m.record("Connect", peripheralID, nil)
}

// CancelConnection implements Central
func (m *MockCentral) CancelConnection(peripheralID string) error {
	return m.record("CancelConnection", peripheralID, nil)
}

// MockReaderManager provides a mock implementation of ReaderManager
type MockReaderManager struct {
	callRecorder
}

// NewMockReaderManager creates a new mock reader manager
func NewMockReaderManager() *MockReaderManager {
	return &MockReaderManager{}
}

// DetectReader implements ReaderManager
func (m *MockReaderManager) DetectReader(peripheralID string) error {
	return m.record("DetectReader", peripheralID, nil)
}

// MockReader provides a mock implementation of Reader
type MockReader struct {
	callRecorder
}

// NewMockReader creates a new mock reader
func NewMockReader() *MockReader {
	return &MockReader{}
}

// Attach implements Reader
func (m *MockReader) Attach(peripheralID string) error {
	return m.record("Attach", peripheralID, nil)
}

// Authenticate implements Reader
func (m *MockReader) Authenticate(key []byte) error {
	return m.record("Authenticate", "", key)
}

// PowerOnCard implements Reader
func (m *MockReader) PowerOnCard() error { return m.record("PowerOnCard", "", nil) }

// TransmitAPDU implements Reader
func (m *MockReader) TransmitAPDU(apdu []byte) error {
	return m.record("TransmitAPDU", "", apdu)
}

// TransmitEscapeCommand implements Reader
func (m *MockReader) TransmitEscapeCommand(command []byte) error {
	return m.record("TransmitEscapeCommand", "", command)
}
