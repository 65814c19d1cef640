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

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error categories for the handshake stages
var (
	// Stage errors - terminal for the current session, never retried
	ErrConnectFailed        = errors.New("peripheral connection failed")
	ErrDetectionFailed      = errors.New("reader detection failed")
	ErrAttachFailed         = errors.New("reader attach failed")
	ErrAuthenticationFailed = errors.New("reader authentication failed")
	ErrATRFailed            = errors.New("card ATR failed")
	ErrResponseFailed       = errors.New("response APDU failed")
	ErrStageTimeout         = errors.New("handshake stage timed out")
	ErrDisconnected         = errors.New("peripheral disconnected")
	ErrAdapterPoweredOff    = errors.New("bluetooth adapter powered off")

	// Advisory errors - reported but never change the session
	ErrBatteryStatus = errors.New("battery status failed")
	ErrEscapeCommand = errors.New("escape command failed")

	// Sequencing errors - the event or request does not fit the current state
	ErrUnexpectedEvent   = errors.New("unexpected event for current state")
	ErrStalePeripheral   = errors.New("event for a peripheral that is not in session")
	ErrSessionFaulted    = errors.New("session is faulted")
	ErrReaderNotAttached = errors.New("reader not attached")
	ErrUnknownPeripheral = errors.New("peripheral was not discovered")
	ErrHandshakeBusy     = errors.New("handshake in progress")

	// Data errors
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidHex       = errors.New("invalid hex string")
	ErrNotImplemented   = errors.New("not implemented")
)

// Stage identifies the handshake step an error belongs to
type Stage int

const (
	StageConnect Stage = iota
	StageDetection
	StageAttach
	StageAuthentication
	StageATR
	StageResponse
	StageBattery
	StageEscape
	StageTimeout
	StageDisconnect
	StageAdapter
)

var stageNames = map[Stage]string{
	StageConnect:        "connect",
	StageDetection:      "detection",
	StageAttach:         "attach",
	StageAuthentication: "authentication",
	StageATR:            "atr",
	StageResponse:       "response",
	StageBattery:        "battery",
	StageEscape:         "escape",
	StageTimeout:        "timeout",
	StageDisconnect:     "disconnect",
	StageAdapter:        "adapter",
}

// String returns the stage name
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ParseStage returns the stage with the given name
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown stage %q", ErrInvalidParameter, name)
}

// sentinel returns the category error for a stage
func (s Stage) sentinel() error {
	switch s {
	case StageConnect:
		return ErrConnectFailed
	case StageDetection:
		return ErrDetectionFailed
	case StageAttach:
		return ErrAttachFailed
	case StageAuthentication:
		return ErrAuthenticationFailed
	case StageATR:
		return ErrATRFailed
	case StageResponse:
		return ErrResponseFailed
	case StageBattery:
		return ErrBatteryStatus
	case StageEscape:
		return ErrEscapeCommand
	case StageTimeout:
		return ErrStageTimeout
	case StageDisconnect:
		return ErrDisconnected
	case StageAdapter:
		return ErrAdapterPoweredOff
	}
	return nil
}

// StageError wraps an externally reported failure with the stage it
// happened in. errors.Is matches both the stage category (ErrAttachFailed,
// ...) and the underlying cause.
type StageError struct {
	Err          error  // Cause reported by the BLE stack or reader SDK
	PeripheralID string // Session peripheral, empty if none
	Stage        Stage
}

// NewStageError creates a stage error for the given peripheral
func NewStageError(stage Stage, peripheralID string, err error) *StageError {
	return &StageError{Stage: stage, PeripheralID: peripheralID, Err: err}
}

func (e *StageError) Error() string {
	msg := e.Stage.sentinel().Error()
	if e.PeripheralID != "" {
		msg += " (" + e.PeripheralID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the stage category and the cause
func (e *StageError) Unwrap() []error {
	errs := []error{e.Stage.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// EventError reports an event or request rejected by the state machine
type EventError struct {
	Err   error  // ErrUnexpectedEvent, ErrStalePeripheral or ErrSessionFaulted
	Event string // Event name
	State string // State at the time of rejection
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s in state %s: %v", e.Event, e.State, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage carried by err, if any
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return 0, false
}

// IsFatal returns true if the error ends the current session.
// Battery and escape failures are advisory and do not.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var se *StageError
	if errors.As(err, &se) {
		return se.Stage != StageBattery && se.Stage != StageEscape
	}

	switch {
	case errors.Is(err, ErrConnectFailed),
		errors.Is(err, ErrDetectionFailed),
		errors.Is(err, ErrAttachFailed),
		errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrATRFailed),
		errors.Is(err, ErrResponseFailed),
		errors.Is(err, ErrStageTimeout),
		errors.Is(err, ErrDisconnected),
		errors.Is(err, ErrAdapterPoweredOff):
		return true
	default:
		return false
	}
}

// IsRejected reports whether err is a sequencing rejection rather than a
// stage failure.
func IsRejected(err error) bool {
	var ee *EventError
	return errors.As(err, &ee)
}

// =============================================================================
// Wire Trace Logging
// =============================================================================
// TraceableError embeds the APDU exchange of a session in errors, so
// applications can see what was on the wire when a stage failed.

// TraceDirection indicates the direction of wire data
type TraceDirection string

const (
	// TraceTX indicates data sent to the reader
	TraceTX TraceDirection = "TX"
	// TraceRX indicates data received from the reader
	TraceRX TraceDirection = "RX"
)

// TraceEntry represents a single wire-level operation
type TraceEntry struct {
	Timestamp time.Time
	Direction TraceDirection
	Note      string
	Data      []byte
}

// String formats a trace entry for display
func (e TraceEntry) String() string {
	hexData := FormatHexBytes(e.Data)
	if e.Note != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData, e.Note)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData)
}

// TraceableError wraps an error with wire-level trace data for debugging.
// Consumer applications can use errors.As() to extract trace information:
//
//	var te *acrble.TraceableError
//	if errors.As(err, &te) {
//	    log.Printf("Wire trace:\n%s", te.FormatTrace())
//	}
type TraceableError struct {
	Err          error
	PeripheralID string
	Trace        []TraceEntry
}

// Error implements the error interface
func (e *TraceableError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace returns a human-readable formatted trace log
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[%s] (no trace data)", e.PeripheralID)
	}

	var sb strings.Builder
	_, _ = sb.WriteString(fmt.Sprintf("[%s] Wire trace (%d entries):\n", e.PeripheralID, len(e.Trace)))

	for _, entry := range e.Trace {
		direction := ">"
		if entry.Direction == TraceRX {
			direction = "<"
		}
		hexData := FormatHexBytes(entry.Data)
		if entry.Note != "" {
			_, _ = sb.WriteString(fmt.Sprintf("  %s %s (%s)\n", direction, hexData, entry.Note))
		} else {
			_, _ = sb.WriteString(fmt.Sprintf("  %s %s\n", direction, hexData))
		}
	}

	return sb.String()
}

// TraceBuffer collects trace entries during a session.
// It uses a fixed-size circular buffer to limit memory usage.
type TraceBuffer struct {
	peripheralID string
	entries      []TraceEntry
	maxSize      int
}

// NewTraceBuffer creates a new trace buffer with the specified capacity
func NewTraceBuffer(maxSize int) *TraceBuffer {
	if maxSize <= 0 {
		maxSize = 16
	}
	return &TraceBuffer{
		entries: make([]TraceEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Begin clears the buffer and tags it with a new session peripheral
func (tb *TraceBuffer) Begin(peripheralID string) {
	tb.Clear()
	tb.peripheralID = peripheralID
}

// RecordTX records data sent to the reader
func (tb *TraceBuffer) RecordTX(data []byte, note string) {
	tb.record(TraceTX, data, note)
}

// RecordRX records data received from the reader
func (tb *TraceBuffer) RecordRX(data []byte, note string) {
	tb.record(TraceRX, data, note)
}

// record adds an entry to the buffer, evicting oldest if full
func (tb *TraceBuffer) record(dir TraceDirection, data []byte, note string) {
	entry := TraceEntry{
		Direction: dir,
		Data:      clone(data),
		Timestamp: time.Now(),
		Note:      note,
	}

	if len(tb.entries) >= tb.maxSize {
		copy(tb.entries, tb.entries[1:])
		tb.entries[len(tb.entries)-1] = entry
	} else {
		tb.entries = append(tb.entries, entry)
	}
}

// Entries returns a copy of the recorded entries
func (tb *TraceBuffer) Entries() []TraceEntry {
	entriesCopy := make([]TraceEntry, len(tb.entries))
	copy(entriesCopy, tb.entries)
	return entriesCopy
}

// WrapError wraps an error with the collected trace data.
// Returns nil if err is nil.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &TraceableError{
		Err:          err,
		Trace:        tb.Entries(),
		PeripheralID: tb.peripheralID,
	}
}

// Clear resets the trace buffer
func (tb *TraceBuffer) Clear() {
	tb.entries = tb.entries[:0]
	tb.peripheralID = ""
}

// GetTrace extracts trace data from an error, returning nil if not present
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
