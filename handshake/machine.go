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

	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/detection"
)

// Session is the state of one selected peripheral, from selection until
// the peripheral is released.
type Session struct {
	Reader        acrble.Reader
	Err           error
	PeripheralID  string
	ATR           []byte
	Command       []byte
	EscapeCommand []byte
	Response      acrble.ResponseAPDU
	CardType      acrble.CardType
	Battery       acrble.BatteryStatus
	HasBattery    bool
}

func newSession(peripheralID string) *Session {
	return &Session{
		PeripheralID:  peripheralID,
		Command:       acrble.InitialCommandAPDU(),
		EscapeCommand: acrble.InitialEscapeCommand(),
	}
}

// clone returns a copy that shares no byte slices with s
func (s *Session) clone() Session {
	c := *s
	c.ATR = append([]byte(nil), s.ATR...)
	c.Command = append([]byte(nil), s.Command...)
	c.EscapeCommand = append([]byte(nil), s.EscapeCommand...)
	c.Response = append(acrble.ResponseAPDU(nil), s.Response...)
	return c
}

// Result is what one event did to the machine
type Result struct {
	// Fault ends the session. It is a *acrble.StageError.
	Fault error
	// Warning is an advisory stage failure; the session carries on
	Warning error
	// Battery is set when a battery status was accepted
	Battery *acrble.BatteryStatus
	// PeripheralID is the session peripheral at the time of the event
	PeripheralID string
	// Response is set when the handshake completed
	Response    acrble.ResponseAPDU
	Transitions []Transition
	Actions     []Action
	CardType    acrble.CardType
	Completed   bool
	// SessionStarted is set when a Select began a new session, even if
	// the state did not change
	SessionStarted bool
}

// Machine is the handshake state machine. It performs no I/O: every event
// yields the actions to carry out, and the caller feeds results back as
// further events. A Machine is not safe for concurrent use.
type Machine struct {
	session     *Session
	classifier  acrble.ATRClassifier
	masterKey   []byte
	state       State
	scanning    bool
	powerOnCard bool
	autoScan    bool
}

// NewMachine creates a machine in the Idle state. A nil cfg uses
// DefaultConfig.
func NewMachine(cfg *Config) *Machine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = acrble.DefaultATRTable()
	}
	key := cfg.MasterKey
	if len(key) == 0 {
		key = acrble.MasterKey()
	}
	return &Machine{
		classifier:  classifier,
		masterKey:   append([]byte(nil), key...),
		powerOnCard: cfg.PowerOnCard,
		autoScan:    cfg.AutoScan,
		state:       StateIdle,
	}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Scanning reports whether the machine has asked the central to scan
func (m *Machine) Scanning() bool {
	return m.scanning
}

// Session returns a copy of the current session
func (m *Machine) Session() (Session, bool) {
	if m.session == nil {
		return Session{}, false
	}
	return m.session.clone(), true
}

// Handle applies one event. Events that do not fit the current state are
// rejected with an *acrble.EventError and leave the machine unchanged.
//
//nolint:gocyclo // one case per event type
func (m *Machine) Handle(ev Event) (Result, error) {
	var r Result
	if m.session != nil {
		r.PeripheralID = m.session.PeripheralID
	}

	var err error
	switch e := ev.(type) {
	case StartScan:
		err = m.startScan(&r, ev)
	case scanFailed:
		m.scanFailed(&r)
	case Select:
		err = m.selectPeripheral(&r, ev, e.PeripheralID)
	case SoundBuzzer:
		err = m.soundBuzzer(&r, ev)
	case Reset:
		m.reset(&r)
	case AdapterStateChanged:
		m.adapterStateChanged(&r, e.PoweredOn)
	case PeripheralConnected:
		err = m.connected(&r, ev, e)
	case PeripheralDisconnected:
		err = m.disconnected(&r, ev, e)
	case ReaderDetected:
		err = m.readerDetected(&r, ev, e)
	case ReaderAttached:
		err = m.advance(&r, ev, e.PeripheralID, StateAttached, acrble.StageAttach, e.Err)
	case ReaderAuthenticated:
		err = m.advance(&r, ev, e.PeripheralID, StateAuthenticated, acrble.StageAuthentication, e.Err)
	case ATRReturned:
		err = m.atrReturned(&r, ev, e)
	case ResponseReturned:
		err = m.responseReturned(&r, ev, e)
	case BatteryStatusChanged:
		err = m.batteryStatusChanged(&r, ev, e)
	case EscapeResponseReturned:
		err = m.escapeResponseReturned(&r, ev, e)
	case StageTimeout:
		err = m.stageTimeout(&r, ev, e)
	default:
		err = m.reject(ev, acrble.ErrUnexpectedEvent)
	}
	if err != nil {
		return Result{}, err
	}
	return r, nil
}

func (m *Machine) reject(ev Event, sentinel error) error {
	return &acrble.EventError{Err: sentinel, Event: ev.EventName(), State: m.state.String()}
}

func (m *Machine) to(r *Result, next State) {
	if m.state == next {
		return
	}
	r.Transitions = append(r.Transitions, Transition{From: m.state, To: next})
	m.state = next
}

func (*Machine) act(r *Result, a Action) {
	r.Actions = append(r.Actions, a)
}

func (m *Machine) fault(r *Result, stage acrble.Stage, cause error) {
	err := acrble.NewStageError(stage, m.session.PeripheralID, cause)
	m.session.Err = err
	r.Fault = err
	m.to(r, StateFaulted)
}

// release cancels the session's connection and forgets the session
func (m *Machine) release(r *Result) {
	if m.session == nil {
		return
	}
	m.act(r, Action{Kind: ActionCancelConnection, PeripheralID: m.session.PeripheralID})
	m.session = nil
}

func (m *Machine) stopScanning(r *Result) {
	if m.scanning {
		m.act(r, Action{Kind: ActionStopScan})
		m.scanning = false
	}
}

// checkSession validates a peripheral-scoped event against the session
func (m *Machine) checkSession(ev Event, peripheralID string) error {
	if m.session == nil || detection.NormalizeID(peripheralID) != detection.NormalizeID(m.session.PeripheralID) {
		return m.reject(ev, acrble.ErrStalePeripheral)
	}
	if m.state == StateFaulted {
		return m.reject(ev, acrble.ErrSessionFaulted)
	}
	return nil
}

// expect validates a stage event that is only valid in state want
func (m *Machine) expect(ev Event, peripheralID string, want State) error {
	if err := m.checkSession(ev, peripheralID); err != nil {
		return err
	}
	if m.state != want {
		return m.reject(ev, acrble.ErrUnexpectedEvent)
	}
	return nil
}

func (m *Machine) startScan(r *Result, ev Event) error {
	switch m.state {
	case StateScanning:
		return nil
	case StateIdle, StateFaulted, StateResponseReceived:
		m.release(r)
		m.act(r, Action{Kind: ActionStartScan})
		m.scanning = true
		m.to(r, StateScanning)
		return nil
	case StateConnecting, StateConnected, StateReaderDetected, StateAttached,
		StateAuthenticated, StateATRReceived, StateCommandSent:
	}
	return m.reject(ev, acrble.ErrHandshakeBusy)
}

func (m *Machine) scanFailed(r *Result) {
	m.scanning = false
	if m.state == StateScanning {
		m.to(r, StateIdle)
	}
}

func (m *Machine) selectPeripheral(r *Result, ev Event, peripheralID string) error {
	if peripheralID == "" {
		return m.reject(ev, acrble.ErrInvalidParameter)
	}
	m.release(r)
	m.session = newSession(peripheralID)
	r.PeripheralID = peripheralID
	r.SessionStarted = true
	m.act(r, Action{Kind: ActionConnect, PeripheralID: peripheralID})
	m.to(r, StateConnecting)
	return nil
}

func (m *Machine) soundBuzzer(r *Result, ev Event) error {
	if m.session == nil || !m.state.ReaderAttached() || m.session.Reader == nil {
		return m.reject(ev, acrble.ErrReaderNotAttached)
	}
	m.session.EscapeCommand = acrble.BuzzerCommand()
	m.act(r, Action{
		Kind:         ActionTransmitEscape,
		PeripheralID: m.session.PeripheralID,
		Reader:       m.session.Reader,
		Data:         m.session.EscapeCommand,
	})
	return nil
}

func (m *Machine) reset(r *Result) {
	m.stopScanning(r)
	m.release(r)
	m.to(r, StateIdle)
}

func (m *Machine) adapterStateChanged(r *Result, poweredOn bool) {
	if poweredOn {
		if m.state == StateIdle && m.autoScan {
			m.act(r, Action{Kind: ActionStartScan})
			m.scanning = true
			m.to(r, StateScanning)
		}
		return
	}

	// Nothing survives the adapter going away, so no cancel is issued
	m.scanning = false
	if m.session != nil {
		if !m.state.IsTerminal() {
			m.fault(r, acrble.StageAdapter, nil)
		}
		m.session = nil
	}
	m.to(r, StateIdle)
}

func (m *Machine) connected(r *Result, ev Event, e PeripheralConnected) error {
	if err := m.expect(ev, e.PeripheralID, StateConnecting); err != nil {
		return err
	}
	if e.Err != nil {
		m.fault(r, acrble.StageConnect, e.Err)
		return nil
	}
	m.to(r, StateConnected)
	m.stopScanning(r)
	m.act(r, Action{Kind: ActionDetectReader, PeripheralID: m.session.PeripheralID})
	return nil
}

func (m *Machine) disconnected(r *Result, ev Event, e PeripheralDisconnected) error {
	if m.session == nil || detection.NormalizeID(e.PeripheralID) != detection.NormalizeID(m.session.PeripheralID) {
		return m.reject(ev, acrble.ErrStalePeripheral)
	}
	// A connection attempt fails through PeripheralConnected, so a
	// disconnect while connecting belongs to the previous connection.
	if m.state == StateConnecting {
		return m.reject(ev, acrble.ErrStalePeripheral)
	}
	if !m.state.IsTerminal() {
		m.fault(r, acrble.StageDisconnect, e.Err)
	}
	m.session = nil
	m.to(r, StateIdle)
	return nil
}

func (m *Machine) readerDetected(r *Result, ev Event, e ReaderDetected) error {
	if err := m.expect(ev, e.PeripheralID, StateConnected); err != nil {
		return err
	}
	switch {
	case e.Err != nil:
		m.fault(r, acrble.StageDetection, e.Err)
		return nil
	case e.Reader == nil:
		m.fault(r, acrble.StageDetection, fmt.Errorf("%w: no reader", acrble.ErrInvalidParameter))
		return nil
	}
	m.session.Reader = e.Reader
	m.to(r, StateReaderDetected)
	m.act(r, Action{Kind: ActionAttach, PeripheralID: m.session.PeripheralID, Reader: e.Reader})
	return nil
}

// advance handles the attach and authenticate callbacks, which differ only
// in the state they move to.
func (m *Machine) advance(
	r *Result, ev Event, peripheralID string, next State, stage acrble.Stage, cause error,
) error {
	if err := m.expect(ev, peripheralID, next-1); err != nil {
		return err
	}
	if cause != nil {
		m.fault(r, stage, cause)
		return nil
	}
	m.to(r, next)

	s := m.session
	switch next {
	case StateAttached:
		m.act(r, Action{Kind: ActionAuthenticate, PeripheralID: s.PeripheralID, Reader: s.Reader, Data: m.masterKey})
	case StateAuthenticated:
		if m.powerOnCard {
			m.act(r, Action{Kind: ActionPowerOnCard, PeripheralID: s.PeripheralID, Reader: s.Reader})
		}
	case StateIdle, StateScanning, StateConnecting, StateConnected, StateReaderDetected,
		StateATRReceived, StateCommandSent, StateResponseReceived, StateFaulted:
	}
	return nil
}

func (m *Machine) atrReturned(r *Result, ev Event, e ATRReturned) error {
	if err := m.expect(ev, e.PeripheralID, StateAuthenticated); err != nil {
		return err
	}
	if e.Err != nil {
		m.fault(r, acrble.StageATR, e.Err)
		return nil
	}
	if len(e.ATR) == 0 {
		m.fault(r, acrble.StageATR, fmt.Errorf("%w: empty ATR", acrble.ErrInvalidParameter))
		return nil
	}

	s := m.session
	s.ATR = append([]byte(nil), e.ATR...)
	card, command := m.classifier.Classify(s.ATR)
	if len(command) == 0 {
		m.fault(r, acrble.StageATR, fmt.Errorf("%w: no command for %s", acrble.ErrInvalidParameter, card))
		return nil
	}
	s.CardType = card
	s.Command = append([]byte(nil), command...)
	r.CardType = card
	m.to(r, StateATRReceived)

	m.act(r, Action{Kind: ActionTransmitAPDU, PeripheralID: s.PeripheralID, Reader: s.Reader, Data: s.Command})
	m.to(r, StateCommandSent)
	return nil
}

func (m *Machine) responseReturned(r *Result, ev Event, e ResponseReturned) error {
	if err := m.expect(ev, e.PeripheralID, StateCommandSent); err != nil {
		return err
	}
	if e.Err != nil {
		m.fault(r, acrble.StageResponse, e.Err)
		return nil
	}
	m.session.Response = append(acrble.ResponseAPDU(nil), e.APDU...)
	r.Response = m.session.Response
	r.CardType = m.session.CardType
	r.Completed = true
	m.to(r, StateResponseReceived)
	return nil
}

func (m *Machine) batteryStatusChanged(r *Result, ev Event, e BatteryStatusChanged) error {
	if err := m.checkSession(ev, e.PeripheralID); err != nil {
		return err
	}
	if !m.state.ReaderAttached() {
		return m.reject(ev, acrble.ErrUnexpectedEvent)
	}
	if e.Err != nil {
		r.Warning = acrble.NewStageError(acrble.StageBattery, m.session.PeripheralID, e.Err)
		return nil
	}
	m.session.Battery = e.Status
	m.session.HasBattery = true
	status := e.Status
	r.Battery = &status
	return nil
}

func (m *Machine) escapeResponseReturned(r *Result, ev Event, e EscapeResponseReturned) error {
	if err := m.checkSession(ev, e.PeripheralID); err != nil {
		return err
	}
	if !m.state.ReaderAttached() {
		return m.reject(ev, acrble.ErrUnexpectedEvent)
	}
	if e.Err != nil {
		r.Warning = acrble.NewStageError(acrble.StageEscape, m.session.PeripheralID, e.Err)
	}
	return nil
}

func (m *Machine) stageTimeout(r *Result, ev Event, e StageTimeout) error {
	if m.session == nil || m.state != e.State || !m.state.Waiting() {
		return m.reject(ev, acrble.ErrUnexpectedEvent)
	}
	m.fault(r, acrble.StageTimeout, fmt.Errorf("no callback in state %s", e.State))
	return nil
}
