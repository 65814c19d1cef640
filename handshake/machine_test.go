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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-acrble"
)

const (
	readerA = "5C:F8:21:10:AA:01"
	readerB = "5C:F8:21:10:AA:02"
)

var mifareATR = acrble.MustHex(acrble.MifareClassic1KATR)

// stubReader satisfies acrble.Reader for events that carry one
type stubReader struct{}

func (stubReader) Attach(string) error                { return nil }
func (stubReader) Authenticate([]byte) error          { return nil }
func (stubReader) PowerOnCard() error                 { return nil }
func (stubReader) TransmitAPDU([]byte) error          { return nil }
func (stubReader) TransmitEscapeCommand([]byte) error { return nil }

func newTestMachine(t *testing.T, mutate func(*Config)) *Machine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return NewMachine(cfg)
}

// apply feeds events that must all be accepted and returns the last result
func apply(t *testing.T, m *Machine, events ...Event) Result {
	t.Helper()
	var res Result
	for _, ev := range events {
		var err error
		res, err = m.Handle(ev)
		require.NoError(t, err, "event %s in state %s", ev.EventName(), m.State())
	}
	return res
}

func actionKinds(actions []Action) []ActionKind {
	kinds := make([]ActionKind, len(actions))
	for i, a := range actions {
		kinds[i] = a.Kind
	}
	return kinds
}

// toState drives a fresh session on readerA up to the given state
func toState(t *testing.T, m *Machine, target State) {
	t.Helper()
	steps := []struct {
		ev    Event
		state State
	}{
		{StartScan{}, StateScanning},
		{Select{PeripheralID: readerA}, StateConnecting},
		{PeripheralConnected{PeripheralID: readerA}, StateConnected},
		{ReaderDetected{PeripheralID: readerA, Reader: stubReader{}}, StateReaderDetected},
		{ReaderAttached{PeripheralID: readerA}, StateAttached},
		{ReaderAuthenticated{PeripheralID: readerA}, StateAuthenticated},
		{ATRReturned{PeripheralID: readerA, ATR: mifareATR}, StateCommandSent},
		{ResponseReturned{PeripheralID: readerA, APDU: acrble.MustHex("04 A2 2B 3C 90 00")}, StateResponseReceived},
	}
	if target == StateIdle {
		return
	}
	for _, step := range steps {
		apply(t, m, step.ev)
		require.Equal(t, step.state, m.State())
		if step.state == target {
			return
		}
	}
	t.Fatalf("state %s is not on the handshake path", target)
}

func requireRejected(t *testing.T, err, sentinel error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, sentinel)
	var ee *acrble.EventError
	require.ErrorAs(t, err, &ee)
}

func TestMachine_HappyPath(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	assert.Equal(t, StateIdle, m.State())

	res := apply(t, m, StartScan{})
	assert.Equal(t, []ActionKind{ActionStartScan}, actionKinds(res.Actions))
	assert.True(t, m.Scanning())

	res = apply(t, m, Select{PeripheralID: readerA})
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ActionConnect, res.Actions[0].Kind)
	assert.Equal(t, readerA, res.Actions[0].PeripheralID)

	res = apply(t, m, PeripheralConnected{PeripheralID: readerA})
	assert.Equal(t, []ActionKind{ActionStopScan, ActionDetectReader}, actionKinds(res.Actions))
	assert.False(t, m.Scanning())

	res = apply(t, m, ReaderDetected{PeripheralID: readerA, Reader: stubReader{}})
	assert.Equal(t, []ActionKind{ActionAttach}, actionKinds(res.Actions))

	res = apply(t, m, ReaderAttached{PeripheralID: readerA})
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ActionAuthenticate, res.Actions[0].Kind)
	assert.Equal(t, acrble.MasterKey(), res.Actions[0].Data)

	res = apply(t, m, ReaderAuthenticated{PeripheralID: readerA})
	assert.Equal(t, []ActionKind{ActionPowerOnCard}, actionKinds(res.Actions))

	res = apply(t, m, ATRReturned{PeripheralID: readerA, ATR: mifareATR})
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ActionTransmitAPDU, res.Actions[0].Kind)
	assert.Equal(t, acrble.MustHex("FF CA 00 00 00"), res.Actions[0].Data)
	assert.Equal(t, []Transition{
		{From: StateAuthenticated, To: StateATRReceived},
		{From: StateATRReceived, To: StateCommandSent},
	}, res.Transitions)
	assert.Equal(t, acrble.CardTypeMifare1K, res.CardType)

	res = apply(t, m, ResponseReturned{PeripheralID: readerA, APDU: acrble.MustHex("04 A2 2B 3C 90 00")})
	assert.True(t, res.Completed)
	assert.Empty(t, res.Actions)
	assert.True(t, res.Response.IsSuccess())
	assert.Equal(t, StateResponseReceived, m.State())

	session, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, readerA, session.PeripheralID)
	assert.Equal(t, mifareATR, session.ATR)
	assert.Equal(t, acrble.CardTypeMifare1K, session.CardType)
	assert.NoError(t, session.Err)
}

func TestMachine_NewSessionDefaults(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	toState(t, m, StateConnecting)

	session, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, acrble.MustHex("FF CA 01 00 00"), session.Command)
	assert.Equal(t, acrble.MustHex("04 00"), session.EscapeCommand)
	assert.Equal(t, acrble.CardTypeNone, session.CardType)
	assert.False(t, session.HasBattery)
}

func TestMachine_CreditCard(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	toState(t, m, StateAuthenticated)

	res := apply(t, m, ATRReturned{PeripheralID: readerA, ATR: acrble.MustHex("3B 00")})
	assert.Equal(t, acrble.CardTypeCreditCard, res.CardType)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, acrble.EMVSelectPSECommand(), res.Actions[0].Data)
}

// A reader attach failure faults the session and nothing further happens
// until a new selection.
func TestMachine_AttachFailureFaultsSession(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	toState(t, m, StateReaderDetected)

	cause := errors.New("attach refused")
	res := apply(t, m, ReaderAttached{PeripheralID: readerA, Err: cause})
	assert.Equal(t, StateFaulted, m.State())
	assert.Empty(t, res.Actions, "no authenticate after a failed attach")
	require.Error(t, res.Fault)
	assert.ErrorIs(t, res.Fault, acrble.ErrAttachFailed)
	assert.ErrorIs(t, res.Fault, cause)
	assert.True(t, acrble.IsFatal(res.Fault))

	stage, ok := acrble.StageOf(res.Fault)
	require.True(t, ok)
	assert.Equal(t, acrble.StageAttach, stage)

	_, err := m.Handle(ReaderAuthenticated{PeripheralID: readerA})
	requireRejected(t, err, acrble.ErrSessionFaulted)
	_, err = m.Handle(ATRReturned{PeripheralID: readerA, ATR: mifareATR})
	requireRejected(t, err, acrble.ErrSessionFaulted)
	assert.Equal(t, StateFaulted, m.State())

	session, ok := m.Session()
	require.True(t, ok)
	assert.ErrorIs(t, session.Err, acrble.ErrAttachFailed)

	// A new selection starts over
	res = apply(t, m, Select{PeripheralID: readerA})
	assert.Equal(t, StateConnecting, m.State())
	assert.Equal(t, []ActionKind{ActionCancelConnection, ActionConnect}, actionKinds(res.Actions))
}

func TestMachine_StageFailures(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	tests := []struct {
		ev       Event
		sentinel error
		name     string
		from     State
		stage    acrble.Stage
	}{
		{
			name:     "connect",
			from:     StateConnecting,
			ev:       PeripheralConnected{PeripheralID: readerA, Err: cause},
			stage:    acrble.StageConnect,
			sentinel: acrble.ErrConnectFailed,
		},
		{
			name:     "detection",
			from:     StateConnected,
			ev:       ReaderDetected{PeripheralID: readerA, Err: cause},
			stage:    acrble.StageDetection,
			sentinel: acrble.ErrDetectionFailed,
		},
		{
			name:     "authentication",
			from:     StateAttached,
			ev:       ReaderAuthenticated{PeripheralID: readerA, Err: cause},
			stage:    acrble.StageAuthentication,
			sentinel: acrble.ErrAuthenticationFailed,
		},
		{
			name:     "atr",
			from:     StateAuthenticated,
			ev:       ATRReturned{PeripheralID: readerA, Err: cause},
			stage:    acrble.StageATR,
			sentinel: acrble.ErrATRFailed,
		},
		{
			name:     "response",
			from:     StateCommandSent,
			ev:       ResponseReturned{PeripheralID: readerA, Err: cause},
			stage:    acrble.StageResponse,
			sentinel: acrble.ErrResponseFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newTestMachine(t, nil)
			toState(t, m, tt.from)

			res := apply(t, m, tt.ev)
			assert.Equal(t, StateFaulted, m.State())
			assert.Empty(t, res.Actions)
			assert.ErrorIs(t, res.Fault, tt.sentinel)
			assert.ErrorIs(t, res.Fault, cause)
			stage, ok := acrble.StageOf(res.Fault)
			require.True(t, ok)
			assert.Equal(t, tt.stage, stage)
		})
	}
}

func TestMachine_DetectedWithoutReader(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	toState(t, m, StateConnected)

	res := apply(t, m, ReaderDetected{PeripheralID: readerA})
	assert.Equal(t, StateFaulted, m.State())
	assert.ErrorIs(t, res.Fault, acrble.ErrDetectionFailed)
}

func TestMachine_EmptyATR(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	toState(t, m, StateAuthenticated)

	res := apply(t, m, ATRReturned{PeripheralID: readerA})
	assert.Equal(t, StateFaulted, m.State())
	assert.ErrorIs(t, res.Fault, acrble.ErrATRFailed)
}

func TestMachine_ClassifierWithoutCommand(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, func(cfg *Config) {
		cfg.Classifier = acrble.ATRClassifierFunc(func([]byte) (acrble.CardType, []byte) {
			return acrble.CardTypeNone, nil
		})
	})
	toState(t, m, StateAuthenticated)

	res := apply(t, m, ATRReturned{PeripheralID: readerA, ATR: mifareATR})
	assert.Equal(t, StateFaulted, m.State())
	assert.ErrorIs(t, res.Fault, acrble.ErrATRFailed)
	assert.ErrorIs(t, res.Fault, acrble.ErrInvalidParameter)
}

func TestMachine_PowerOnCardDisabled(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, func(cfg *Config) { cfg.PowerOnCard = false })
	toState(t, m, StateAttached)

	res := apply(t, m, ReaderAuthenticated{PeripheralID: readerA})
	assert.Empty(t, res.Actions)
	assert.Equal(t, StateAuthenticated, m.State())

	// The reader pushes the ATR on its own
	apply(t, m, ATRReturned{PeripheralID: readerA, ATR: mifareATR})
	assert.Equal(t, StateCommandSent, m.State())
}

func TestMachine_CustomMasterKey(t *testing.T) {
	t.Parallel()

	key := acrble.MustHex("00 11 22 33 44 55 66 77 88 99 AA BB CC DD EE FF")
	m := newTestMachine(t, func(cfg *Config) { cfg.MasterKey = key })
	toState(t, m, StateReaderDetected)

	res := apply(t, m, ReaderAttached{PeripheralID: readerA})
	require.Len(t, res.Actions, 1)
	assert.Equal(t, key, res.Actions[0].Data)
}

func TestMachine_OutOfOrderEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ev   Event
		name string
		at   State
	}{
		{name: "attached before detected", at: StateConnected, ev: ReaderAttached{PeripheralID: readerA}},
		{name: "authenticated before attached", at: StateReaderDetected, ev: ReaderAuthenticated{PeripheralID: readerA}},
		{name: "atr before authenticated", at: StateAttached, ev: ATRReturned{PeripheralID: readerA, ATR: mifareATR}},
		{name: "response before command", at: StateAuthenticated, ev: ResponseReturned{PeripheralID: readerA}},
		{name: "detected twice", at: StateReaderDetected, ev: ReaderDetected{PeripheralID: readerA, Reader: stubReader{}}},
		{name: "connected twice", at: StateConnected, ev: PeripheralConnected{PeripheralID: readerA}},
		{name: "response after completion", at: StateResponseReceived, ev: ResponseReturned{PeripheralID: readerA}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newTestMachine(t, nil)
			toState(t, m, tt.at)

			before, _ := m.Session()
			_, err := m.Handle(tt.ev)
			requireRejected(t, err, acrble.ErrUnexpectedEvent)
			assert.Equal(t, tt.at, m.State(), "rejected events leave the state alone")
			after, _ := m.Session()
			assert.Equal(t, before, after)
		})
	}
}

func TestMachine_StalePeripheral(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	toState(t, m, StateConnected)

	_, err := m.Handle(ReaderDetected{PeripheralID: readerB, Reader: stubReader{}})
	requireRejected(t, err, acrble.ErrStalePeripheral)
	assert.Equal(t, StateConnected, m.State())

	// IDs compare case-insensitively
	apply(t, m, ReaderDetected{PeripheralID: "5c:f8:21:10:aa:01", Reader: stubReader{}})
	assert.Equal(t, StateReaderDetected, m.State())
}

func TestMachine_EventsWithoutSession(t *testing.T) {
	t.Parallel()

	events := []Event{
		PeripheralConnected{PeripheralID: readerA},
		PeripheralDisconnected{PeripheralID: readerA},
		ReaderDetected{PeripheralID: readerA, Reader: stubReader{}},
		ReaderAttached{PeripheralID: readerA},
		ReaderAuthenticated{PeripheralID: readerA},
		ATRReturned{PeripheralID: readerA, ATR: mifareATR},
		ResponseReturned{PeripheralID: readerA},
		BatteryStatusChanged{PeripheralID: readerA},
		EscapeResponseReturned{PeripheralID: readerA},
	}
	for _, ev := range events {
		t.Run(ev.EventName(), func(t *testing.T) {
			t.Parallel()
			m := newTestMachine(t, nil)
			_, err := m.Handle(ev)
			requireRejected(t, err, acrble.ErrStalePeripheral)
			assert.Equal(t, StateIdle, m.State())
		})
	}
}

func TestMachine_SelectReleasesPrevious(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	toState(t, m, StateAttached)

	res := apply(t, m, Select{PeripheralID: readerB})
	require.Len(t, res.Actions, 2)
	assert.Equal(t, Action{Kind: ActionCancelConnection, PeripheralID: readerA}, res.Actions[0])
	assert.Equal(t, Action{Kind: ActionConnect, PeripheralID: readerB}, res.Actions[1])
	assert.Equal(t, StateConnecting, m.State())

	session, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, readerB, session.PeripheralID)
	assert.Nil(t, session.Reader)

	// Late callbacks from the old reader are stale
	_, err := m.Handle(ReaderAuthenticated{PeripheralID: readerA})
	requireRejected(t, err, acrble.ErrStalePeripheral)
}

func TestMachine_ReselectSamePeripheral(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	toState(t, m, StateResponseReceived)

	res := apply(t, m, Select{PeripheralID: readerA})
	assert.Equal(t, []ActionKind{ActionCancelConnection, ActionConnect}, actionKinds(res.Actions))

	// The disconnect of the released connection arrives while connecting
	_, err := m.Handle(PeripheralDisconnected{PeripheralID: readerA})
	requireRejected(t, err, acrble.ErrStalePeripheral)
	assert.Equal(t, StateConnecting, m.State())
}

func TestMachine_ReselectWhileConnecting(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	res := apply(t, m, Select{PeripheralID: readerA})
	assert.True(t, res.SessionStarted)

	res = apply(t, m, Select{PeripheralID: readerB})
	assert.Empty(t, res.Transitions)
	assert.True(t, res.SessionStarted)
	assert.Equal(t, []ActionKind{ActionCancelConnection, ActionConnect}, actionKinds(res.Actions))
	assert.Equal(t, StateConnecting, m.State())

	res = apply(t, m, PeripheralConnected{PeripheralID: readerB})
	assert.False(t, res.SessionStarted)
}

func TestMachine_SelectRequiresID(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	_, err := m.Handle(Select{})
	requireRejected(t, err, acrble.ErrInvalidParameter)
}

func TestMachine_StartScan(t *testing.T) {
	t.Parallel()

	t.Run("again while scanning is a no-op", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		apply(t, m, StartScan{})
		res := apply(t, m, StartScan{})
		assert.Empty(t, res.Actions)
		assert.Empty(t, res.Transitions)
	})

	t.Run("busy mid handshake", func(t *testing.T) {
		t.Parallel()
		for _, s := range []State{StateConnecting, StateConnected, StateAttached, StateCommandSent} {
			m := newTestMachine(t, nil)
			toState(t, m, s)
			_, err := m.Handle(StartScan{})
			requireRejected(t, err, acrble.ErrHandshakeBusy)
			assert.Equal(t, s, m.State())
		}
	})

	t.Run("after completion releases the reader", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		toState(t, m, StateResponseReceived)
		res := apply(t, m, StartScan{})
		assert.Equal(t, []ActionKind{ActionCancelConnection, ActionStartScan}, actionKinds(res.Actions))
		assert.Equal(t, StateScanning, m.State())
		_, ok := m.Session()
		assert.False(t, ok)
	})

	t.Run("scan failure returns to idle", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		apply(t, m, StartScan{}, scanFailed{})
		assert.Equal(t, StateIdle, m.State())
		assert.False(t, m.Scanning())
	})
}

func TestMachine_Battery(t *testing.T) {
	t.Parallel()

	t.Run("before attach is rejected", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		toState(t, m, StateReaderDetected)
		_, err := m.Handle(BatteryStatusChanged{PeripheralID: readerA, Status: acrble.BatteryStatusFull})
		requireRejected(t, err, acrble.ErrUnexpectedEvent)
	})

	t.Run("after attach is recorded", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		toState(t, m, StateAttached)
		res := apply(t, m, BatteryStatusChanged{PeripheralID: readerA, Status: 130})
		require.NotNil(t, res.Battery)
		assert.Equal(t, "Low", res.Battery.String())
		assert.Empty(t, res.Transitions)

		session, _ := m.Session()
		assert.True(t, session.HasBattery)
		assert.Equal(t, acrble.BatteryStatus(130), session.Battery)
	})

	t.Run("failure is advisory", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		toState(t, m, StateAuthenticated)
		res := apply(t, m, BatteryStatusChanged{PeripheralID: readerA, Err: errors.New("gatt read failed")})
		assert.Equal(t, StateAuthenticated, m.State())
		assert.NoError(t, res.Fault)
		assert.ErrorIs(t, res.Warning, acrble.ErrBatteryStatus)
		assert.False(t, acrble.IsFatal(res.Warning))

		// The handshake carries on
		apply(t, m, ATRReturned{PeripheralID: readerA, ATR: mifareATR})
		assert.Equal(t, StateCommandSent, m.State())
	})

	t.Run("after fault is rejected", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		toState(t, m, StateAttached)
		apply(t, m, ReaderAuthenticated{PeripheralID: readerA, Err: errors.New("bad key")})
		_, err := m.Handle(BatteryStatusChanged{PeripheralID: readerA, Status: acrble.BatteryStatusFull})
		requireRejected(t, err, acrble.ErrSessionFaulted)
	})
}

func TestMachine_SoundBuzzer(t *testing.T) {
	t.Parallel()

	for _, s := range []State{StateIdle, StateScanning, StateConnecting, StateConnected, StateReaderDetected} {
		m := newTestMachine(t, nil)
		toState(t, m, s)
		_, err := m.Handle(SoundBuzzer{})
		requireRejected(t, err, acrble.ErrReaderNotAttached)
	}

	m := newTestMachine(t, nil)
	toState(t, m, StateResponseReceived)
	res := apply(t, m, SoundBuzzer{})
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ActionTransmitEscape, res.Actions[0].Kind)
	assert.Equal(t, acrble.MustHex("E0 00 00 28 01 09"), res.Actions[0].Data)
	assert.NotNil(t, res.Actions[0].Reader)

	res = apply(t, m, EscapeResponseReturned{PeripheralID: readerA, Err: errors.New("nak")})
	assert.ErrorIs(t, res.Warning, acrble.ErrEscapeCommand)
	assert.Equal(t, StateResponseReceived, m.State())
}

func TestMachine_Disconnect(t *testing.T) {
	t.Parallel()

	t.Run("mid handshake faults then idles", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		toState(t, m, StateAuthenticated)
		res := apply(t, m, PeripheralDisconnected{PeripheralID: readerA})
		assert.ErrorIs(t, res.Fault, acrble.ErrDisconnected)
		assert.Equal(t, []Transition{
			{From: StateAuthenticated, To: StateFaulted},
			{From: StateFaulted, To: StateIdle},
		}, res.Transitions)
		_, ok := m.Session()
		assert.False(t, ok)
	})

	t.Run("after completion just idles", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		toState(t, m, StateResponseReceived)
		res := apply(t, m, PeripheralDisconnected{PeripheralID: readerA})
		assert.NoError(t, res.Fault)
		assert.Equal(t, StateIdle, m.State())
	})

	t.Run("other peripheral is stale", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		toState(t, m, StateAttached)
		_, err := m.Handle(PeripheralDisconnected{PeripheralID: readerB})
		requireRejected(t, err, acrble.ErrStalePeripheral)
		assert.Equal(t, StateAttached, m.State())
	})
}

func TestMachine_Adapter(t *testing.T) {
	t.Parallel()

	t.Run("power on while idle scans", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		res := apply(t, m, AdapterStateChanged{PoweredOn: true})
		assert.Equal(t, []ActionKind{ActionStartScan}, actionKinds(res.Actions))
		assert.Equal(t, StateScanning, m.State())
	})

	t.Run("power on without auto scan", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, func(cfg *Config) { cfg.AutoScan = false })
		res := apply(t, m, AdapterStateChanged{PoweredOn: true})
		assert.Empty(t, res.Actions)
		assert.Equal(t, StateIdle, m.State())
	})

	t.Run("power off mid handshake", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		toState(t, m, StateConnected)
		res := apply(t, m, AdapterStateChanged{PoweredOn: false})
		assert.ErrorIs(t, res.Fault, acrble.ErrAdapterPoweredOff)
		assert.Empty(t, res.Actions)
		assert.Equal(t, StateIdle, m.State())
		assert.False(t, m.Scanning())
	})

	t.Run("power off while scanning", func(t *testing.T) {
		t.Parallel()
		m := newTestMachine(t, nil)
		apply(t, m, StartScan{})
		res := apply(t, m, AdapterStateChanged{PoweredOn: false})
		assert.NoError(t, res.Fault)
		assert.Equal(t, StateIdle, m.State())
	})
}

func TestMachine_StageTimeout(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	toState(t, m, StateAttached)

	_, err := m.Handle(StageTimeout{State: StateConnected})
	requireRejected(t, err, acrble.ErrUnexpectedEvent)

	res := apply(t, m, StageTimeout{State: StateAttached})
	assert.Equal(t, StateFaulted, m.State())
	assert.ErrorIs(t, res.Fault, acrble.ErrStageTimeout)
}

func TestMachine_Reset(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	apply(t, m, StartScan{}, Select{PeripheralID: readerA})

	res := apply(t, m, Reset{})
	assert.Equal(t, []Action{
		{Kind: ActionStopScan},
		{Kind: ActionCancelConnection, PeripheralID: readerA},
	}, res.Actions)
	assert.Equal(t, StateIdle, m.State())

	res = apply(t, m, Reset{})
	assert.Empty(t, res.Actions)
	assert.Empty(t, res.Transitions)
}

func TestMachine_UnknownEvent(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, nil)
	_, err := m.Handle(PeripheralDiscovered{})
	requireRejected(t, err, acrble.ErrUnexpectedEvent)
}

func TestState_Predicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    State
		name     string
		terminal bool
		attached bool
		waiting  bool
	}{
		{state: StateIdle, name: "Idle"},
		{state: StateScanning, name: "Scanning"},
		{state: StateConnecting, name: "Connecting", waiting: true},
		{state: StateConnected, name: "Connected", waiting: true},
		{state: StateReaderDetected, name: "ReaderDetected", waiting: true},
		{state: StateAttached, name: "Attached", attached: true, waiting: true},
		{state: StateAuthenticated, name: "Authenticated", attached: true, waiting: true},
		{state: StateATRReceived, name: "ATRReceived", attached: true},
		{state: StateCommandSent, name: "CommandSent", attached: true, waiting: true},
		{state: StateResponseReceived, name: "ResponseReceived", attached: true, terminal: true},
		{state: StateFaulted, name: "Faulted", terminal: true},
		{state: State(99), name: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.name, tt.state.String())
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
			assert.Equal(t, tt.attached, tt.state.ReaderAttached())
			assert.Equal(t, tt.waiting, tt.state.Waiting())
		})
	}
}
