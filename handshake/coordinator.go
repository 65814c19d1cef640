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
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/detection"
	"github.com/ZaparooProject/go-acrble/internal/syncutil"
)

var (
	// ErrNotRunning is returned when posting to a coordinator that has not
	// been started
	ErrNotRunning = errors.New("coordinator not running")
	// ErrStopped is returned once the coordinator has been stopped
	ErrStopped = errors.New("coordinator stopped")
)

// Metrics tracks operational counters of a Coordinator
type Metrics struct {
	EventsHandled  int64 // Events accepted by the state machine
	EventsRejected int64 // Events rejected as stale or out of order
	Faults         int64 // Sessions that ended in a fault
	Warnings       int64 // Advisory failures (battery, escape)
	Completed      int64 // Sessions that received a response APDU
}

// Option configures a Coordinator
type Option func(*Coordinator) error

// WithConfig replaces the default handshake configuration
func WithConfig(cfg *Config) Option {
	return func(c *Coordinator) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", acrble.ErrInvalidParameter)
		}
		cp := *cfg
		if err := cp.Validate(); err != nil {
			return err
		}
		c.config = &cp
		return nil
	}
}

// WithFilter sets the reader filter used while scanning
func WithFilter(opts *detection.Options) Option {
	return func(c *Coordinator) error {
		c.filter = detection.NewFilter(opts)
		return nil
	}
}

// WithLogger logs to l instead of the package logger
func WithLogger(l *logrus.Logger) Option {
	return func(c *Coordinator) error {
		if l == nil {
			return fmt.Errorf("%w: nil logger", acrble.ErrInvalidParameter)
		}
		c.log = logrus.NewEntry(l)
		return nil
	}
}

// request runs fn on the coordinator goroutine and replies with its error
type request struct {
	fn    func() error
	reply chan error
}

func (*request) EventName() string { return "request" }

// Coordinator serialises every callback and caller request through one
// goroutine that owns the state machine, the discovered list and the
// stage timer. Adapters deliver callbacks with Post from any goroutine.
type Coordinator struct {
	central  acrble.Central
	manager  acrble.ReaderManager
	config   *Config
	filter   *detection.Filter
	devices  *detection.DiscoveredList
	machine  *Machine
	trace    *acrble.TraceBuffer
	log      *logrus.Entry
	events   chan Event
	done     chan struct{}
	timer    *time.Timer
	relay    relay
	session  Session
	wg       sync.WaitGroup
	stopOnce sync.Once
	snapMu   syncutil.RWMutex
	timerGen uint64
	state    State
	// Atomic counters for metrics
	eventsHandled  atomic.Int64
	eventsRejected atomic.Int64
	faults         atomic.Int64
	warnings       atomic.Int64
	completed      atomic.Int64
	hasSession     bool
	running        atomic.Bool
}

// NewCoordinator creates a coordinator driving central and manager and
// notifying observer, which may be nil.
func NewCoordinator(
	central acrble.Central, manager acrble.ReaderManager, observer Observer, opts ...Option,
) (*Coordinator, error) {
	if central == nil || manager == nil {
		return nil, fmt.Errorf("%w: central and reader manager are required", acrble.ErrInvalidParameter)
	}

	c := &Coordinator{
		central: central,
		manager: manager,
		config:  DefaultConfig(),
		filter:  detection.NewFilter(nil),
		devices: detection.NewDiscoveredList(),
		log:     logrus.NewEntry(acrble.Logger()),
		relay:   newRelay(observer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.log = c.log.WithField("component", "handshake")
	c.machine = NewMachine(c.config)
	c.trace = acrble.NewTraceBuffer(c.config.TraceSize)
	c.events = make(chan Event, c.config.EventBuffer)
	c.state = c.machine.State()
	return c, nil
}

// Start launches the coordinator goroutine. Cancelling ctx stops it.
func (c *Coordinator) Start(ctx context.Context) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}

	c.wg.Add(1)
	go c.loop(ctx)
	return nil
}

// Stop releases the session, stops scanning and waits for the coordinator
// goroutine to exit. A stopped coordinator cannot be restarted.
func (c *Coordinator) Stop(ctx context.Context) error {
	if c.running.Load() {
		if err := c.Reset(ctx); err != nil && !errors.Is(err, ErrStopped) {
			c.log.WithError(err).Warn("reset on stop failed")
		}
	}
	c.shutdown()

	waited := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for coordinator to stop: %w", ctx.Err())
	}
}

func (c *Coordinator) shutdown() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Post queues an event for the coordinator goroutine. It blocks while the
// queue is full.
func (c *Coordinator) Post(ev Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", acrble.ErrInvalidParameter)
	}
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	if !c.running.Load() {
		return ErrNotRunning
	}

	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// StartScanning starts discovering readers. It is a no-op while already
// scanning and fails with acrble.ErrHandshakeBusy mid-handshake.
func (c *Coordinator) StartScanning(ctx context.Context) error {
	return c.do(ctx, func() error {
		return c.dispatch(StartScan{})
	})
}

// SelectPeripheral starts a session with a discovered reader, releasing
// any previous session first.
func (c *Coordinator) SelectPeripheral(ctx context.Context, peripheralID string) error {
	return c.do(ctx, func() error {
		cand, ok := c.devices.Lookup(peripheralID)
		if !ok {
			return fmt.Errorf("%w: %s", acrble.ErrUnknownPeripheral, peripheralID)
		}
		return c.dispatch(Select{PeripheralID: cand.Peripheral.ID})
	})
}

// SoundBuzzer sends the buzzer escape command to the attached reader
func (c *Coordinator) SoundBuzzer(ctx context.Context) error {
	return c.do(ctx, func() error {
		return c.dispatch(SoundBuzzer{})
	})
}

// Reset releases the session, stops scanning and returns to Idle.
// The discovered list is kept.
func (c *Coordinator) Reset(ctx context.Context) error {
	return c.do(ctx, func() error {
		return c.dispatch(Reset{})
	})
}

// State returns the last published handshake state
func (c *Coordinator) State() State {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.state
}

// Session returns a copy of the current session, if any
func (c *Coordinator) Session() (Session, bool) {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	if !c.hasSession {
		return Session{}, false
	}
	return c.session.clone(), true
}

// Discovered returns the admitted readers in discovery order
func (c *Coordinator) Discovered() []detection.Candidate {
	return c.devices.Entries()
}

// GetMetrics returns current operational metrics
func (c *Coordinator) GetMetrics() Metrics {
	return Metrics{
		EventsHandled:  c.eventsHandled.Load(),
		EventsRejected: c.eventsRejected.Load(),
		Faults:         c.faults.Load(),
		Warnings:       c.warnings.Load(),
		Completed:      c.completed.Load(),
	}
}

// do runs fn on the coordinator goroutine and waits for its result
func (c *Coordinator) do(ctx context.Context, fn func() error) error {
	req := &request{fn: fn, reply: make(chan error, 1)}
	if err := c.Post(req); err != nil {
		return err
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// loop runs until stopped
func (c *Coordinator) loop(ctx context.Context) {
	defer c.wg.Done()
	defer func() {
		c.stopTimer()
		c.running.Store(false)
	}()

	for {
		select {
		case ev := <-c.events:
			if req, ok := ev.(*request); ok {
				req.reply <- req.fn()
				continue
			}
			if err := c.dispatch(ev); err != nil {
				c.log.WithError(err).Debugf("%s dropped", ev.EventName())
			}
		case <-ctx.Done():
			c.shutdown()
			return
		case <-c.done:
			return
		}
	}
}

// dispatch feeds one event through the machine and carries out the result.
// It must only run on the coordinator goroutine.
func (c *Coordinator) dispatch(ev Event) error {
	switch e := ev.(type) {
	case PeripheralDiscovered:
		c.discovered(e.Peripheral)
		return nil
	case StageTimeout:
		if e.Generation != c.timerGen {
			return nil
		}
	}

	res, err := c.machine.Handle(ev)
	if err != nil {
		c.eventsRejected.Add(1)
		return err
	}
	c.eventsHandled.Add(1)

	c.record(ev, res)
	c.publish()
	c.notify(res)
	if len(res.Transitions) > 0 || res.SessionStarted {
		c.armTimer(c.machine.State())
	}
	return c.perform(res.Actions)
}

// discovered admits an advertisement while scanning
func (c *Coordinator) discovered(p acrble.Peripheral) {
	if !c.machine.Scanning() {
		return
	}
	cand, ok := c.filter.Accept(p)
	if !ok {
		return
	}
	if !c.devices.Admit(cand) {
		return
	}
	c.log.WithFields(logrus.Fields{
		"peripheral": p.ID,
		"label":      cand.Label,
		"rssi":       p.RSSI,
	}).Debug("reader discovered")
	c.relay.onDiscovered(cand)
}

// record keeps the wire exchange of the session for fault reports
func (c *Coordinator) record(ev Event, res Result) {
	switch e := ev.(type) {
	case Select:
		c.trace.Begin(e.PeripheralID)
	case ATRReturned:
		if e.Err == nil {
			c.trace.RecordRX(e.ATR, "ATR")
		}
	case ResponseReturned:
		if e.Err == nil {
			c.trace.RecordRX(e.APDU, "response "+res.CardType.String())
		}
	case EscapeResponseReturned:
		if e.Err == nil {
			c.trace.RecordRX(e.Response, "escape response")
		}
	}
}

// publish copies the machine state for readers on other goroutines
func (c *Coordinator) publish() {
	s, ok := c.machine.Session()

	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	c.state = c.machine.State()
	c.session = s
	c.hasSession = ok
}

func (c *Coordinator) notify(res Result) {
	for _, t := range res.Transitions {
		c.log.Debugf("state %s -> %s", t.From, t.To)
		c.relay.onStateChanged(t)
	}

	if res.Warning != nil {
		c.warnings.Add(1)
		c.log.WithError(res.Warning).Warn("advisory failure")
		c.relay.onFault(res.Warning)
	}
	if res.Fault != nil {
		c.faults.Add(1)
		err := c.trace.WrapError(res.Fault)
		c.log.WithError(res.Fault).WithField("peripheral", res.PeripheralID).Error("handshake failed")
		if acrble.DebugEnabled() {
			if te := acrble.GetTrace(err); te != nil {
				c.log.Debug(te.FormatTrace())
			}
		}
		c.relay.onFault(err)
	}
	if res.Battery != nil {
		c.log.Debugf("battery %s", res.Battery)
		c.relay.onBatteryStatus(res.PeripheralID, *res.Battery)
	}
	if res.Completed {
		c.completed.Add(1)
		c.log.WithFields(logrus.Fields{
			"peripheral": res.PeripheralID,
			"card":       res.CardType,
			"response":   res.Response,
		}).Info("card response received")
		c.relay.onResponse(res.PeripheralID, res.CardType, res.Response)
	}
}

// perform carries out actions in order. A synchronous failure is fed back
// as the matching stage event; after a fatal one the rest are dropped.
// The first failure is returned to the caller.
func (c *Coordinator) perform(actions []Action) error {
	var first error
	for _, a := range actions {
		err := c.execute(a)
		if err == nil {
			continue
		}
		if first == nil {
			first = fmt.Errorf("%s: %w", a.Kind, err)
		}

		ev := a.failure(err)
		if ev == nil {
			c.log.WithError(err).Warnf("%s failed", a.Kind)
			continue
		}
		if dErr := c.dispatch(ev); dErr != nil {
			c.log.WithError(dErr).Debugf("%s failure dropped", a.Kind)
		}
		if c.machine.State() == StateFaulted || c.machine.State() == StateIdle {
			break
		}
	}
	return first
}

func (c *Coordinator) execute(a Action) error {
	switch a.Kind {
	case ActionStartScan:
		return c.central.Scan()
	case ActionStopScan:
		return c.central.StopScan()
	case ActionConnect:
		return c.central.Connect(a.PeripheralID)
	case ActionCancelConnection:
		return c.central.CancelConnection(a.PeripheralID)
	case ActionDetectReader:
		return c.manager.DetectReader(a.PeripheralID)
	case ActionAttach:
		return a.Reader.Attach(a.PeripheralID)
	case ActionAuthenticate:
		c.trace.RecordTX(nil, "authenticate")
		return a.Reader.Authenticate(a.Data)
	case ActionPowerOnCard:
		c.trace.RecordTX(nil, "power on card")
		return a.Reader.PowerOnCard()
	case ActionTransmitAPDU:
		c.trace.RecordTX(a.Data, "command APDU")
		return a.Reader.TransmitAPDU(a.Data)
	case ActionTransmitEscape:
		c.trace.RecordTX(a.Data, "escape")
		return a.Reader.TransmitEscapeCommand(a.Data)
	}
	return fmt.Errorf("%w: action %s", acrble.ErrNotImplemented, a.Kind)
}

// armTimer bounds the time spent in state
func (c *Coordinator) armTimer(state State) {
	c.stopTimer()
	d := c.config.timeoutFor(state)
	if d <= 0 {
		return
	}
	gen := c.timerGen
	c.timer = time.AfterFunc(d, func() {
		_ = c.Post(StageTimeout{State: state, Generation: gen})
	})
}

// stopTimer cancels the stage timer; a timeout already queued becomes stale
func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = nil
	c.timerGen++
}
