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
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ZaparooProject/go-acrble/handshake"
)

// JitterConfig configures the behavior of JitteryQueue.
type JitterConfig struct {
	MaxLatencyMs     int
	StallAfterEvents int
	StallDuration    time.Duration
	Seed             uint64
}

// DefaultJitterConfig returns a sensible default configuration for testing.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatencyMs: 5,
	}
}

// JitteryQueue delivers events to a sink from its own goroutine, in the
// order they were queued, after a random delay each. It stands in for a
// BLE stack or reader SDK calling back at unpredictable times.
type JitteryQueue struct {
	sink      handshake.EventSink
	rng       *rand.Rand
	queue     chan handshake.Event
	done      chan struct{}
	config    JitterConfig
	wg        sync.WaitGroup
	closeOnce sync.Once
	delivered int
}

// NewJitteryQueue starts delivering to sink. Call Close when finished.
func NewJitteryQueue(sink handshake.EventSink, config JitterConfig) *JitteryQueue {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Test code, not crypto
	}

	q := &JitteryQueue{
		sink:   sink,
		rng:    rng,
		config: config,
		queue:  make(chan handshake.Event, 64),
		done:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Enqueue schedules ev for delivery. Events queued after Close are dropped.
func (q *JitteryQueue) Enqueue(ev handshake.Event) {
	select {
	case <-q.done:
		return
	default:
	}
	select {
	case q.queue <- ev:
	case <-q.done:
	}
}

// Close stops delivery and waits for the queue goroutine to exit
func (q *JitteryQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
	q.wg.Wait()
}

func (q *JitteryQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case ev := <-q.queue:
			if !q.wait() {
				return
			}
			// The coordinator may already be stopped; nothing to report to
			_ = q.sink.Post(ev)
			q.delivered++
		case <-q.done:
			return
		}
	}
}

// wait sleeps for the jitter delay and reports false if closed meanwhile
func (q *JitteryQueue) wait() bool {
	delay := time.Duration(0)
	if q.config.MaxLatencyMs > 0 {
		delay = time.Duration(q.rng.IntN(q.config.MaxLatencyMs+1)) * time.Millisecond
	}
	if q.config.StallAfterEvents > 0 && q.delivered == q.config.StallAfterEvents {
		delay += q.config.StallDuration
	}
	if delay <= 0 {
		return true
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-q.done:
		return false
	}
}
