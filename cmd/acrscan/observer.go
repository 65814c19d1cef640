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

package main

import (
	"fmt"
	"io"

	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/detection"
	"github.com/ZaparooProject/go-acrble/handshake"
)

// outcome is how a handshake ended
type outcome struct {
	err      error
	response acrble.ResponseAPDU
	card     acrble.CardType
}

// printer reports coordinator notifications on out. It runs on the
// coordinator goroutine and hands results back through channels.
type printer struct {
	out     io.Writer
	found   chan string
	done    chan outcome
	verbose bool
}

func newPrinter(out io.Writer, verbose bool) *printer {
	return &printer{
		out:     out,
		verbose: verbose,
		found:   make(chan string, 1),
		done:    make(chan outcome, 1),
	}
}

func (p *printer) OnDiscovered(peripheralID string, label detection.Label, rssi float64) {
	_, _ = fmt.Fprintf(p.out, "Found %s %s (%.0f dBm)\n", label, peripheralID, rssi)
	select {
	case p.found <- peripheralID:
	default:
	}
}

func (p *printer) OnStateChanged(from, to handshake.State) {
	if p.verbose {
		_, _ = fmt.Fprintf(p.out, "State: %s -> %s\n", from, to)
	}
}

func (p *printer) OnBatteryStatus(_ string, status acrble.BatteryStatus) {
	_, _ = fmt.Fprintf(p.out, "Battery: %s\n", status)
}

func (p *printer) OnFault(err error) {
	if !acrble.IsFatal(err) {
		_, _ = fmt.Fprintf(p.out, "Warning: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(p.out, "Failed: %v\n", err)
	p.finish(outcome{err: err})
}

func (p *printer) OnResponse(_ string, card acrble.CardType, response acrble.ResponseAPDU) {
	_, _ = fmt.Fprintf(p.out, "Card: %s\n", card)
	_, _ = fmt.Fprintf(p.out, "Response: %s\n", response)
	p.finish(outcome{card: card, response: response})
}

// finish records the first outcome only
func (p *printer) finish(o outcome) {
	select {
	case p.done <- o:
	default:
	}
}
