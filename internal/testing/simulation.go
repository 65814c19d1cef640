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
	"context"
	"errors"

	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/handshake"
)

// Simulation is a coordinator driving a VirtualReader
type Simulation struct {
	Reader      *VirtualReader
	Coordinator *handshake.Coordinator
}

// NewSimulation wires a VirtualReader advertising peripherals to a new
// coordinator. Nothing runs until Start.
func NewSimulation(
	peripherals []acrble.Peripheral, jitter JitterConfig, observer handshake.Observer, opts ...handshake.Option,
) (*Simulation, error) {
	sim := &Simulation{}
	sink := handshake.EventSinkFunc(func(ev handshake.Event) error {
		return sim.Coordinator.Post(ev)
	})
	sim.Reader = NewVirtualReader(sink, peripherals, jitter)

	coord, err := handshake.NewCoordinator(sim.Reader, sim.Reader, observer, opts...)
	if err != nil {
		sim.Reader.Close()
		return nil, err
	}
	sim.Coordinator = coord
	return sim, nil
}

// Start starts the coordinator
func (s *Simulation) Start(ctx context.Context) error {
	return s.Coordinator.Start(ctx)
}

// Close stops the coordinator and the simulated callbacks
func (s *Simulation) Close(ctx context.Context) error {
	err := s.Coordinator.Stop(ctx)
	s.Reader.Close()
	if errors.Is(err, handshake.ErrStopped) {
		return nil
	}
	return err
}
