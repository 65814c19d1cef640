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

//go:build linux || darwin

package ble

import (
	"fmt"

	"github.com/paypal/gatt"
	"github.com/sirupsen/logrus"

	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/detection"
	"github.com/ZaparooProject/go-acrble/handshake"
	"github.com/ZaparooProject/go-acrble/internal/syncutil"
)

// Central drives the host adapter in the BLE central role and forwards
// adapter callbacks to an event sink as handshake events.
type Central struct {
	device      gatt.Device
	sink        handshake.EventSink
	peripherals map[string]gatt.Peripheral
	log         *logrus.Entry
	mu          syncutil.Mutex
}

// New opens the host adapter. Without options DefaultOptions is used.
func New(opts ...gatt.Option) (*Central, error) {
	if len(opts) == 0 {
		opts = DefaultOptions()
	}
	device, err := gatt.NewDevice(opts...)
	if err != nil {
		return nil, fmt.Errorf("open bluetooth adapter: %w", classifyError(err))
	}

	c := &Central{
		device:      device,
		peripherals: make(map[string]gatt.Peripheral),
		log:         acrble.Logger().WithField("component", "ble"),
	}
	device.Handle(
		gatt.PeripheralDiscovered(c.onDiscovered),
		gatt.PeripheralConnected(c.onConnected),
		gatt.PeripheralDisconnected(c.onDisconnected),
	)
	return c, nil
}

// Open starts delivering adapter callbacks to sink. The adapter state is
// reported first, as AdapterStateChanged.
func (c *Central) Open(sink handshake.EventSink) error {
	if sink == nil {
		return fmt.Errorf("%w: nil event sink", acrble.ErrInvalidParameter)
	}
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()

	if err := c.device.Init(c.onStateChanged); err != nil {
		return fmt.Errorf("init bluetooth adapter: %w", classifyError(err))
	}
	return nil
}

// Scan implements acrble.Central
func (c *Central) Scan() error {
	c.device.Scan([]gatt.UUID{}, false)
	return nil
}

// StopScan implements acrble.Central
func (c *Central) StopScan() error {
	c.device.StopScanning()
	return nil
}

// Connect implements acrble.Central
func (c *Central) Connect(peripheralID string) error {
	p, err := c.Peripheral(peripheralID)
	if err != nil {
		return err
	}
	c.device.Connect(p)
	return nil
}

// CancelConnection implements acrble.Central
func (c *Central) CancelConnection(peripheralID string) error {
	p, err := c.Peripheral(peripheralID)
	if err != nil {
		return err
	}
	c.device.CancelConnection(p)
	return nil
}

// Peripheral returns the gatt peripheral seen under peripheralID, for
// reader SDKs that talk to it directly.
func (c *Central) Peripheral(peripheralID string) (gatt.Peripheral, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.peripherals[detection.NormalizeID(peripheralID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", acrble.ErrUnknownPeripheral, peripheralID)
	}
	return p, nil
}

func (c *Central) post(ev handshake.Event) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink == nil {
		return
	}
	if err := sink.Post(ev); err != nil {
		c.log.WithError(err).Debugf("%s not delivered", ev.EventName())
	}
}

func (c *Central) onStateChanged(_ gatt.Device, s gatt.State) {
	c.log.Debugf("adapter state %s", s)
	c.post(handshake.AdapterStateChanged{State: s.String(), PoweredOn: s == gatt.StatePoweredOn})
}

func (c *Central) onDiscovered(p gatt.Peripheral, a *gatt.Advertisement, rssi int) {
	name := p.Name()
	if name == "" && a != nil {
		name = a.LocalName
	}

	c.mu.Lock()
	c.peripherals[detection.NormalizeID(p.ID())] = p
	c.mu.Unlock()

	c.post(handshake.PeripheralDiscovered{Peripheral: acrble.Peripheral{
		ID:   p.ID(),
		Name: name,
		RSSI: float64(rssi),
	}})
}

func (c *Central) onConnected(p gatt.Peripheral, err error) {
	c.post(handshake.PeripheralConnected{PeripheralID: p.ID(), Err: err})
}

func (c *Central) onDisconnected(p gatt.Peripheral, err error) {
	c.post(handshake.PeripheralDisconnected{PeripheralID: p.ID(), Err: err})
}
