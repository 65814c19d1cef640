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

// Package acrble talks to ACS ACR1311U and ACR1255U Bluetooth card
// readers.
//
// The package holds the data model shared by the rest of the module:
// discovered peripherals, card types, battery codes, response APDUs, the
// fixed command buffers and the ATR classification policy. The BLE stack
// and the vendor reader SDK are reached through the Central,
// ReaderManager and Reader interfaces; their results come back as events
// handled by the handshake package.
//
// Basic flow:
//
//	coord, err := handshake.NewCoordinator(central, manager, observer)
//	if err != nil {
//	    return err
//	}
//	if err := coord.Start(ctx); err != nil {
//	    return err
//	}
//	defer coord.Stop(ctx)
//
//	_ = coord.StartScanning(ctx)
//	// observer.OnDiscovered reports each supported reader once
//	_ = coord.SelectPeripheral(ctx, id)
//
// Set ACRBLE_DEBUG=1 to print debug logging, or call InitSessionLog to
// capture a full log of the session to a file.
package acrble
