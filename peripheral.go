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

import "fmt"

// Peripheral is a BLE device seen during a scan. The BLE stack owns the
// underlying handle; this is just the identity and the values read from
// one discovery event.
type Peripheral struct {
	// ID is the stable device identifier (address or platform UUID)
	ID string
	// Name is the advertised name, empty when none was advertised
	Name string
	// RSSI is the signal strength of the discovery event, in dBm
	RSSI float64
}

// String returns a human-readable representation of the peripheral
func (p Peripheral) String() string {
	name := p.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s [%s] rssi=%.0f", name, p.ID, p.RSSI)
}
