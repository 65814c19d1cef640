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

// BatteryStatus is the battery code reported by the reader
type BatteryStatus uint

const (
	// BatteryStatusNone means the reader has no battery
	BatteryStatusNone BatteryStatus = 0
	// BatteryStatusFull means the battery is full
	BatteryStatusFull BatteryStatus = 0xFE
	// BatteryStatusUSBPlugged means the reader runs from USB power
	BatteryStatusUSBPlugged BatteryStatus = 0xFF
)

// String returns the description of the battery status.
// Every code other than the three named ones means the battery is low.
func (b BatteryStatus) String() string {
	switch b {
	case BatteryStatusNone:
		return "No Battery"
	case BatteryStatusFull:
		return "Full"
	case BatteryStatusUSBPlugged:
		return "USB Plugged"
	default:
		return "Low"
	}
}

// IsLow reports whether the code falls in the low battery range
func (b BatteryStatus) IsLow() bool {
	return b != BatteryStatusNone && b != BatteryStatusFull && b != BatteryStatusUSBPlugged
}
