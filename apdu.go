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

// Status words used when inspecting a response
const (
	SWSuccess uint16 = 0x9000
)

// ResponseAPDU is a raw response returned by the card: optional data
// followed by the SW1 SW2 trailer. Interpreting the data is left to the
// caller.
type ResponseAPDU []byte

// Valid reports whether the response is long enough to carry a status word
func (r ResponseAPDU) Valid() bool {
	return len(r) >= 2
}

// Data returns the response body without the status word
func (r ResponseAPDU) Data() []byte {
	if !r.Valid() {
		return nil
	}
	return r[:len(r)-2]
}

// SW1 returns the first status byte, or 0 for a short response
func (r ResponseAPDU) SW1() byte {
	if !r.Valid() {
		return 0
	}
	return r[len(r)-2]
}

// SW2 returns the second status byte, or 0 for a short response
func (r ResponseAPDU) SW2() byte {
	if !r.Valid() {
		return 0
	}
	return r[len(r)-1]
}

// SW returns the combined status word
func (r ResponseAPDU) SW() uint16 {
	return uint16(r.SW1())<<8 | uint16(r.SW2())
}

// IsSuccess reports whether the card answered 90 00.
// A 61 XX trailer (more data available) also counts as success.
func (r ResponseAPDU) IsSuccess() bool {
	if !r.Valid() {
		return false
	}
	return r.SW() == SWSuccess || r.SW1() == 0x61
}

// String formats the response as "data SW=9000"
func (r ResponseAPDU) String() string {
	if !r.Valid() {
		return fmt.Sprintf("invalid response (%s)", FormatHexBytes(r))
	}
	return fmt.Sprintf("%s SW=%04X", FormatHexBytes(r.Data()), r.SW())
}
