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

import "github.com/ZaparooProject/go-acrble"

// Test peripheral identities
const (
	TestACR1255UID   = "5C:F8:21:10:AA:01"
	TestACR1255UName = "ACR1255U-J1-123456"
	TestACR1311UID   = "5C:F8:21:10:AA:02"
	TestACR1311UName = "ACR1311U-N2"
	TestOtherID      = "11:22:33:44:55:66"
	TestOtherName    = "Heart Rate Monitor"
)

// TestMIFARE1KUID is the UID returned by the virtual MIFARE card
var TestMIFARE1KUID = []byte{0x04, 0xA2, 0x2B, 0x3C}

// TestCreditCardATR is a typical contactless payment card ATR
var TestCreditCardATR = acrble.MustHex("3B 8E 80 01 80 31 80 66 B1 84 0C 01 6E 01 83 00 90 00 1C")

// BuildSuccessResponse appends SW 90 00 to data
func BuildSuccessResponse(data []byte) []byte {
	response := make([]byte, 0, len(data)+2)
	response = append(response, data...)
	response = append(response, 0x90, 0x00)
	return response
}

// BuildErrorResponse creates a status-only response
func BuildErrorResponse(sw1, sw2 byte) []byte {
	return []byte{sw1, sw2}
}

// BuildPSEResponse creates the FCI a payment card returns for SELECT PSE:
// the DF name "2PAY.SYS.DDF01" inside an FCI template.
func BuildPSEResponse() []byte {
	dfName := []byte("2PAY.SYS.DDF01")
	fci := make([]byte, 0, 4+len(dfName))
	fci = append(fci, 0x6F, byte(2+len(dfName)), 0x84, byte(len(dfName)))
	fci = append(fci, dfName...)
	return BuildSuccessResponse(fci)
}

// BuildEscapeResponse creates the reader's reply to an escape command
func BuildEscapeResponse(command []byte) []byte {
	if len(command) == 0 {
		return []byte{0xE1, 0x00}
	}
	response := make([]byte, len(command))
	copy(response, command)
	response[0] = 0xE1
	return response
}

// NoCardResponse is returned for commands the virtual card doesn't know
var NoCardResponse = BuildErrorResponse(0x6A, 0x82)

// TestPeripherals returns a scan result with two readers and one other device
func TestPeripherals() []acrble.Peripheral {
	return []acrble.Peripheral{
		{ID: TestACR1255UID, Name: TestACR1255UName, RSSI: -48},
		{ID: TestOtherID, Name: TestOtherName, RSSI: -70},
		{ID: TestACR1311UID, Name: TestACR1311UName, RSSI: -61},
	}
}
