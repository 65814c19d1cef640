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

// Fixed command buffers understood by ACR1311U and ACR1255U readers.
// The functions below return fresh copies so callers can't mutate the
// package state.
var (
	// masterKey is the default ACR1255U-J1 authentication key
	// ("ACR1255U-J1 Auth" in ASCII).
	masterKey = MustHex("41 43 52 31 32 35 35 55 2D 4A 31 20 41 75 74 68")

	// mifareReadCommand is the PC/SC pseudo-APDU that reads the card UID
	// (GET DATA, block 0 on MIFARE Classic 1K).
	mifareReadCommand = MustHex("FF CA 00 00 00")

	// emvSelectPSECommand selects "2PAY.SYS.DDF01", the contactless
	// payment system environment.
	emvSelectPSECommand = MustHex("00 A4 04 00 0E 32 50 41 59 2E 53 59 53 2E 44 44 46 30 31 00")

	// buzzerCommand sets the buzzer control escape (0x28) with duration 0x09.
	buzzerCommand = MustHex("E0 00 00 28 01 09")

	// initialCommandAPDU and initialEscapeCommand are the buffers a fresh
	// session starts with before an ATR has been classified.
	initialCommandAPDU   = MustHex("FF CA 01 00 00")
	initialEscapeCommand = MustHex("04 00")
)

// MifareClassic1KATR is the one ATR recognised as a MIFARE Classic 1K card.
const MifareClassic1KATR = "3B8F8001804F0CA000000306030001000000006A"

// MasterKey returns the default reader authentication key.
func MasterKey() []byte { return clone(masterKey) }

// MifareReadCommand returns the "read block 0" APDU sent to MIFARE cards.
func MifareReadCommand() []byte { return clone(mifareReadCommand) }

// EMVSelectPSECommand returns the EMV SELECT PSE APDU sent to payment cards.
func EMVSelectPSECommand() []byte { return clone(emvSelectPSECommand) }

// BuzzerCommand returns the escape command that sounds the reader buzzer.
func BuzzerCommand() []byte { return clone(buzzerCommand) }

// InitialCommandAPDU returns the command buffer a session holds before
// its card has been classified.
func InitialCommandAPDU() []byte { return clone(initialCommandAPDU) }

// InitialEscapeCommand returns the escape buffer a session holds before
// any escape command has been chosen.
func InitialEscapeCommand() []byte { return clone(initialEscapeCommand) }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
