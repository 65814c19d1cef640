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
	"github.com/ZaparooProject/go-acrble"
)

// VirtualCard represents a simulated card in the reader's field
type VirtualCard struct {
	responses map[string][]byte
	Type      string
	ATR       []byte
}

// NewVirtualMIFARE1K creates a MIFARE Classic 1K card that answers the
// UID read with uid
func NewVirtualMIFARE1K(uid []byte) *VirtualCard {
	if uid == nil {
		uid = TestMIFARE1KUID
	}
	card := &VirtualCard{
		Type:      "MIFARE1K",
		ATR:       acrble.MustHex(acrble.MifareClassic1KATR),
		responses: make(map[string][]byte),
	}
	card.SetResponse(acrble.MifareReadCommand(), BuildSuccessResponse(uid))
	return card
}

// NewVirtualCreditCard creates a payment card that answers SELECT PSE
func NewVirtualCreditCard(atr []byte) *VirtualCard {
	if atr == nil {
		atr = TestCreditCardATR
	}
	card := &VirtualCard{
		Type:      "CreditCard",
		ATR:       append([]byte(nil), atr...),
		responses: make(map[string][]byte),
	}
	card.SetResponse(acrble.EMVSelectPSECommand(), BuildPSEResponse())
	return card
}

// NewVirtualCard creates a card with the given ATR and no canned responses
func NewVirtualCard(atr []byte) *VirtualCard {
	return &VirtualCard{
		Type:      "Generic",
		ATR:       append([]byte(nil), atr...),
		responses: make(map[string][]byte),
	}
}

// SetResponse sets the reply to command
func (c *VirtualCard) SetResponse(command, response []byte) {
	c.responses[acrble.BytesToHex(command)] = append([]byte(nil), response...)
}

// Respond returns the reply to command, 6A 82 if unknown
func (c *VirtualCard) Respond(command []byte) []byte {
	if response, ok := c.responses[acrble.BytesToHex(command)]; ok {
		return append([]byte(nil), response...)
	}
	return append([]byte(nil), NoCardResponse...)
}
