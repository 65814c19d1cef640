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

// CardType identifies the kind of card sitting on the reader
type CardType int

const (
	// CardTypeNone means no ATR has been classified yet
	CardTypeNone CardType = iota
	// CardTypeMifare1K is a MIFARE Classic 1K card
	CardTypeMifare1K
	// CardTypeCreditCard is any card assumed to speak EMV
	CardTypeCreditCard
)

// String returns the card type name
func (c CardType) String() string {
	switch c {
	case CardTypeNone:
		return "None"
	case CardTypeMifare1K:
		return "MIFARE Classic 1K"
	case CardTypeCreditCard:
		return "Credit Card"
	}
	return "Unknown"
}

// CommandFor returns the APDU sent to a card of type c once it has been
// classified. CardTypeNone has no command.
func CommandFor(c CardType) []byte {
	switch c {
	case CardTypeMifare1K:
		return MifareReadCommand()
	case CardTypeCreditCard:
		return EMVSelectPSECommand()
	case CardTypeNone:
		return nil
	}
	return nil
}

// ATRClassifier decides the card type for an ATR and the command APDU to
// transmit next.
type ATRClassifier interface {
	Classify(atr []byte) (CardType, []byte)
}

// ATRClassifierFunc adapts a plain function to ATRClassifier
type ATRClassifierFunc func(atr []byte) (CardType, []byte)

// Classify calls f(atr)
func (f ATRClassifierFunc) Classify(atr []byte) (CardType, []byte) {
	return f(atr)
}

// ATRTable classifies cards by exact ATR match. ATRs are keyed by their
// uppercase hex form without separators. Anything not in Known falls back
// to Default.
type ATRTable struct {
	Known   map[string]CardType
	Default CardType
}

// DefaultATRTable recognises the single MIFARE Classic 1K ATR and treats
// every other card as EMV capable.
func DefaultATRTable() *ATRTable {
	return &ATRTable{
		Known: map[string]CardType{
			MifareClassic1KATR: CardTypeMifare1K,
		},
		Default: CardTypeCreditCard,
	}
}

// Classify implements ATRClassifier
func (t *ATRTable) Classify(atr []byte) (CardType, []byte) {
	card := t.Default
	if known, ok := t.Known[BytesToHex(atr)]; ok {
		card = known
	}
	return card, CommandFor(card)
}

// ClassifyATR runs the default classification policy.
func ClassifyATR(atr []byte) (CardType, []byte) {
	return DefaultATRTable().Classify(atr)
}
