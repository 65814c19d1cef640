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

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// HexToBytes converts a human-readable hex string such as
// "FF CA 00 00 00" into raw bytes. Whitespace between digits is ignored
// and case does not matter.
func HexToBytes(s string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if len(compact)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of digits in %q", ErrInvalidHex, s)
	}

	b, err := hex.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHex, err)
	}
	return b, nil
}

// MustHex is like HexToBytes but panics on malformed input.
// Only use it for package-level constants.
func MustHex(s string) []byte {
	b, err := HexToBytes(s)
	if err != nil {
		panic(err)
	}
	return b
}

// BytesToHex returns the uppercase hex form of b with no separators,
// e.g. "3B8F80". This is the canonical form used for ATR comparison.
func BytesToHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// FormatHexBytes formats a byte slice as space-separated hex values for logs
func FormatHexBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	if len(data) > 32 {
		parts := make([]string, 32)
		for i := range 32 {
			parts[i] = fmt.Sprintf("%02X", data[i])
		}
		return strings.Join(parts, " ") + fmt.Sprintf(" ... (%d bytes total)", len(data))
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
