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

package detection

import "strings"

// IsIgnored checks if a peripheral ID is in the ignore list.
// BLE addresses and platform UUIDs are compared case-insensitively.
func IsIgnored(id string, ignoreIDs []string) bool {
	if id == "" || len(ignoreIDs) == 0 {
		return false
	}

	normalizedID := NormalizeID(id)
	for _, ignored := range ignoreIDs {
		if ignored == "" {
			continue
		}
		if normalizedID == NormalizeID(ignored) {
			return true
		}
	}
	return false
}

// NormalizeID normalizes a peripheral identifier for comparison.
// "aa-bb-cc-dd-ee-ff" and "AA:BB:CC:DD:EE:FF" normalize to the same value.
func NormalizeID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if looksLikeAddress(id) {
		id = strings.ReplaceAll(id, "-", ":")
	}
	return id
}

// looksLikeAddress reports whether id is a 48-bit address written with
// ':' or '-' separators.
func looksLikeAddress(id string) bool {
	if len(id) != 17 {
		return false
	}
	for i, r := range id {
		if i%3 == 2 {
			if r != ':' && r != '-' {
				return false
			}
			continue
		}
		if !isHexRune(r) {
			return false
		}
	}
	return true
}

// isHexRune checks if r is a hexadecimal digit.
func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}
