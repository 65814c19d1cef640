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

import (
	"testing"
)

func TestIsIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		id        string
		ignoreIDs []string
		expected  bool
	}{
		{name: "empty ignore list", id: "5C:F8:21:10:AA:01", ignoreIDs: nil, expected: false},
		{name: "empty id", id: "", ignoreIDs: []string{""}, expected: false},
		{name: "exact match", id: "5C:F8:21:10:AA:01", ignoreIDs: []string{"5C:F8:21:10:AA:01"}, expected: true},
		{name: "lowercase match", id: "5C:F8:21:10:AA:01", ignoreIDs: []string{"5c:f8:21:10:aa:01"}, expected: true},
		{name: "dash separated match", id: "5C:F8:21:10:AA:01", ignoreIDs: []string{"5c-f8-21-10-aa-01"}, expected: true},
		{name: "surrounding spaces", id: " 5C:F8:21:10:AA:01 ", ignoreIDs: []string{"5C:F8:21:10:AA:01"}, expected: true},
		{name: "different address", id: "5C:F8:21:10:AA:02", ignoreIDs: []string{"5C:F8:21:10:AA:01"}, expected: false},
		{name: "skips empty entries", id: "5C:F8:21:10:AA:01", ignoreIDs: []string{"", "5C:F8:21:10:AA:01"}, expected: true},
		{
			name:      "platform UUID",
			id:        "0BA8D6C1-3E4A-4F5B-9C2D-7E8F9A0B1C2D",
			ignoreIDs: []string{"0ba8d6c1-3e4a-4f5b-9c2d-7e8f9a0b1c2d"},
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := IsIgnored(tt.id, tt.ignoreIDs)
			if result != tt.expected {
				t.Errorf("IsIgnored(%q, %v) = %v, want %v", tt.id, tt.ignoreIDs, result, tt.expected)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"aa-bb-cc-dd-ee-ff", "AA:BB:CC:DD:EE:FF"},
		{"AA:BB:CC:DD:EE:FF", "AA:BB:CC:DD:EE:FF"},
		{"aa:bb-cc:dd-ee:ff", "AA:BB:CC:DD:EE:FF"},
		// Not an address, dashes are kept
		{"0ba8d6c1-3e4a-4f5b-9c2d-7e8f9a0b1c2d", "0BA8D6C1-3E4A-4F5B-9C2D-7E8F9A0B1C2D"},
		{"gg-bb-cc-dd-ee-ff", "GG-BB-CC-DD-EE-FF"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeID(tt.input); got != tt.expected {
				t.Errorf("NormalizeID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
