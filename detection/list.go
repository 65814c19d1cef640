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
	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/internal/syncutil"
)

// Admit appends c to list unless an entry with the same peripheral ID is
// already present. Only the ID is compared; name and RSSI are ignored.
// Admitting the same ID again returns list unchanged and false.
func Admit(list []Candidate, c Candidate) ([]Candidate, bool) {
	if indexOf(list, c.Peripheral.ID) >= 0 {
		return list, false
	}
	return append(list, c), true
}

func indexOf(list []Candidate, id string) int {
	id = NormalizeID(id)
	for i, entry := range list {
		if NormalizeID(entry.Peripheral.ID) == id {
			return i
		}
	}
	return -1
}

// DiscoveredList is the ordered set of readers seen during scanning.
// Entries keep discovery order and are never removed.
type DiscoveredList struct {
	entries []Candidate
	mu      syncutil.RWMutex
}

// NewDiscoveredList creates an empty list
func NewDiscoveredList() *DiscoveredList {
	return &DiscoveredList{}
}

// Admit adds c if its peripheral has not been seen before and reports
// whether it was added.
func (l *DiscoveredList) Admit(c Candidate) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var added bool
	l.entries, added = Admit(l.entries, c)
	return added
}

// Lookup returns the entry with the given peripheral ID
func (l *DiscoveredList) Lookup(id string) (Candidate, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := indexOf(l.entries, id); i >= 0 {
		return l.entries[i], true
	}
	return Candidate{}, false
}

// Entries returns a copy of the list in discovery order
func (l *DiscoveredList) Entries() []Candidate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]Candidate, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Len returns the number of admitted readers
func (l *DiscoveredList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Peripherals returns the admitted peripherals in discovery order
func (l *DiscoveredList) Peripherals() []acrble.Peripheral {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]acrble.Peripheral, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Peripheral
	}
	return out
}
