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

// Package detection filters BLE advertisements down to supported card
// readers and keeps the deduplicated list of readers seen while scanning.
package detection

import (
	"fmt"
	"unicode/utf8"

	"github.com/ZaparooProject/go-acrble"
)

// Label is the model prefix of a supported reader
type Label string

const (
	// LabelACR1311U is the ACR1311U Bluetooth NFC reader
	LabelACR1311U Label = "ACR1311U"
	// LabelACR1255U is the ACR1255U-J1 Bluetooth NFC reader
	LabelACR1255U Label = "ACR1255U"
)

// labelLength is the number of leading name characters compared
const labelLength = 8

// DefaultAllowList returns the supported reader models
func DefaultAllowList() []Label {
	return []Label{LabelACR1311U, LabelACR1255U}
}

// Classify decides whether an advertised peripheral name belongs to a
// supported reader. Names shorter than eight characters never match;
// otherwise the first eight characters must equal an allowed label.
func Classify(name string) (Label, bool) {
	return classify(name, DefaultAllowList())
}

func classify(name string, allow []Label) (Label, bool) {
	prefix, ok := namePrefix(name)
	if !ok {
		return "", false
	}
	for _, label := range allow {
		if string(label) == prefix {
			return label, true
		}
	}
	return "", false
}

// namePrefix returns the first eight characters of name
func namePrefix(name string) (string, bool) {
	if utf8.RuneCountInString(name) < labelLength {
		return "", false
	}
	n := 0
	for i := range name {
		if n == labelLength {
			return name[:i], true
		}
		n++
	}
	return name, true
}

// Candidate is a peripheral accepted by the filter
type Candidate struct {
	Peripheral acrble.Peripheral
	Label      Label
}

// String returns a human-readable representation of the candidate
func (c Candidate) String() string {
	return fmt.Sprintf("%s %s", c.Label, c.Peripheral)
}

// Options configures the filter behaviour
type Options struct {
	// Reader models to accept (empty = DefaultAllowList)
	AllowList []Label
	// Peripheral IDs to explicitly ignore (e.g. a reader paired elsewhere)
	IgnoreIDs []string
}

// DefaultOptions returns the default filter options
func DefaultOptions() Options {
	return Options{
		AllowList: DefaultAllowList(),
	}
}

// Filter decides which discovered peripherals are supported readers
type Filter struct {
	opts Options
}

// NewFilter creates a filter. A nil opts uses DefaultOptions.
func NewFilter(opts *Options) *Filter {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
		if len(o.AllowList) == 0 {
			o.AllowList = DefaultAllowList()
		}
	}
	return &Filter{opts: o}
}

// Accept returns the candidate for p if it is a supported, non-ignored reader
func (f *Filter) Accept(p acrble.Peripheral) (Candidate, bool) {
	if IsIgnored(p.ID, f.opts.IgnoreIDs) {
		return Candidate{}, false
	}
	label, ok := classify(p.Name, f.opts.AllowList)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{Peripheral: p, Label: label}, true
}
