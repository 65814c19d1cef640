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

//go:build linux || darwin

package ble

import (
	"errors"

	"golang.org/x/sys/unix"
)

var (
	// ErrAdapterUnavailable means no usable Bluetooth adapter was found
	ErrAdapterUnavailable = errors.New("bluetooth adapter unavailable")
	// ErrPermissionDenied means the process may not open the adapter
	ErrPermissionDenied = errors.New("bluetooth permission denied")
)

// classifyError tags adapter errors with ErrAdapterUnavailable or
// ErrPermissionDenied when the errno says so. Other errors pass through.
func classifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		return errors.Join(ErrPermissionDenied, err)
	case errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO),
		errors.Is(err, unix.EIO), errors.Is(err, unix.EHOSTDOWN),
		errors.Is(err, unix.ENOENT):
		return errors.Join(ErrAdapterUnavailable, err)
	}
	return err
}
