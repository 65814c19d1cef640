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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/detection"
	"github.com/ZaparooProject/go-acrble/handshake"
	"github.com/ZaparooProject/go-acrble/transport/ble"
)

// noReaderSDK stands in for the vendor reader SDK, which scanning never
// reaches.
type noReaderSDK struct{}

func (noReaderSDK) DetectReader(string) error {
	return fmt.Errorf("%w: reader SDK", acrble.ErrNotImplemented)
}

func runScan(ctx context.Context, cmd *cli.Command) error {
	central, err := ble.New()
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	p := newPrinter(out, false)
	opts := detection.DefaultOptions()
	opts.IgnoreIDs = cmd.StringSlice("ignore")

	coord, err := handshake.NewCoordinator(central, noReaderSDK{}, p, handshake.WithFilter(&opts))
	if err != nil {
		return err
	}
	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = coord.Stop(stopCtx)
	}()

	// Scanning starts once the adapter reports powered on
	if err := central.Open(coord); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Scanning for %s...\n", cmd.Duration("duration"))

	select {
	case <-time.After(cmd.Duration("duration")):
	case <-ctx.Done():
	}

	readers := coord.Discovered()
	_, _ = fmt.Fprintf(out, "%d reader(s) found\n", len(readers))
	for _, r := range readers {
		_, _ = fmt.Fprintf(out, "  %s\n", r)
	}
	return nil
}
