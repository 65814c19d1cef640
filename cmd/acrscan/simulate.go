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

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/ZaparooProject/go-acrble"
	"github.com/ZaparooProject/go-acrble/handshake"
	testutil "github.com/ZaparooProject/go-acrble/internal/testing"
)

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run the full handshake against a simulated reader",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "atr",
				Usage: "ATR of the simulated card in hex",
				Value: acrble.MifareClassic1KATR,
			},
			&cli.StringFlag{
				Name:  "fail",
				Usage: "Stage that reports a failure (connect, detection, attach, authentication, atr, response, battery, escape)",
			},
			&cli.BoolFlag{
				Name:  "buzzer",
				Usage: "Sound the buzzer once the card has answered",
			},
			&cli.UintFlag{
				Name:  "battery",
				Usage: "Battery code reported after attach (0 none, 254 full, 255 USB)",
				Value: 0xFE,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print every state change",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up after this long",
				Value: 5 * time.Second,
			},
		},
		Action: runSimulate,
	}
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	atr, err := acrble.HexToBytes(cmd.String("atr"))
	if err != nil {
		return fmt.Errorf("failed to parse ATR: %w", err)
	}

	var card *testutil.VirtualCard
	if bytes.Equal(atr, acrble.MustHex(acrble.MifareClassic1KATR)) {
		card = testutil.NewVirtualMIFARE1K(nil)
	} else {
		card = testutil.NewVirtualCreditCard(atr)
	}

	failStage, failing := acrble.Stage(0), false
	if name := cmd.String("fail"); name != "" {
		if failStage, err = acrble.ParseStage(name); err != nil {
			return err
		}
		failing = true
	}

	out := cmd.Root().Writer
	p := newPrinter(out, cmd.Bool("verbose"))
	sim, err := testutil.NewSimulation(testutil.TestPeripherals(), testutil.DefaultJitterConfig(), p)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	sim.Reader.InsertCard(card)
	sim.Reader.SetBattery(acrble.BatteryStatus(cmd.Uint("battery")))
	if failing {
		sim.Reader.Fail(failStage, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		_ = sim.Close(stopCtx)
	}()
	if err := sim.Start(ctx); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}

	// Adapter power-on starts scanning
	sim.Reader.PowerOn()

	var peripheralID string
	select {
	case peripheralID = <-p.found:
	case <-ctx.Done():
		return fmt.Errorf("no reader found: %w", ctx.Err())
	}
	if err := sim.Coordinator.SelectPeripheral(ctx, peripheralID); err != nil {
		return fmt.Errorf("failed to select %s: %w", peripheralID, err)
	}

	var result outcome
	select {
	case result = <-p.done:
	case <-ctx.Done():
		return fmt.Errorf("handshake did not finish: %w", ctx.Err())
	}
	if result.err != nil {
		return result.err
	}

	if cmd.Bool("buzzer") {
		if err := sim.Coordinator.SoundBuzzer(ctx); err != nil && !errors.Is(err, acrble.ErrEscapeCommand) {
			return fmt.Errorf("failed to sound buzzer: %w", err)
		}
		_, _ = fmt.Fprintln(out, "Buzzer: sent")
	}

	if sim.Coordinator.State() != handshake.StateResponseReceived {
		return fmt.Errorf("%w: finished in state %s", acrble.ErrUnexpectedEvent, sim.Coordinator.State())
	}
	return nil
}
