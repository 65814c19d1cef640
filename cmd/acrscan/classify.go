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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ZaparooProject/go-acrble"
)

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Show the card type and command for an ATR",
		ArgsUsage: "ATR_HEX",
		Action:    runClassify,
	}
}

func runClassify(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return errors.New("an ATR in hex is required")
	}

	atr, err := acrble.HexToBytes(strings.Join(cmd.Args().Slice(), " "))
	if err != nil {
		return fmt.Errorf("failed to parse ATR: %w", err)
	}
	if len(atr) == 0 {
		return fmt.Errorf("%w: empty ATR", acrble.ErrInvalidParameter)
	}

	card, command := acrble.ClassifyATR(atr)
	out := cmd.Root().Writer
	_, _ = fmt.Fprintf(out, "ATR:     %s\n", acrble.FormatHexBytes(atr))
	_, _ = fmt.Fprintf(out, "Card:    %s\n", card)
	_, _ = fmt.Fprintf(out, "Command: %s\n", acrble.FormatHexBytes(command))
	return nil
}
