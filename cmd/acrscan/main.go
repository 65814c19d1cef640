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
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/ZaparooProject/go-acrble"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newApp builds the command tree writing its output to out
func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "acrscan",
		Usage:  "Pair with ACR Bluetooth NFC readers and identify cards",
		Writer: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug output",
				Sources: cli.EnvVars("ACRBLE_DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "session-log",
				Usage:   "Write a timestamped session log",
				Sources: cli.EnvVars("ACRBLE_SESSION_LOG"),
			},
			&cli.StringFlag{
				Name:    "session-log-dir",
				Usage:   "Directory for the session log",
				Value:   ".",
				Sources: cli.EnvVars("ACRBLE_SESSION_LOG_DIR"),
			},
		},
		Before: before,
		After:  after,
		Commands: []*cli.Command{
			scanCommand(),
			simulateCommand(),
			classifyCommand(),
		},
	}
}

func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		acrble.SetDebugEnabled(true)
	}
	if cmd.Bool("session-log") {
		path, err := acrble.InitSessionLogIn(cmd.String("session-log-dir"))
		if err != nil {
			return ctx, fmt.Errorf("failed to open session log: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.Root().Writer, "Session log:", path)
	}
	return ctx, nil
}

func after(_ context.Context, _ *cli.Command) error {
	return acrble.CloseSessionLog()
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "List supported readers in range",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "duration",
				Usage:   "How long to scan",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("ACRBLE_SCAN_DURATION"),
			},
			&cli.StringSliceFlag{
				Name:  "ignore",
				Usage: "Peripheral ID to ignore (repeatable)",
			},
		},
		Action: runScan,
	}
}
