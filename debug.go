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
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// debugEnabled controls whether debug lines reach the console.
// Warnings and errors are always printed.
var debugEnabled atomic.Bool

// logger is the package logger. It logs every level and lets its hooks
// decide where each entry goes.
var logger = newLogger()

func init() {
	// Enable debug logging if DEBUG environment variable is set
	if os.Getenv("ACRBLE_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled.Store(true)
	}
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.DebugLevel)
	l.AddHook(&consoleHook{
		out:       os.Stderr,
		formatter: &logrus.TextFormatter{DisableTimestamp: true},
	})
	l.AddHook(&sessionHook{
		formatter: &logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		},
	})
	return l
}

// Logger returns the package logger so callers can attach fields or hooks.
func Logger() *logrus.Logger {
	return logger
}

// Debugf prints debug information.
// Always writes to session log file (if initialized) with timestamp.
// Only prints to console when debug mode is enabled.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Debugln prints debug information.
// Always writes to session log file (if initialized) with timestamp.
// Only prints to console when debug mode is enabled.
func Debugln(args ...any) {
	logger.Debugln(args...)
}

// SetDebugEnabled allows programmatic control of debug logging
// Useful for testing or application-controlled debug modes
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug lines are printed to the console
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// consoleHook prints warnings always and lower levels only in debug mode
type consoleHook struct {
	out       io.Writer
	formatter logrus.Formatter
}

func (*consoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *consoleHook) Fire(entry *logrus.Entry) error {
	if entry.Level > logrus.WarnLevel && !debugEnabled.Load() {
		return nil
	}
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}
