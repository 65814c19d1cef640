//go:build !deadlock

// Package syncutil holds the mutex types shared by the coordinator, the
// discovered-reader list, the session log and the test doubles. Regular
// builds use the sync package directly; -tags=deadlock swaps in
// github.com/sasha-s/go-deadlock so lock-order bugs between the BLE
// callbacks and the coordinator goroutine show up in tests.
package syncutil

import "sync"

// Mutex is a sync.Mutex unless built with -tags=deadlock.
//
//nolint:gocritic // Embedding exposes Lock and Unlock unchanged
type Mutex struct {
	sync.Mutex
}

// RWMutex is a sync.RWMutex unless built with -tags=deadlock.
//
//nolint:gocritic // Embedding exposes the RWMutex methods unchanged
type RWMutex struct {
	sync.RWMutex
}
