//go:build deadlock

// Package syncutil holds the mutex types shared by the coordinator, the
// discovered-reader list, the session log and the test doubles. This file
// is used with -tags=deadlock and reports potential deadlocks.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex reports lock-order inversions and long waits.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex reports lock-order inversions and long waits.
type RWMutex struct {
	deadlock.RWMutex
}
