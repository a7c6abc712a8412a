// Copyright (c) 2025 Sumner Evans
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package dmverify

import (
	"sync"
	"time"

	"go.mau.fi/dmverify/id"
)

// timeoutEngine tracks one deadline timer per request ID. Firing invokes the
// callback on a timer goroutine; the callback re-enters the manager's lock
// and re-checks the request state there, so a timer that loses a race with
// another transition is harmless. Cancel must still be called on every
// transition out of Pending so that no stray goroutine fires afterwards.
type timeoutEngine struct {
	lock   sync.Mutex
	timers map[id.EventID]*time.Timer
	fire   func(requestID id.EventID)
}

func newTimeoutEngine(fire func(requestID id.EventID)) *timeoutEngine {
	return &timeoutEngine{
		timers: map[id.EventID]*time.Timer{},
		fire:   fire,
	}
}

// Schedule arms the timer for the given request, replacing any existing one.
// A deadline in the past fires immediately.
func (te *timeoutEngine) Schedule(requestID id.EventID, d time.Duration) {
	if d < 0 {
		d = 0
	}
	te.lock.Lock()
	defer te.lock.Unlock()
	if timer, ok := te.timers[requestID]; ok {
		timer.Stop()
	}
	te.timers[requestID] = time.AfterFunc(d, func() {
		te.lock.Lock()
		delete(te.timers, requestID)
		te.lock.Unlock()
		te.fire(requestID)
	})
}

// Cancel stops and forgets the timer for the given request. Cancelling a
// request with no scheduled timer is a no-op.
func (te *timeoutEngine) Cancel(requestID id.EventID) {
	te.lock.Lock()
	defer te.lock.Unlock()
	if timer, ok := te.timers[requestID]; ok {
		timer.Stop()
		delete(te.timers, requestID)
	}
}

// Stop cancels all scheduled timers.
func (te *timeoutEngine) Stop() {
	te.lock.Lock()
	defer te.lock.Unlock()
	for requestID, timer := range te.timers {
		timer.Stop()
		delete(te.timers, requestID)
	}
}
