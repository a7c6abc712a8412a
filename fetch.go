// Copyright (c) 2025 Sumner Evans
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package dmverify

import (
	"context"
	"sync"
)

// RequestFetch is the handle for an in-flight request resolution started by
// [RequestManager.VerificationByDMRequestFromEventID]. The fetch runs in the
// background; Wait blocks for the result and Cancel aborts the fetch.
type RequestFetch struct {
	cancelFetch context.CancelFunc
	abort       func()

	done     chan struct{}
	complete sync.Once
	req      *Request
	err      error
}

func newRequestFetch(cancelFetch context.CancelFunc, abort func()) *RequestFetch {
	return &RequestFetch{
		cancelFetch: cancelFetch,
		abort:       abort,
		done:        make(chan struct{}),
	}
}

// Wait blocks until the fetch completes, is cancelled, or the given context
// expires, and returns the resolved request snapshot.
func (rf *RequestFetch) Wait(ctx context.Context) (*Request, error) {
	select {
	case <-rf.done:
		return rf.req, rf.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel aborts the fetch. Calling it after the fetch has completed is a
// no-op; calling it before completion makes Wait return ErrFetchCancelled.
// A fetch cancelled before its event has been ingested leaves no trace in
// the registry; cancelling in the narrow window after ingestion only
// suppresses delivery, the already registered request stays live. Cancel is
// safe to call multiple times.
func (rf *RequestFetch) Cancel() {
	rf.complete.Do(func() {
		rf.err = ErrFetchCancelled
		rf.cancelFetch()
		rf.abort()
		close(rf.done)
	})
}

// resolve delivers the fetch result unless the fetch was already cancelled.
func (rf *RequestFetch) resolve(req *Request, err error) {
	rf.complete.Do(func() {
		rf.req = req
		rf.err = err
		rf.cancelFetch()
		close(rf.done)
	})
}
