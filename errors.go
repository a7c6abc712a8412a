// Copyright (c) 2025 Sumner Evans
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package dmverify

import "errors"

var (
	// ErrUnknownRequest is returned when an operation references a request ID
	// that the manager has never seen or has already evicted.
	ErrUnknownRequest = errors.New("unknown request ID")
	// ErrInvalidState is returned when an operation is attempted on a request
	// that is not in the state the operation requires.
	ErrInvalidState = errors.New("request is not in the required state")
	// ErrUnsupportedMethod is returned when accepting a request with a method
	// that the request did not offer.
	ErrUnsupportedMethod = errors.New("method was not offered by the request")
	// ErrMalformedEvent is returned by explicit calls that resolve to an
	// event missing required verification fields. Malformed events observed
	// passively are logged and dropped instead.
	ErrMalformedEvent = errors.New("malformed verification event")
	// ErrNoMethods is returned when creating a request without offering any
	// verification methods.
	ErrNoMethods = errors.New("no verification methods offered")
	// ErrFetchCancelled is returned by RequestFetch.Wait after the fetch was
	// cancelled.
	ErrFetchCancelled = errors.New("event fetch was cancelled")
)
