// Copyright (c) 2025 Sumner Evans
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package dmverify

import (
	"fmt"
	"time"

	"go.mau.fi/util/jsontime"
	"golang.org/x/exp/slices"

	"go.mau.fi/dmverify/event"
	"go.mau.fi/dmverify/id"
)

// RequestState is the lifecycle state of a verification request.
type RequestState int

const (
	// RequestStateUnknown is the transient initial state used while the
	// request's fields are still being resolved, e.g. during an asynchronous
	// event fetch.
	RequestStateUnknown RequestState = iota
	RequestStatePending
	RequestStateExpired
	RequestStateCancelled
	RequestStateCancelledByMe
	RequestStateAccepted
)

func (state RequestState) String() string {
	switch state {
	case RequestStateUnknown:
		return "unknown"
	case RequestStatePending:
		return "pending"
	case RequestStateExpired:
		return "expired"
	case RequestStateCancelled:
		return "cancelled"
	case RequestStateCancelledByMe:
		return "cancelled_by_me"
	case RequestStateAccepted:
		return "accepted"
	default:
		return fmt.Sprintf("RequestState(%d)", state)
	}
}

// Terminal reports whether the state permits no further transitions.
func (state RequestState) Terminal() bool {
	switch state {
	case RequestStateExpired, RequestStateCancelled, RequestStateCancelledByMe, RequestStateAccepted:
		return true
	default:
		return false
	}
}

var validTransitions = map[RequestState][]RequestState{
	RequestStateUnknown: {RequestStatePending},
	RequestStatePending: {
		RequestStateExpired,
		RequestStateCancelled,
		RequestStateCancelledByMe,
		RequestStateAccepted,
	},
}

// Request is one verification handshake attempt. The manager stores requests
// by value and hands out copies, so a Request received from a listener or a
// query is a snapshot: mutating it has no effect on manager state.
type Request struct {
	// ID is the event ID of the request message.
	ID     id.EventID `json:"request_id"`
	RoomID id.RoomID  `json:"room_id"`

	// Sender is the user that originated the request, and SenderDevice the
	// device it was sent from.
	Sender       id.UserID   `json:"sender"`
	SenderDevice id.DeviceID `json:"sender_device"`
	// To is the intended responder. It may be empty on an inbound request
	// addressed to any device of a user, and is resolved before a response
	// is accepted.
	To id.UserID `json:"to,omitempty"`

	// IsLocallyOriginated is true if this client created the request.
	IsLocallyOriginated bool `json:"is_locally_originated"`

	// Methods are the verification methods offered by the originator.
	Methods []event.VerificationMethod `json:"methods,omitempty"`

	// CreatedAt is the origin timestamp of the request message.
	CreatedAt jsontime.UnixMilli `json:"created_at"`

	State RequestState `json:"state"`

	// CancelCode and CancelReason are set once the request reaches Cancelled
	// or CancelledByMe. An empty code means the request was not cancelled.
	CancelCode   event.CancelCode `json:"cancel_code,omitempty"`
	CancelReason string           `json:"cancel_reason,omitempty"`
}

// Age returns the time elapsed since the request's origin timestamp. It is
// recomputed on every call and never negative.
func (req *Request) Age() time.Duration {
	if req.CreatedAt.IsZero() {
		return 0
	}
	if age := time.Since(req.CreatedAt.Time); age > 0 {
		return age
	}
	return 0
}

// transition moves the request to the given state if the transition table
// allows it. Invalid transitions leave the state untouched and return
// ErrInvalidState, so a terminal request can never be resurrected.
func (req *Request) transition(to RequestState) error {
	if !slices.Contains(validTransitions[req.State], to) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, req.State, to)
	}
	req.State = to
	return nil
}

// snapshot returns an independent copy safe to hand outside the manager's
// lock.
func (req *Request) snapshot() *Request {
	clone := *req
	clone.Methods = slices.Clone(req.Methods)
	return &clone
}
