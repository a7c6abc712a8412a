// Copyright (c) 2025 Sumner Evans
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package dmverify

import (
	"context"

	"go.mau.fi/dmverify/event"
	"go.mau.fi/dmverify/id"
)

// Transport is the store-and-forward messaging collaborator that delivers
// verification events. Implementations must be safe for concurrent use; the
// manager only calls them outside its serialization lock and reacts to their
// completions. The manager never retries: retry and backoff policy belongs
// to the transport.
type Transport interface {
	// SendMessageEvent sends an event of the given type into the room and
	// returns the event ID assigned to it.
	SendMessageEvent(ctx context.Context, roomID id.RoomID, evtType event.Type, content any) (id.EventID, error)
	// GetEvent fetches a single event from the room's history.
	GetEvent(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error)
}

// Transaction performs the cryptographic comparison for the chosen method
// after a request has been accepted. Its construction and internals are
// owned by the TransactionFactory.
type Transaction interface {
	// RequestID is the ID of the request the transaction belongs to.
	RequestID() id.EventID
	// Method is the verification method the transaction implements.
	Method() event.VerificationMethod
}

// TransactionFactory constructs verification transactions for accepted
// requests. Implementations must be safe for concurrent use.
type TransactionFactory interface {
	NewTransaction(ctx context.Context, req *Request, method event.VerificationMethod) (Transaction, error)
}
