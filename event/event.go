// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package event contains the conversation event types exchanged during an
// interactive verification handshake over direct messages.
package event

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"go.mau.fi/util/jsontime"

	"go.mau.fi/dmverify/id"
)

// Type is the string type of a conversation event.
type Type string

// Event types used by the verification-by-DM flow. The initial request is a
// plain room message with a verification msgtype so that clients without
// verification support can render the fallback body.
const (
	EventMessage             Type = "m.room.message"
	InRoomVerificationReady  Type = "m.key.verification.ready"
	InRoomVerificationCancel Type = "m.key.verification.cancel"
)

// MsgVerificationRequest is the msgtype of the request message.
const MsgVerificationRequest = "m.key.verification.request"

type RelationType string

const (
	RelReference RelationType = "m.reference"
)

// RelatesTo links a response event back to the request message it answers.
type RelatesTo struct {
	Type    RelationType `json:"rel_type,omitempty"`
	EventID id.EventID   `json:"event_id,omitempty"`
}

// Event is the envelope for a decrypted conversation event as delivered by
// the transport's sync stream. Content is kept raw and parsed on demand.
type Event struct {
	ID        id.EventID         `json:"event_id"`
	RoomID    id.RoomID          `json:"room_id,omitempty"`
	Sender    id.UserID          `json:"sender"`
	Type      Type               `json:"type"`
	Timestamp jsontime.UnixMilli `json:"origin_server_ts"`
	Content   json.RawMessage    `json:"content"`
}

// MessageType returns the msgtype field of the raw content, or an empty
// string if there isn't one.
func (evt *Event) MessageType() string {
	return gjson.GetBytes(evt.Content, "msgtype").Str
}

// RelatesToEventID returns the event ID that this event references via
// m.relates_to, or an empty ID if the relation is missing.
func (evt *Event) RelatesToEventID() id.EventID {
	return id.EventID(gjson.GetBytes(evt.Content, `m\.relates_to.event_id`).Str)
}
