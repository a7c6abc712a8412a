// Copyright (c) 2025 Sumner Evans
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package event

import (
	"encoding/json"
	"errors"

	"go.mau.fi/util/jsontime"

	"go.mau.fi/dmverify/id"
)

var (
	ErrNotVerificationRequest   = errors.New("event is not a verification request message")
	ErrNoVerificationFromDevice = errors.New("from_device field is empty")
	ErrNoVerificationMethods    = errors.New("verification method list is empty")
)

// VerificationMethod is an identifier for a method of interactive
// verification offered in a request.
type VerificationMethod string

const (
	VerificationMethodSAS VerificationMethod = "m.sas.v1"

	VerificationMethodReciprocate VerificationMethod = "m.reciprocate.v1"
	VerificationMethodQRCodeShow  VerificationMethod = "m.qr_code.show.v1"
	VerificationMethodQRCodeScan  VerificationMethod = "m.qr_code.scan.v1"
)

// CancelCode is a machine-readable reason for cancelling a verification
// request. The table of known codes is open: codes from newer clients that
// are not listed here are still carried and displayed through Reason.
type CancelCode string

const (
	CancelCodeUser               CancelCode = "m.user"
	CancelCodeTimeout            CancelCode = "m.timeout"
	CancelCodeUnknownTransaction CancelCode = "m.unknown_transaction"
	CancelCodeUnknownMethod      CancelCode = "m.unknown_method"
	CancelCodeUnexpectedMessage  CancelCode = "m.unexpected_message"
	CancelCodeKeyMismatch        CancelCode = "m.key_mismatch"
	CancelCodeUserMismatch       CancelCode = "m.user_mismatch"
	CancelCodeInvalidMessage     CancelCode = "m.invalid_message"
	CancelCodeAccepted           CancelCode = "m.accepted"
)

// Reason returns the human-readable fallback string for the cancel code.
func (code CancelCode) Reason() string {
	switch code {
	case CancelCodeUser:
		return "The user cancelled the verification."
	case CancelCodeTimeout:
		return "The verification process timed out."
	case CancelCodeUnknownTransaction:
		return "The device does not know about the given verification request."
	case CancelCodeUnknownMethod:
		return "The device does not know how to handle the requested method."
	case CancelCodeUnexpectedMessage:
		return "The device received an unexpected message."
	case CancelCodeKeyMismatch:
		return "The key was not verified."
	case CancelCodeUserMismatch:
		return "The expected user did not match the user verified."
	case CancelCodeInvalidMessage:
		return "The device received an invalid message."
	case CancelCodeAccepted:
		return "The verification request was accepted by a different device."
	default:
		return "The verification was cancelled."
	}
}

// VerificationRequestEventContent is the content of the m.room.message event
// that opens a verification request in a direct message. Body is the
// fallback text shown by clients that cannot render interactive
// verification.
type VerificationRequestEventContent struct {
	MsgType    string               `json:"msgtype"`
	Body       string               `json:"body"`
	FromDevice id.DeviceID          `json:"from_device"`
	Methods    []VerificationMethod `json:"methods"`
	To         id.UserID            `json:"to,omitempty"`
	Timestamp  jsontime.UnixMilli   `json:"timestamp,omitempty"`
}

// VerificationReadyEventContent is the content of the ready event sent by
// the device that accepts a verification request. Method is the single
// method chosen out of the ones the request offered.
type VerificationReadyEventContent struct {
	FromDevice id.DeviceID        `json:"from_device"`
	Method     VerificationMethod `json:"method"`
	RelatesTo  *RelatesTo         `json:"m.relates_to,omitempty"`
}

// VerificationCancelEventContent is the content of the cancellation event.
type VerificationCancelEventContent struct {
	Code      CancelCode `json:"code"`
	Reason    string     `json:"reason,omitempty"`
	RelatesTo *RelatesTo `json:"m.relates_to,omitempty"`
}

// ParseRequestEvent parses a DM message event into a verification request
// payload. It fails if the event is not a verification request message or is
// missing required fields.
func ParseRequestEvent(evt *Event) (*VerificationRequestEventContent, error) {
	if evt.Type != EventMessage || evt.MessageType() != MsgVerificationRequest {
		return nil, ErrNotVerificationRequest
	}
	var content VerificationRequestEventContent
	if err := json.Unmarshal(evt.Content, &content); err != nil {
		return nil, err
	}
	if content.FromDevice == "" {
		return nil, ErrNoVerificationFromDevice
	}
	if len(content.Methods) == 0 {
		return nil, ErrNoVerificationMethods
	}
	if content.Timestamp.IsZero() {
		content.Timestamp = evt.Timestamp
	}
	return &content, nil
}
