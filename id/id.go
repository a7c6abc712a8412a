// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package id contains the identifier types used by verification events and
// the request manager.
package id

// A UserID is a string starting with @ that references a specific user.
type UserID string

// A RoomID is a string starting with ! that references a specific room.
type RoomID string

// An EventID is a string starting with $ that references a specific event.
// Verification requests sent by direct message are identified by the event ID
// of the request message.
type EventID string

// A DeviceID is an arbitrary string that references a specific device.
type DeviceID string

func (userID UserID) String() string {
	return string(userID)
}

func (roomID RoomID) String() string {
	return string(roomID)
}

func (eventID EventID) String() string {
	return string(eventID)
}

func (deviceID DeviceID) String() string {
	return string(deviceID)
}
