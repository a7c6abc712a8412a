// Copyright (c) 2025 Sumner Evans
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package dmverify

import (
	"github.com/rs/xid"
	"golang.org/x/exp/maps"

	"go.mau.fi/dmverify/id"
)

// ListenerHandle is an opaque token returned when registering a listener.
// It is only usable for removing that specific registration.
type ListenerHandle string

func newListenerHandle() ListenerHandle {
	return ListenerHandle(xid.New().String())
}

// RequestListener receives an immutable snapshot of a request.
type RequestListener func(req *Request)

// listenerRegistry maps request IDs to their registered state listeners plus
// a manager-wide set of new-request observers. It has no locking of its own:
// every method is called while the manager holds its serialization lock.
type listenerRegistry struct {
	requestListeners    map[id.EventID]map[ListenerHandle]RequestListener
	newRequestListeners map[ListenerHandle]RequestListener
	handleIndex         map[ListenerHandle]id.EventID
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{
		requestListeners:    map[id.EventID]map[ListenerHandle]RequestListener{},
		newRequestListeners: map[ListenerHandle]RequestListener{},
		handleIndex:         map[ListenerHandle]id.EventID{},
	}
}

func (lr *listenerRegistry) listen(requestID id.EventID, listener RequestListener) ListenerHandle {
	handle := newListenerHandle()
	listeners, ok := lr.requestListeners[requestID]
	if !ok {
		listeners = map[ListenerHandle]RequestListener{}
		lr.requestListeners[requestID] = listeners
	}
	listeners[handle] = listener
	lr.handleIndex[handle] = requestID
	return handle
}

func (lr *listenerRegistry) listenNewRequests(listener RequestListener) ListenerHandle {
	handle := newListenerHandle()
	lr.newRequestListeners[handle] = listener
	lr.handleIndex[handle] = ""
	return handle
}

// remove unregisters exactly the given registration. Removing an unknown or
// already-removed handle is a no-op.
func (lr *listenerRegistry) remove(handle ListenerHandle) {
	requestID, ok := lr.handleIndex[handle]
	if !ok {
		return
	}
	delete(lr.handleIndex, handle)
	if requestID == "" {
		delete(lr.newRequestListeners, handle)
		return
	}
	if listeners, ok := lr.requestListeners[requestID]; ok {
		delete(listeners, handle)
		if len(listeners) == 0 {
			delete(lr.requestListeners, requestID)
		}
	}
}

// collect returns the listeners currently registered for the given request.
// The returned slice is a snapshot, so it stays valid after the lock is
// released.
func (lr *listenerRegistry) collect(requestID id.EventID) []RequestListener {
	return maps.Values(lr.requestListeners[requestID])
}

func (lr *listenerRegistry) collectNewRequest() []RequestListener {
	return maps.Values(lr.newRequestListeners)
}

// drop removes all listeners for an evicted request.
func (lr *listenerRegistry) drop(requestID id.EventID) {
	for handle := range lr.requestListeners[requestID] {
		delete(lr.handleIndex, handle)
	}
	delete(lr.requestListeners, requestID)
}
