// Copyright (c) 2025 Sumner Evans
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package dmverify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/jsontime"
	"golang.org/x/exp/slices"

	"go.mau.fi/dmverify/event"
	"go.mau.fi/dmverify/id"
)

const (
	// DefaultRequestTimeout is how long a request stays pending before the
	// timeout engine expires it.
	DefaultRequestTimeout = 5 * time.Minute
	// DefaultTerminalRetention is how long a terminal request stays in the
	// registry so that late or duplicate inbound events referencing it are
	// recognized instead of being treated as unknown.
	DefaultTerminalRetention = 5 * time.Minute
)

// Config configures a RequestManager instance.
type Config struct {
	// UserID and DeviceID identify the local client in outbound events.
	UserID   id.UserID
	DeviceID id.DeviceID

	// RequestTimeout overrides DefaultRequestTimeout when positive.
	RequestTimeout time.Duration
	// TerminalRetention overrides DefaultTerminalRetention when positive.
	TerminalRetention time.Duration
}

// RequestManager tracks all in-flight verification requests. All registry
// and request state mutations pass through a single mutex so that
// interleaved transitions are linearized; transport sends, event fetches,
// and transaction construction happen outside it.
type RequestManager struct {
	transport Transport
	factory   TransactionFactory
	log       zerolog.Logger

	userID   id.UserID
	deviceID id.DeviceID

	requestTimeout    time.Duration
	terminalRetention time.Duration

	requestsLock sync.Mutex
	requests     RequestStore
	listeners    *listenerRegistry

	timeouts  *timeoutEngine
	evictions *timeoutEngine
}

// NewRequestManager creates a request manager. A nil store gets an in-memory
// registry.
func NewRequestManager(transport Transport, factory TransactionFactory, store RequestStore, cfg Config, log zerolog.Logger) *RequestManager {
	if store == nil {
		store = NewInMemoryRequestStore()
	}
	vm := &RequestManager{
		transport:         transport,
		factory:           factory,
		log:               log.With().Str("component", "verification").Logger(),
		userID:            cfg.UserID,
		deviceID:          cfg.DeviceID,
		requestTimeout:    cfg.RequestTimeout,
		terminalRetention: cfg.TerminalRetention,
		requests:          store,
		listeners:         newListenerRegistry(),
	}
	if vm.requestTimeout <= 0 {
		vm.requestTimeout = DefaultRequestTimeout
	}
	if vm.terminalRetention <= 0 {
		vm.terminalRetention = DefaultTerminalRetention
	}
	vm.timeouts = newTimeoutEngine(vm.expireRequest)
	vm.evictions = newTimeoutEngine(vm.evictRequest)
	return vm
}

// Init reschedules the expiry and eviction timers for requests found in the
// store, for managers backed by persistent storage.
func (vm *RequestManager) Init(ctx context.Context) error {
	vm.requestsLock.Lock()
	defer vm.requestsLock.Unlock()
	reqs, err := vm.requests.GetAllRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored requests: %w", err)
	}
	for _, req := range reqs {
		switch {
		case req.State == RequestStatePending:
			vm.timeouts.Schedule(req.ID, time.Until(req.CreatedAt.Add(vm.requestTimeout)))
		case req.State.Terminal():
			vm.evictions.Schedule(req.ID, vm.terminalRetention)
		}
	}
	return nil
}

// Stop cancels all pending timers. Requests are left in the store untouched.
func (vm *RequestManager) Stop() {
	vm.timeouts.Stop()
	vm.evictions.Stop()
}

// RequestVerificationByDM sends a verification request to the given user in
// the given room, offering the listed methods. The fallback text is shown by
// clients that cannot render interactive verification. On success the
// registered request is keyed by the returned event ID and is already
// pending with its expiry scheduled. On send failure nothing is registered.
func (vm *RequestManager) RequestVerificationByDM(ctx context.Context, userID id.UserID, roomID id.RoomID, fallbackText string, methods []event.VerificationMethod) (id.EventID, error) {
	if len(methods) == 0 {
		return "", ErrNoMethods
	}
	log := vm.log.With().
		Str("verification_action", "request verification").
		Stringer("room_id", roomID).
		Stringer("to", userID).
		Any("methods", methods).
		Logger()

	content := &event.VerificationRequestEventContent{
		MsgType:    event.MsgVerificationRequest,
		Body:       fallbackText,
		FromDevice: vm.deviceID,
		Methods:    slices.Clone(methods),
		To:         userID,
		Timestamp:  jsontime.UnixMilliNow(),
	}
	eventID, err := vm.transport.SendMessageEvent(ctx, roomID, event.EventMessage, content)
	if err != nil {
		return "", fmt.Errorf("failed to send verification request: %w", err)
	}
	log.Info().Stringer("request_id", eventID).Msg("Sent verification request")

	vm.requestsLock.Lock()
	req := Request{
		ID:                  eventID,
		RoomID:              roomID,
		Sender:              vm.userID,
		SenderDevice:        vm.deviceID,
		To:                  userID,
		IsLocallyOriginated: true,
		Methods:             content.Methods,
		CreatedAt:           content.Timestamp,
		State:               RequestStatePending,
	}
	if err = vm.requests.SaveRequest(ctx, req); err != nil {
		vm.requestsLock.Unlock()
		return "", fmt.Errorf("failed to store verification request: %w", err)
	}
	vm.timeouts.Schedule(eventID, vm.requestTimeout)
	observers := vm.listeners.collectNewRequest()
	snap := req.snapshot()
	vm.requestsLock.Unlock()

	notify(observers, snap)
	return eventID, nil
}

// AcceptVerificationRequest accepts a pending request with one of its
// offered methods. The verification transaction is constructed and the ready
// event sent before the request transitions to Accepted; if either fails,
// the request stays pending and the caller may retry or cancel.
func (vm *RequestManager) AcceptVerificationRequest(ctx context.Context, requestID id.EventID, method event.VerificationMethod) (Transaction, error) {
	log := vm.log.With().
		Str("verification_action", "accept verification").
		Stringer("request_id", requestID).
		Str("method", string(method)).
		Logger()

	vm.requestsLock.Lock()
	req, err := vm.requests.GetRequest(ctx, requestID)
	if err != nil {
		vm.requestsLock.Unlock()
		return nil, err
	}
	if req.State != RequestStatePending {
		vm.requestsLock.Unlock()
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidState, req.State)
	}
	if !slices.Contains(req.Methods, method) {
		vm.requestsLock.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	snap := req.snapshot()
	vm.requestsLock.Unlock()

	txn, err := vm.factory.NewTransaction(ctx, snap, method)
	if err != nil {
		return nil, fmt.Errorf("failed to construct verification transaction: %w", err)
	}
	err = vm.sendVerificationEvent(ctx, snap, event.InRoomVerificationReady, &event.VerificationReadyEventContent{
		FromDevice: vm.deviceID,
		Method:     method,
	})
	if err != nil {
		return nil, err
	}

	vm.requestsLock.Lock()
	req, err = vm.requests.GetRequest(ctx, requestID)
	if err == nil {
		err = req.transition(RequestStateAccepted)
	}
	if err != nil {
		// The request reached a terminal state while the transaction was
		// being set up, e.g. an inbound cancellation won the race.
		vm.requestsLock.Unlock()
		return nil, err
	}
	vm.timeouts.Cancel(requestID)
	if err = vm.requests.SaveRequest(ctx, req); err != nil {
		vm.requestsLock.Unlock()
		return nil, fmt.Errorf("failed to store accepted request: %w", err)
	}
	vm.evictions.Schedule(requestID, vm.terminalRetention)
	listeners := vm.listeners.collect(requestID)
	snap = req.snapshot()
	vm.requestsLock.Unlock()

	log.Info().Msg("Verification request accepted")
	notify(listeners, snap)
	return txn, nil
}

// CancelVerificationRequest cancels or rejects a pending request with the
// given cancel code. The local transition to CancelledByMe is applied and
// listeners are notified before the cancellation event is sent, and the
// transition sticks even if the send fails: the user's intent must not be
// lost to a network hiccup, and redelivery is the transport's
// responsibility. Applying the transition first also keeps a sync echo of
// the outbound cancel from being mistaken for the other party cancelling.
func (vm *RequestManager) CancelVerificationRequest(ctx context.Context, requestID id.EventID, code event.CancelCode) error {
	log := vm.log.With().
		Str("verification_action", "cancel verification").
		Stringer("request_id", requestID).
		Str("cancel_code", string(code)).
		Logger()

	vm.requestsLock.Lock()
	req, err := vm.requests.GetRequest(ctx, requestID)
	if err != nil {
		vm.requestsLock.Unlock()
		return err
	}
	if err = req.transition(RequestStateCancelledByMe); err != nil {
		vm.requestsLock.Unlock()
		return err
	}
	req.CancelCode = code
	req.CancelReason = code.Reason()
	vm.timeouts.Cancel(requestID)
	if err = vm.requests.SaveRequest(ctx, req); err != nil {
		vm.requestsLock.Unlock()
		return fmt.Errorf("failed to store cancelled request: %w", err)
	}
	vm.evictions.Schedule(requestID, vm.terminalRetention)
	listeners := vm.listeners.collect(requestID)
	snap := req.snapshot()
	vm.requestsLock.Unlock()

	log.Info().Msg("Verification request cancelled")
	notify(listeners, snap)

	err = vm.sendVerificationEvent(ctx, snap, event.InRoomVerificationCancel, &event.VerificationCancelEventContent{
		Code:   code,
		Reason: code.Reason(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to send cancellation event, the local cancel is already applied")
	}
	return nil
}

// VerificationByDMRequestFromEventID resolves a verification request from
// the event ID of its request message, fetching the event from the
// transport. The fetch runs in the background; the returned handle can be
// waited on or cancelled. If the request is already known, the handle
// completes immediately.
func (vm *RequestManager) VerificationByDMRequestFromEventID(ctx context.Context, eventID id.EventID, roomID id.RoomID) *RequestFetch {
	fetchCtx, cancelFetch := context.WithCancel(ctx)
	fetch := newRequestFetch(cancelFetch, func() {
		vm.abortFetch(eventID)
	})

	vm.requestsLock.Lock()
	if req, err := vm.requests.GetRequest(fetchCtx, eventID); err == nil && req.State != RequestStateUnknown {
		snap := req.snapshot()
		vm.requestsLock.Unlock()
		fetch.resolve(snap, nil)
		return fetch
	}
	// Register a placeholder so that duplicate fetches and concurrently
	// synced copies of the same request are recognized while this one is
	// still being resolved.
	placeholder := Request{ID: eventID, RoomID: roomID, State: RequestStateUnknown}
	if err := vm.requests.SaveRequest(fetchCtx, placeholder); err != nil {
		vm.requestsLock.Unlock()
		fetch.resolve(nil, fmt.Errorf("failed to store request placeholder: %w", err))
		return fetch
	}
	vm.requestsLock.Unlock()

	go vm.runFetch(fetchCtx, fetch, eventID, roomID)
	return fetch
}

func (vm *RequestManager) runFetch(ctx context.Context, fetch *RequestFetch, eventID id.EventID, roomID id.RoomID) {
	evt, err := vm.transport.GetEvent(ctx, roomID, eventID)
	if err != nil {
		vm.abortFetch(eventID)
		fetch.resolve(nil, fmt.Errorf("failed to fetch request event: %w", err))
		return
	}
	content, err := event.ParseRequestEvent(evt)
	if err != nil {
		vm.abortFetch(eventID)
		fetch.resolve(nil, fmt.Errorf("%w: %s", ErrMalformedEvent, err))
		return
	}

	vm.requestsLock.Lock()
	req, err := vm.requests.GetRequest(ctx, eventID)
	if errors.Is(err, ErrUnknownRequest) {
		// Only an aborted fetch removes the Unknown placeholder, so the
		// fetch was cancelled while the event was in flight. Nothing to
		// register, and delivery is already suppressed.
		vm.requestsLock.Unlock()
		return
	} else if err != nil {
		vm.requestsLock.Unlock()
		fetch.resolve(nil, fmt.Errorf("failed to load request placeholder: %w", err))
		return
	}
	created := req.State == RequestStateUnknown
	if created {
		req.Sender = evt.Sender
		req.SenderDevice = content.FromDevice
		req.To = content.To
		req.IsLocallyOriginated = evt.Sender == vm.userID && content.FromDevice == vm.deviceID
		req.Methods = content.Methods
		req.CreatedAt = content.Timestamp
		if err = req.transition(RequestStatePending); err != nil {
			vm.requestsLock.Unlock()
			fetch.resolve(nil, err)
			return
		}
		if err = vm.requests.SaveRequest(ctx, req); err != nil {
			vm.requestsLock.Unlock()
			fetch.resolve(nil, fmt.Errorf("failed to store fetched request: %w", err))
			return
		}
		vm.timeouts.Schedule(eventID, time.Until(req.CreatedAt.Add(vm.requestTimeout)))
	}
	observers := vm.listeners.collectNewRequest()
	snap := req.snapshot()
	vm.requestsLock.Unlock()

	if created {
		notify(observers, snap)
	}
	fetch.resolve(snap, nil)
}

// abortFetch drops the unresolved placeholder of a failed or cancelled
// fetch. A request that was resolved in the meantime is left registered.
func (vm *RequestManager) abortFetch(eventID id.EventID) {
	vm.requestsLock.Lock()
	defer vm.requestsLock.Unlock()
	req, err := vm.requests.GetRequest(context.Background(), eventID)
	if err != nil || req.State != RequestStateUnknown {
		return
	}
	if err = vm.requests.DeleteRequest(context.Background(), eventID); err != nil {
		vm.log.Warn().Err(err).Stringer("request_id", eventID).Msg("Failed to delete request placeholder")
	}
	vm.listeners.drop(eventID)
}

// PendingRequests returns snapshots of all non-terminal requests.
func (vm *RequestManager) PendingRequests() []*Request {
	vm.requestsLock.Lock()
	defer vm.requestsLock.Unlock()
	reqs, err := vm.requests.GetAllRequests(context.Background())
	if err != nil {
		vm.log.Warn().Err(err).Msg("Failed to list stored requests")
		return nil
	}
	var pending []*Request
	for i := range reqs {
		if !reqs[i].State.Terminal() {
			pending = append(pending, reqs[i].snapshot())
		}
	}
	return pending
}

// GetRequest returns a snapshot of the request with the given ID.
func (vm *RequestManager) GetRequest(requestID id.EventID) (*Request, error) {
	vm.requestsLock.Lock()
	defer vm.requestsLock.Unlock()
	req, err := vm.requests.GetRequest(context.Background(), requestID)
	if err != nil {
		return nil, err
	}
	return req.snapshot(), nil
}

// ListenToRequestState registers a listener that is invoked with a snapshot
// of the request on every state transition, including the transition to a
// terminal state.
func (vm *RequestManager) ListenToRequestState(requestID id.EventID, listener RequestListener) (ListenerHandle, error) {
	vm.requestsLock.Lock()
	defer vm.requestsLock.Unlock()
	if _, err := vm.requests.GetRequest(context.Background(), requestID); err != nil {
		return "", err
	}
	return vm.listeners.listen(requestID, listener), nil
}

// OnNewRequest registers an observer that is invoked with a snapshot
// whenever a wholly new request is first observed, whether created locally
// or ingested from an inbound event. Collaborators that are not yet
// listening to a specific request subscribe here at startup.
func (vm *RequestManager) OnNewRequest(listener RequestListener) ListenerHandle {
	vm.requestsLock.Lock()
	defer vm.requestsLock.Unlock()
	return vm.listeners.listenNewRequests(listener)
}

// RemoveListener unregisters exactly the given registration. Removing an
// unknown or already-removed handle is a safe no-op.
func (vm *RequestManager) RemoveListener(handle ListenerHandle) {
	vm.requestsLock.Lock()
	defer vm.requestsLock.Unlock()
	vm.listeners.remove(handle)
}

// ProcessEvent ingests a decrypted conversation event observed passively via
// the transport's sync stream. Events that are not verification events are
// ignored. Malformed or inconsistent verification events are logged and
// dropped, never surfaced as errors, since no local caller initiated them.
func (vm *RequestManager) ProcessEvent(ctx context.Context, evt *event.Event) {
	switch evt.Type {
	case event.EventMessage:
		if evt.MessageType() == event.MsgVerificationRequest {
			vm.processRequestEvent(ctx, evt)
		}
	case event.InRoomVerificationReady:
		vm.processReadyEvent(ctx, evt)
	case event.InRoomVerificationCancel:
		vm.processCancelEvent(ctx, evt)
	}
}

func (vm *RequestManager) processRequestEvent(ctx context.Context, evt *event.Event) {
	log := vm.log.With().
		Str("verification_action", "inbound request").
		Stringer("sender", evt.Sender).
		Stringer("room_id", evt.RoomID).
		Stringer("request_id", evt.ID).
		Logger()

	content, err := event.ParseRequestEvent(evt)
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed verification request")
		return
	}
	if evt.Sender == vm.userID && content.FromDevice == vm.deviceID {
		// Sync echo of our own outbound request.
		return
	}
	if content.To != "" && content.To != vm.userID {
		log.Debug().Stringer("to", content.To).Msg("Ignoring verification request for another user")
		return
	}

	vm.requestsLock.Lock()
	if _, err = vm.requests.GetRequest(ctx, evt.ID); err == nil {
		vm.requestsLock.Unlock()
		log.Debug().Msg("Ignoring duplicate verification request")
		return
	}
	req := Request{
		ID:           evt.ID,
		RoomID:       evt.RoomID,
		Sender:       evt.Sender,
		SenderDevice: content.FromDevice,
		To:           content.To,
		Methods:      content.Methods,
		CreatedAt:    content.Timestamp,
		State:        RequestStatePending,
	}
	if err = vm.requests.SaveRequest(ctx, req); err != nil {
		vm.requestsLock.Unlock()
		log.Warn().Err(err).Msg("Failed to store inbound verification request")
		return
	}
	vm.timeouts.Schedule(evt.ID, time.Until(req.CreatedAt.Add(vm.requestTimeout)))
	observers := vm.listeners.collectNewRequest()
	snap := req.snapshot()
	vm.requestsLock.Unlock()

	log.Info().Any("methods", content.Methods).Msg("Received verification request")
	notify(observers, snap)
}

func (vm *RequestManager) processReadyEvent(ctx context.Context, evt *event.Event) {
	requestID := evt.RelatesToEventID()
	log := vm.log.With().
		Str("verification_action", "inbound ready").
		Stringer("sender", evt.Sender).
		Stringer("request_id", requestID).
		Logger()
	if requestID == "" {
		log.Warn().Msg("Ignoring ready event without a request reference")
		return
	}
	var content event.VerificationReadyEventContent
	if err := json.Unmarshal(evt.Content, &content); err != nil || content.FromDevice == "" {
		log.Warn().Msg("Ignoring malformed ready event")
		return
	}
	if evt.Sender == vm.userID && content.FromDevice == vm.deviceID {
		// Sync echo of our own acceptance.
		return
	}

	vm.requestsLock.Lock()
	req, err := vm.requests.GetRequest(ctx, requestID)
	if err != nil {
		vm.requestsLock.Unlock()
		log.Debug().Msg("Ignoring ready event for an unknown request")
		return
	}
	if !vm.isParty(&req, evt.Sender) {
		vm.requestsLock.Unlock()
		log.Warn().Msg("Ignoring ready event from a user that is not a party to the request")
		return
	}
	if !slices.Contains(req.Methods, content.Method) {
		vm.requestsLock.Unlock()
		log.Warn().Str("method", string(content.Method)).Msg("Ignoring ready event with a method the request did not offer")
		return
	}
	if err = req.transition(RequestStateAccepted); err != nil {
		vm.requestsLock.Unlock()
		log.Debug().Err(err).Msg("Ignoring ready event for a request that is no longer pending")
		return
	}
	if req.To == "" {
		req.To = evt.Sender
	}
	vm.timeouts.Cancel(requestID)
	if err = vm.requests.SaveRequest(ctx, req); err != nil {
		vm.requestsLock.Unlock()
		log.Warn().Err(err).Msg("Failed to store accepted request")
		return
	}
	vm.evictions.Schedule(requestID, vm.terminalRetention)
	listeners := vm.listeners.collect(requestID)
	snap := req.snapshot()
	vm.requestsLock.Unlock()

	log.Info().Msg("Verification request accepted by the other party")
	notify(listeners, snap)
}

func (vm *RequestManager) processCancelEvent(ctx context.Context, evt *event.Event) {
	requestID := evt.RelatesToEventID()
	log := vm.log.With().
		Str("verification_action", "inbound cancel").
		Stringer("sender", evt.Sender).
		Stringer("request_id", requestID).
		Logger()
	if requestID == "" {
		log.Warn().Msg("Ignoring cancel event without a request reference")
		return
	}
	var content event.VerificationCancelEventContent
	if err := json.Unmarshal(evt.Content, &content); err != nil || content.Code == "" {
		log.Warn().Msg("Ignoring malformed cancel event")
		return
	}
	if content.Reason == "" {
		content.Reason = content.Code.Reason()
	}

	vm.requestsLock.Lock()
	req, err := vm.requests.GetRequest(ctx, requestID)
	if err != nil {
		vm.requestsLock.Unlock()
		log.Debug().Msg("Ignoring cancel event for an unknown request")
		return
	}
	if evt.Sender == vm.userID && req.State == RequestStateCancelledByMe {
		// Sync echo of our own cancellation.
		vm.requestsLock.Unlock()
		return
	}
	if !vm.isParty(&req, evt.Sender) {
		vm.requestsLock.Unlock()
		log.Warn().Msg("Ignoring cancel event from a user that is not a party to the request")
		return
	}
	if err = req.transition(RequestStateCancelled); err != nil {
		vm.requestsLock.Unlock()
		log.Debug().Err(err).Msg("Ignoring cancel event for a request that is no longer pending")
		return
	}
	req.CancelCode = content.Code
	req.CancelReason = content.Reason
	vm.timeouts.Cancel(requestID)
	if err = vm.requests.SaveRequest(ctx, req); err != nil {
		vm.requestsLock.Unlock()
		log.Warn().Err(err).Msg("Failed to store cancelled request")
		return
	}
	vm.evictions.Schedule(requestID, vm.terminalRetention)
	listeners := vm.listeners.collect(requestID)
	snap := req.snapshot()
	vm.requestsLock.Unlock()

	log.Info().
		Str("cancel_code", string(content.Code)).
		Str("reason", content.Reason).
		Msg("Verification request cancelled by the other party")
	notify(listeners, snap)
}

// expireRequest is the timeout engine callback. If the request is no longer
// pending by the time the deadline fires, this is a no-op.
func (vm *RequestManager) expireRequest(requestID id.EventID) {
	vm.requestsLock.Lock()
	req, err := vm.requests.GetRequest(context.Background(), requestID)
	if err == nil {
		err = req.transition(RequestStateExpired)
	}
	if err != nil {
		vm.requestsLock.Unlock()
		return
	}
	if err = vm.requests.SaveRequest(context.Background(), req); err != nil {
		vm.requestsLock.Unlock()
		vm.log.Warn().Err(err).Stringer("request_id", requestID).Msg("Failed to store expired request")
		return
	}
	vm.evictions.Schedule(requestID, vm.terminalRetention)
	listeners := vm.listeners.collect(requestID)
	snap := req.snapshot()
	vm.requestsLock.Unlock()

	vm.log.Info().
		Str("verification_action", "expire").
		Stringer("request_id", requestID).
		Msg("Verification request expired")
	notify(listeners, snap)
}

// evictRequest removes a terminal request from the registry after its
// retention window.
func (vm *RequestManager) evictRequest(requestID id.EventID) {
	vm.requestsLock.Lock()
	defer vm.requestsLock.Unlock()
	req, err := vm.requests.GetRequest(context.Background(), requestID)
	if err != nil || !req.State.Terminal() {
		return
	}
	if err = vm.requests.DeleteRequest(context.Background(), requestID); err != nil {
		vm.log.Warn().Err(err).Stringer("request_id", requestID).Msg("Failed to evict terminal request")
		return
	}
	vm.listeners.drop(requestID)
}

// isParty reports whether the given user participates in the request.
func (vm *RequestManager) isParty(req *Request, userID id.UserID) bool {
	return userID == req.Sender || (req.To != "" && userID == req.To) ||
		(req.To == "" && req.IsLocallyOriginated)
}

// sendVerificationEvent sends a response event referencing the request
// message via m.relates_to.
func (vm *RequestManager) sendVerificationEvent(ctx context.Context, req *Request, evtType event.Type, content any) error {
	switch typed := content.(type) {
	case *event.VerificationReadyEventContent:
		typed.RelatesTo = &event.RelatesTo{Type: event.RelReference, EventID: req.ID}
	case *event.VerificationCancelEventContent:
		typed.RelatesTo = &event.RelatesTo{Type: event.RelReference, EventID: req.ID}
	}
	_, err := vm.transport.SendMessageEvent(ctx, req.RoomID, evtType, content)
	if err != nil {
		return fmt.Errorf("failed to send %s event: %w", evtType, err)
	}
	return nil
}

// notify invokes the given listeners with the snapshot, outside the
// manager's lock. The snapshot was taken atomically with the transition, so
// a listener never observes a state older than the one that triggered it.
func notify(listeners []RequestListener, snap *Request) {
	for _, listener := range listeners {
		listener(snap)
	}
}
