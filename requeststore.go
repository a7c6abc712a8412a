package dmverify

import (
	"context"

	"go.mau.fi/dmverify/id"
)

// RequestStore is the registry backing of the request manager. All calls are
// made while the manager holds its serialization lock, so implementations do
// not need their own locking for manager use.
type RequestStore interface {
	// GetRequest gets a request by ID.
	GetRequest(ctx context.Context, requestID id.EventID) (Request, error)
	// SaveRequest saves a request by ID.
	SaveRequest(ctx context.Context, req Request) error
	// DeleteRequest deletes a request by ID.
	DeleteRequest(ctx context.Context, requestID id.EventID) error
	// GetAllRequests returns all stored requests. This is used to reset the
	// expiry and eviction timers after a restart.
	GetAllRequests(ctx context.Context) ([]Request, error)
}

type InMemoryRequestStore struct {
	requests map[id.EventID]Request
}

var _ RequestStore = (*InMemoryRequestStore)(nil)

func NewInMemoryRequestStore() *InMemoryRequestStore {
	return &InMemoryRequestStore{
		requests: map[id.EventID]Request{},
	}
}

func (i *InMemoryRequestStore) GetRequest(ctx context.Context, requestID id.EventID) (Request, error) {
	req, ok := i.requests[requestID]
	if !ok {
		return Request{}, ErrUnknownRequest
	}
	return req, nil
}

func (i *InMemoryRequestStore) SaveRequest(ctx context.Context, req Request) error {
	i.requests[req.ID] = req
	return nil
}

func (i *InMemoryRequestStore) DeleteRequest(ctx context.Context, requestID id.EventID) error {
	if _, ok := i.requests[requestID]; !ok {
		return ErrUnknownRequest
	}
	delete(i.requests, requestID)
	return nil
}

func (i *InMemoryRequestStore) GetAllRequests(ctx context.Context) (reqs []Request, err error) {
	for _, req := range i.requests {
		reqs = append(reqs, req)
	}
	return
}
