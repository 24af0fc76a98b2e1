package mocks

import (
	"context"
	"sync"

	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

// MockPushGateway is a mock implementation of ports.PushGateway for testing
type MockPushGateway struct {
	mu       sync.Mutex
	response *ports.PushResult
	err      error
	Requests []*ports.PushRequest
}

// NewMockPushGateway creates a gateway that accepts every push with trackingID
func NewMockPushGateway(trackingID string) *MockPushGateway {
	return &MockPushGateway{
		response: &ports.PushResult{TrackingID: trackingID, MatchedKey: "transactionId"},
	}
}

// SetResponse sets the result returned by InitiatePush
func (m *MockPushGateway) SetResponse(result *ports.PushResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = result
	m.err = nil
}

// SetError makes InitiatePush fail with err
func (m *MockPushGateway) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// InitiatePush records the request and returns the configured result
func (m *MockPushGateway) InitiatePush(_ context.Context, req *ports.PushRequest) (*ports.PushResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *req
	m.Requests = append(m.Requests, &copied)
	if m.err != nil {
		return nil, m.err
	}
	result := *m.response
	return &result, nil
}

// CallCount returns the number of InitiatePush calls
func (m *MockPushGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
