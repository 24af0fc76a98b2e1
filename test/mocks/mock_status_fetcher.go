package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

// MockStatusFetcher is a mock implementation of ports.StatusFetcher for testing
type MockStatusFetcher struct {
	mu      sync.Mutex
	results map[string]ports.FetchResult
	calls   atomic.Int64

	// Gate, when set, blocks FetchStatus until it is closed
	Gate chan struct{}
}

// NewMockStatusFetcher creates a fetcher that reports every id as not found
func NewMockStatusFetcher() *MockStatusFetcher {
	return &MockStatusFetcher{results: make(map[string]ports.FetchResult)}
}

// SetFound makes trackingID resolve to status
func (m *MockStatusFetcher) SetFound(trackingID string, status domain.PaymentStatus) {
	m.SetResult(trackingID, ports.FetchResult{Outcome: ports.FetchFound, Status: status, PagesScanned: 1})
}

// SetResult sets the raw result for trackingID
func (m *MockStatusFetcher) SetResult(trackingID string, result ports.FetchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[trackingID] = result
}

// FetchStatus returns the configured result, or NotFound
func (m *MockStatusFetcher) FetchStatus(ctx context.Context, trackingID string) ports.FetchResult {
	m.calls.Add(1)

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return ports.FetchResult{Outcome: ports.FetchTransportFailure, Err: ctx.Err()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if result, ok := m.results[trackingID]; ok {
		return result
	}
	return ports.FetchResult{Outcome: ports.FetchNotFound, PagesScanned: 3}
}

// CallCount returns the number of FetchStatus calls
func (m *MockStatusFetcher) CallCount() int {
	return int(m.calls.Load())
}
