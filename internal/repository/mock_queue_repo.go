package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/classboard/notify-worker/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
//
// Claim holds the mutex across the status check and the mutation, which
// reproduces the atomicity of the SQL conditional update.
type MockQueueRepository struct {
	mu    sync.Mutex
	items map[string]*domain.QueueItem

	// Optional error overrides — set in tests to simulate failure paths.
	FetchErr     error
	ClaimErr     error
	MarkSentErr  error
	MarkRetryErr error

	// Call counters for asserting the no-op paths.
	FetchCalls int
	ClaimCalls int
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{items: make(map[string]*domain.QueueItem)}
}

// Put seeds an item, cloning it so the test's copy stays independent.
func (m *MockQueueRepository) Put(item *domain.QueueItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *item
	m.items[item.ID] = &clone
}

func (m *MockQueueRepository) FetchEligibleBatch(_ context.Context, limit int) ([]*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	now := time.Now()
	var eligible []*domain.QueueItem
	for _, item := range m.items {
		if item.Status != domain.StatusPending {
			continue
		}
		if item.NextRetryAt != nil && item.NextRetryAt.After(now) {
			continue
		}
		clone := *item
		eligible = append(eligible, &clone)
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (m *MockQueueRepository) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClaimCalls++
	if m.ClaimErr != nil {
		return false, m.ClaimErr
	}
	item, ok := m.items[id]
	if !ok || item.Status != domain.StatusPending {
		return false, nil
	}
	item.Status = domain.StatusProcessing
	item.Attempts++
	return true, nil
}

func (m *MockQueueRepository) MarkSent(_ context.Context, id, providerMsgID string, sentAt time.Time) error {
	if m.MarkSentErr != nil {
		return m.MarkSentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusSent
		item.ProviderMsgID = &providerMsgID
		item.SentAt = &sentAt
		item.LastError = nil
	}
	return nil
}

func (m *MockQueueRepository) MarkRetry(_ context.Context, id string, nextRetryAt time.Time, errMsg string) error {
	if m.MarkRetryErr != nil {
		return m.MarkRetryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusPending
		item.NextRetryAt = &nextRetryAt
		item.LastError = &errMsg
	}
	return nil
}

func (m *MockQueueRepository) GetByID(_ context.Context, id string) (*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *MockQueueRepository) List(_ context.Context, _ domain.ListFilter) ([]*domain.QueueItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.QueueItem, 0, len(m.items))
	for _, item := range m.items {
		clone := *item
		result = append(result, &clone)
	}
	return result, len(result), nil
}

func (m *MockQueueRepository) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.Status]int)
	for _, item := range m.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (m *MockQueueRepository) CancelPendingForRecipient(_ context.Context, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, item := range m.items {
		if item.RecipientEmail == email && item.Status == domain.StatusPending {
			item.Status = domain.StatusCancelled
			n++
		}
	}
	return n, nil
}

// MockFlagRepository is an in-memory FlagRepository for tests.
type MockFlagRepository struct {
	Flags map[string]bool
	Err   error
}

func NewMockFlagRepository() *MockFlagRepository {
	return &MockFlagRepository{Flags: make(map[string]bool)}
}

func (m *MockFlagRepository) IsEnabled(_ context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.Flags[key], nil
}
