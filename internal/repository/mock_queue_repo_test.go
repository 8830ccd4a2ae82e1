package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/classboard/notify-worker/internal/domain"
	"github.com/classboard/notify-worker/internal/repository"
)

func TestMockQueueRepository_ClaimIsExclusive(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	repo.Put(&domain.QueueItem{
		ID:             "contested",
		RecipientEmail: "parent@example.com",
		Status:         domain.StatusPending,
		CreatedAt:      time.Now(),
	})

	const racers = 8
	results := make([]bool, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.Claim(context.Background(), "contested")
			if err != nil {
				t.Errorf("unexpected claim error: %v", err)
			}
			results[i] = ok
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range results {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one claim winner, got %d", wins)
	}

	item, _ := repo.GetByID(context.Background(), "contested")
	if item.Attempts != 1 {
		t.Fatalf("expected attempts incremented exactly once, got %d", item.Attempts)
	}
	if item.Status != domain.StatusProcessing {
		t.Fatalf("expected status=processing after claim, got %s", item.Status)
	}
}

func TestMockQueueRepository_ClaimSkipsNonPending(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	for _, status := range []domain.Status{
		domain.StatusProcessing, domain.StatusSent, domain.StatusFailed, domain.StatusCancelled,
	} {
		repo.Put(&domain.QueueItem{
			ID:             string(status),
			RecipientEmail: "parent@example.com",
			Status:         status,
			CreatedAt:      time.Now(),
		})

		ok, err := repo.Claim(context.Background(), string(status))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatalf("expected claim to fail for status %s", status)
		}
	}
}

func TestMockQueueRepository_FetchOrdersOldestFirst(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	base := time.Now().Add(-time.Hour)
	repo.Put(&domain.QueueItem{ID: "newer", Status: domain.StatusPending, CreatedAt: base.Add(time.Minute)})
	repo.Put(&domain.QueueItem{ID: "oldest", Status: domain.StatusPending, CreatedAt: base})
	repo.Put(&domain.QueueItem{ID: "newest", Status: domain.StatusPending, CreatedAt: base.Add(2 * time.Minute)})

	items, err := repo.FetchEligibleBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 eligible rows, got %d", len(items))
	}
	for i, want := range []string{"oldest", "newer", "newest"} {
		if items[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, items[i].ID)
		}
	}
}

func TestMockQueueRepository_CancelPendingForRecipient(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	repo.Put(&domain.QueueItem{ID: "p1", RecipientEmail: "leaver@example.com", Status: domain.StatusPending, CreatedAt: time.Now()})
	repo.Put(&domain.QueueItem{ID: "p2", RecipientEmail: "leaver@example.com", Status: domain.StatusPending, CreatedAt: time.Now()})
	repo.Put(&domain.QueueItem{ID: "sent", RecipientEmail: "leaver@example.com", Status: domain.StatusSent, CreatedAt: time.Now()})
	repo.Put(&domain.QueueItem{ID: "other", RecipientEmail: "stays@example.com", Status: domain.StatusPending, CreatedAt: time.Now()})

	n, err := repo.CancelPendingForRecipient(context.Background(), "leaver@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows cancelled, got %d", n)
	}

	sent, _ := repo.GetByID(context.Background(), "sent")
	if sent.Status != domain.StatusSent {
		t.Fatal("expected terminal row untouched")
	}
	other, _ := repo.GetByID(context.Background(), "other")
	if other.Status != domain.StatusPending {
		t.Fatal("expected other recipient's row untouched")
	}
}
