package repository

import (
	"context"
	"time"

	"github.com/classboard/notify-worker/internal/domain"
)

// QueueRepository defines all persistence operations on the email queue.
// The pgx implementation is in pg_queue_repo.go.
// Tests use a hand-written mock (mock_queue_repo.go).
type QueueRepository interface {
	// FetchEligibleBatch returns up to limit rows that are pending and whose
	// next_retry_at is unset or due, oldest-created first. Read-only; rows
	// are not claimed by fetching them.
	FetchEligibleBatch(ctx context.Context, limit int) ([]*domain.QueueItem, error)

	// Claim atomically moves a row from pending to processing and increments
	// its attempt counter. Returns false when the row was no longer pending
	// (a concurrent invocation won the race, or the row was cancelled); a
	// lost claim is not an error.
	Claim(ctx context.Context, id string) (bool, error)

	// MarkSent finalizes a delivered row. Terminal: the worker never touches
	// a sent row again.
	MarkSent(ctx context.Context, id string, providerMsgID string, sentAt time.Time) error

	// MarkRetry returns a row to pending with a future retry timestamp and
	// the failure reason. Attempts were already incremented at claim time.
	MarkRetry(ctx context.Context, id string, nextRetryAt time.Time, errMsg string) error

	GetByID(ctx context.Context, id string) (*domain.QueueItem, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.QueueItem, int, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)

	// CancelPendingForRecipient flips every pending row addressed to the
	// given email to cancelled and reports how many rows changed. Used by
	// the account-deletion cleanup fan-out; rows already processing or in a
	// terminal state are left alone.
	CancelPendingForRecipient(ctx context.Context, email string) (int, error)
}

// FlagRepository reads feature flags. The worker never writes flags.
type FlagRepository interface {
	// IsEnabled looks up a single flag by exact key. A missing row reads as
	// disabled, not as an error.
	IsEnabled(ctx context.Context, key string) (bool, error)
}
