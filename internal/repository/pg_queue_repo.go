package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classboard/notify-worker/internal/domain"
)

const queueColumns = `id, source_message_id, recipient_email, recipient_name, subject,
	       content_preview, status, attempts, next_retry_at, last_error,
	       sent_at, provider_msg_id, created_at, updated_at`

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) FetchEligibleBatch(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM email_queue
		WHERE status = 'pending'
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch eligible batch: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

// Claim is the sole concurrency-safety mechanism: the status guard and the
// attempt increment happen in one conditional UPDATE, so two racing
// invocations can never both win the same row. A naive read-then-write here
// would reintroduce exactly the race this guards against.
func (r *pgQueueRepository) Claim(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE email_queue
		SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("claim queue item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgQueueRepository) MarkSent(ctx context.Context, id, providerMsgID string, sentAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_queue
		SET status = 'sent', provider_msg_id = $1, sent_at = $2,
		    last_error = NULL, updated_at = NOW()
		WHERE id = $3`, providerMsgID, sentAt, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) MarkRetry(ctx context.Context, id string, nextRetryAt time.Time, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_queue
		SET status = 'pending', next_retry_at = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3`, nextRetryAt, errMsg, id)
	if err != nil {
		return fmt.Errorf("mark retry: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM email_queue WHERE id = $1`, id)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return item, err
}

func (r *pgQueueRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.QueueItem, int, error) {
	where, args := buildListWhere(f)
	offset := (f.Page - 1) * f.Limit

	// Count total matching rows for pagination metadata.
	var total int
	countQuery := "SELECT COUNT(*) FROM email_queue" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count queue items: %w", err)
	}

	// Append pagination args after the WHERE args.
	args = append(args, f.Limit, offset)
	limitPlaceholder := fmt.Sprintf("$%d", len(args)-1)
	offsetPlaceholder := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
		SELECT `+queueColumns+`
		FROM email_queue%s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s`, where, limitPlaceholder, offsetPlaceholder)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	items, err := scanQueueItems(rows)
	return items, total, err
}

func (r *pgQueueRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM email_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *pgQueueRepository) CancelPendingForRecipient(ctx context.Context, email string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE email_queue
		SET status = 'cancelled', updated_at = NOW()
		WHERE recipient_email = $1 AND status = 'pending'`, email)
	if err != nil {
		return 0, fmt.Errorf("cancel pending for recipient: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ---- helpers ----

// scanQueueItem reads a single queue row from any pgx row type.
func scanQueueItem(row pgx.Row) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := row.Scan(
		&item.ID, &item.SourceMessageID, &item.RecipientEmail, &item.RecipientName,
		&item.Subject, &item.ContentPreview, &item.Status, &item.Attempts,
		&item.NextRetryAt, &item.LastError, &item.SentAt, &item.ProviderMsgID,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanQueueItems(rows pgx.Rows) ([]*domain.QueueItem, error) {
	var result []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// buildListWhere builds a parameterised WHERE clause from a ListFilter.
func buildListWhere(f domain.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Recipient != nil {
		add("recipient_email = $%d", *f.Recipient)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
