package repository

import (
	"context"
	"time"

	"github.com/flightapp/platform/internal/outbox"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxOutboxRetries is the attempt ceiling after which a row is parked as
// failed for out-of-band inspection instead of being retried forever.
const maxOutboxRetries = 10

type PGOutboxStore struct {
	db *pgxpool.Pool
}

func NewOutboxStore(db *pgxpool.Pool) *PGOutboxStore {
	return &PGOutboxStore{db: db}
}

// LockBatch claims up to batchSize publishable rows. SKIP LOCKED keeps
// concurrent relays from double-claiming; rows stuck in_progress past the
// lease belonged to a crashed relay and become claimable again.
func (s *PGOutboxStore) LockBatch(ctx context.Context, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	rows, err := s.db.Query(ctx, `UPDATE outbox SET status='in_progress', locked_at=now() WHERE id IN (
			SELECT id FROM outbox
			WHERE status='pending' OR (status='in_progress' AND locked_at < now() - $2::interval)
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		) RETURNING id, topic, key, event_type, payload, status, retry_count, last_error, created_at`,
		batchSize, lease.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]outbox.Event, 0, batchSize)
	for rows.Next() {
		var e outbox.Event
		if err := rows.Scan(&e.ID, &e.Topic, &e.Key, &e.Type, &e.Payload, &e.Status, &e.RetryCount, &e.LastError, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PGOutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	_, err := s.db.Exec(ctx, `UPDATE outbox SET status='sent', sent_at=now() WHERE id = ANY($1)`, ids)
	return err
}

func (s *PGOutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.db.Exec(ctx, `UPDATE outbox SET
			retry_count = retry_count + 1,
			last_error = $2,
			status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END
		WHERE id = $1`, id, errMsg, maxOutboxRetries)
	return err
}

var _ outbox.Store = (*PGOutboxStore)(nil)
