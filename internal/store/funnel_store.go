package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mvidal/shop-funnel/internal/dates"
	"github.com/mvidal/shop-funnel/internal/domain"
)

// ErrUnavailable wraps storage I/O failures. The webhook receiver answers
// 5xx on it so the sender redelivers instead of dropping the notification.
var ErrUnavailable = errors.New("storage unavailable")

// RecordEvent credits one funnel event for the day occurredAt falls on in
// the store's configured timezone.
//
// The dedup insert and the counter increment run in one transaction; the
// primary key on dedup_keys is what serializes concurrent deliveries of the
// same (kind, dedup_key). Two simultaneous deliveries of the same cart
// token produce exactly one Credited.
func (s *PostgresStore) RecordEvent(ctx context.Context, kind domain.EventKind, dedupKey string, occurredAt time.Time) (domain.Outcome, error) {
	day := dates.DayOf(occurredAt, s.loc)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: beginning transaction: %v", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	// RETURNING 1 only when inserted; a duplicate key returns no rows.
	var one int
	err = tx.QueryRow(ctx, `
		INSERT INTO dedup_keys (event_kind, dedup_key, day)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
		RETURNING 1
	`, kind, dedupKey, day).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already credited for this day; leave the counter untouched.
		return domain.AlreadyCounted, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: inserting dedup key: %v", ErrUnavailable, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO daily_counts (day, event_kind, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (day, event_kind) DO UPDATE SET count = daily_counts.count + 1
	`, day, kind)
	if err != nil {
		return "", fmt.Errorf("%w: incrementing counter: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("%w: committing: %v", ErrUnavailable, err)
	}

	return domain.Credited, nil
}

// CountFor returns the counter for (kind, day). A day with no recorded
// events is 0, not an error.
func (s *PostgresStore) CountFor(ctx context.Context, kind domain.EventKind, day string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT count FROM daily_counts WHERE day = $1 AND event_kind = $2
	`, day, kind).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: querying counter: %v", ErrUnavailable, err)
	}
	return count, nil
}

// PruneDedupKeys deletes dedup records for days before the cutoff and
// returns how many were removed. Counters are never touched; pruning only
// bounds the dedup table, at the cost that a very late duplicate of a
// pruned key would be credited again.
func (s *PostgresStore) PruneDedupKeys(ctx context.Context, before string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dedup_keys WHERE day < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%w: pruning dedup keys: %v", ErrUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
