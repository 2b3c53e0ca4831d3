package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// defaultListLimit caps ListInvocations when the caller passes a non-positive limit.
const defaultListLimit = 50

// Repository provides access to the invocation audit log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordInvocation inserts one audit row. Re-recording the same invocation id is ignored.
func (r *Repository) RecordInvocation(ctx context.Context, rec *InvocationRecord) error {
	slog.Debug(fmt.Sprintf("%s - RecordInvocation id=%s actor=%s outcome=%s", repoLogPrefix, rec.InvocationID, rec.ActorID, rec.Outcome))

	_, err := r.pool.Exec(ctx,
		`INSERT INTO invocation_log
		   (invocation_id, origin, target, actor_id, operation, payload_size, outcome, error_text, duration_ms, created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (invocation_id) DO NOTHING`,
		rec.InvocationID, rec.Origin, rec.Target, rec.ActorID, rec.Operation,
		rec.PayloadSize, rec.Outcome, rec.ErrorText, rec.DurationMs, rec.Created)
	if err != nil {
		return fmt.Errorf("%s - RecordInvocation failed: %w", repoLogPrefix, err)
	}
	return nil
}

// ListInvocations returns the most recent rows for an actor, newest first.
// An empty actorID lists across all actors.
func (r *Repository) ListInvocations(ctx context.Context, actorID string, limit int) ([]InvocationRecord, error) {
	if limit < 1 {
		limit = defaultListLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT invocation_id, origin, target, actor_id, operation, payload_size, outcome, error_text, duration_ms, created
		 FROM invocation_log
		 WHERE ($1::text = '' OR actor_id = $1)
		 ORDER BY created DESC
		 LIMIT $2`, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - ListInvocations failed: %w", repoLogPrefix, err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (InvocationRecord, error) {
		var rec InvocationRecord
		err := row.Scan(&rec.InvocationID, &rec.Origin, &rec.Target, &rec.ActorID, &rec.Operation,
			&rec.PayloadSize, &rec.Outcome, &rec.ErrorText, &rec.DurationMs, &rec.Created)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s - ListInvocations scan failed: %w", repoLogPrefix, err)
	}
	return records, nil
}

// CountByOutcome returns per-outcome totals for an actor (all actors when actorID is empty).
func (r *Repository) CountByOutcome(ctx context.Context, actorID string) ([]OutcomeCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT outcome, COUNT(*)::int
		 FROM invocation_log
		 WHERE ($1::text = '' OR actor_id = $1)
		 GROUP BY outcome
		 ORDER BY outcome`, actorID)
	if err != nil {
		return nil, fmt.Errorf("%s - CountByOutcome failed: %w", repoLogPrefix, err)
	}

	counts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[OutcomeCount])
	if err != nil {
		return nil, fmt.Errorf("%s - CountByOutcome scan failed: %w", repoLogPrefix, err)
	}
	return counts, nil
}
