package repository

import (
	"context"
	"fmt"
	"time"

	"nhl_stats/ingestion/internal/metrics"

	"github.com/jackc/pgx/v5"
)

// PersistenceError is returned when a load batch fails. The batch has been
// rolled back; none of its rows are visible.
type PersistenceError struct {
	Table string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// runBatch runs fn inside one transaction. size is the number of input
// records; an empty batch is logged and skipped. Any error from fn rolls the
// whole batch back.
func (db *Database) runBatch(ctx context.Context, table, op string, size int, fn func(tx pgx.Tx) (int, error)) (int, error) {
	if size == 0 {
		db.logger.Info().
			Str("table", table).
			Str("op", op).
			Msg("No records to load")
		return 0, nil
	}

	start := time.Now()

	tx, err := db.conn.Begin(ctx)
	if err != nil {
		metrics.RecordDBBatch(table, "error", time.Since(start).Seconds())
		return 0, &PersistenceError{Table: table, Op: "begin transaction for", Err: err}
	}

	written, err := fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			db.logger.Warn().Err(rbErr).Str("table", table).Msg("Rollback failed")
		}
		metrics.RecordDBBatch(table, "rolled_back", time.Since(start).Seconds())
		db.logger.Error().
			Err(err).
			Str("table", table).
			Str("op", op).
			Int("records", size).
			Msg("Batch rolled back")
		return 0, &PersistenceError{Table: table, Op: op, Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordDBBatch(table, "error", time.Since(start).Seconds())
		return 0, &PersistenceError{Table: table, Op: "commit", Err: err}
	}

	metrics.RecordDBBatch(table, "success", time.Since(start).Seconds())
	db.logger.Info().
		Str("table", table).
		Str("op", op).
		Int("records", size).
		Int("written", written).
		Dur("duration", time.Since(start)).
		Msg("Batch committed")

	return written, nil
}

// execEach runs one statement per record and sums rows affected
func execEach[T any](ctx context.Context, tx pgx.Tx, query string, records []T, args func(T) []any) (int, error) {
	written := 0
	for i, r := range records {
		tag, err := tx.Exec(ctx, query, args(r)...)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}
