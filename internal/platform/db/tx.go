package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("odyssey-ledger/db")

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
// The transaction is rolled back when fn returns an error.
func WithTx(ctx context.Context, pool *pgxpool.Pool, name string, fn func(context.Context, pgx.Tx) error) error {
	return WithTxLevel(ctx, pool, name, pgx.RepeatableRead, fn)
}

// WithTxLevel is WithTx with an explicit isolation level. ReadCommitted suits
// transactions that wait on a lock and must then read what committed meanwhile.
func WithTxLevel(ctx context.Context, pool *pgxpool.Pool, name string, iso pgx.TxIsoLevel, fn func(context.Context, pgx.Tx) error) error {
	ctx, span := tracer.Start(ctx, "db.tx "+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("db.isolation", string(iso))),
	)
	defer span.End()

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin")
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		span.SetStatus(codes.Error, "rollback")
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit")
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
