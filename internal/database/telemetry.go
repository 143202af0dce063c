package database

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "github.com/irfndi/oddsradar-go/internal/database"
	maxStatementLength = 256
)

// TracedDB wraps a pool and records a client span per statement.
type TracedDB struct {
	pool   DatabasePool
	tracer trace.Tracer
}

// NewTracedDB wraps pool with tracing using the global tracer provider.
func NewTracedDB(pool DatabasePool) *TracedDB {
	return &TracedDB{
		pool:   pool,
		tracer: otel.Tracer(tracerName),
	}
}

func (db *TracedDB) start(ctx context.Context, op, sql string) (context.Context, trace.Span) {
	return db.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operationName(sql)),
			attribute.String("db.statement", truncate(sql)),
		),
	)
}

// Query executes a query inside a span.
func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.start(ctx, "query", sql)
	defer span.End()

	rows, err := db.pool.Query(ctx, sql, args...)
	RecordDatabaseError(span, err)
	return rows, err
}

// QueryRow executes a single-row query inside a span. Scan errors surface
// to the caller, not the span.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.start(ctx, "query_row", sql)
	defer span.End()

	return db.pool.QueryRow(ctx, sql, args...)
}

// Exec executes a statement inside a span.
func (db *TracedDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.start(ctx, "exec", sql)
	defer span.End()

	tag, err := db.pool.Exec(ctx, sql, args...)
	RecordDatabaseError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	return tag, err
}

// Begin starts a transaction inside a span.
func (db *TracedDB) Begin(ctx context.Context) (pgx.Tx, error) {
	ctx, span := db.start(ctx, "begin", "BEGIN")
	defer span.End()

	tx, err := db.pool.Begin(ctx)
	RecordDatabaseError(span, err)
	return tx, err
}

// RecordDatabaseError marks span as failed when err is a real failure.
// pgx.ErrNoRows is an expected outcome and is not recorded.
func RecordDatabaseError(span trace.Span, err error) {
	if err == nil || isNoRows(err) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func truncate(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > maxStatementLength {
		return sql[:maxStatementLength] + "..."
	}
	return sql
}
