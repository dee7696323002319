// Package postgres provides a PostgreSQL implementation of transport.UsageStore.
// It uses pgx/v5 for connection pooling.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/dolmetsch/pkg/storage"
	"github.com/rhuss/dolmetsch/pkg/transport"
)

// Store is a PostgreSQL-backed UsageStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements transport.UsageStore at compile time.
var _ transport.UsageStore = (*Store)(nil)

// recordColumns is the column list shared by all record queries, in
// scanRecord order.
const recordColumns = `id, request_id, tenant_id, dialect, model, mapped_model,
       stream, input_tokens, output_tokens, stop_reason, latency_ms, created_at`

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// SaveRecord persists a usage record. An ID, tenant (from the context),
// and timestamp are assigned when the record carries none.
func (s *Store) SaveRecord(ctx context.Context, rec *storage.UsageRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	tenantID := rec.TenantID
	if tenantID == "" {
		tenantID = storage.GetTenant(ctx)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO usage_records (
			id, request_id, tenant_id, dialect, model, mapped_model,
			stream, input_tokens, output_tokens, stop_reason, latency_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		id, rec.RequestID, nullString(tenantID), rec.Dialect, rec.Model, rec.MappedModel,
		rec.Stream, rec.InputTokens, rec.OutputTokens, nullString(rec.StopReason), rec.LatencyMS, createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting usage record: %w", err)
	}

	return nil
}

// GetRecord retrieves the most recent record for a request ID. Returns
// ErrNotFound if no record matches. Scoped by tenant when a tenant is
// present in the context.
func (s *Store) GetRecord(ctx context.Context, requestID string) (*storage.UsageRecord, error) {
	query := "SELECT " + recordColumns + " FROM usage_records WHERE request_id = $1"
	args := []any{requestID}

	if tenantID := storage.GetTenant(ctx); tenantID != "" {
		args = append(args, tenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC LIMIT 1"

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying usage record: %w", err)
	}

	return rec, nil
}

// ListRecords returns matching records, newest first.
func (s *Store) ListRecords(ctx context.Context, opts storage.ListOptions) ([]*storage.UsageRecord, error) {
	var conds []string
	var args []any

	if tenantID := storage.GetTenant(ctx); tenantID != "" {
		args = append(args, tenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if opts.Model != "" {
		args = append(args, opts.Model)
		conds = append(conds, fmt.Sprintf("model = $%d", len(args)))
	}
	if !opts.Since.IsZero() {
		args = append(args, opts.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := "SELECT " + recordColumns + " FROM usage_records"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, opts.EffectiveLimit())
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage records: %w", err)
	}
	defer rows.Close()

	var out []*storage.UsageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning usage record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage records: %w", err)
	}

	return out, nil
}

// Summarize aggregates records created at or after since, grouped by
// tenant and mapped model and ordered by (tenant, mapped model).
func (s *Store) Summarize(ctx context.Context, since time.Time) ([]*storage.UsageSummary, error) {
	var conds []string
	var args []any

	if tenantID := storage.GetTenant(ctx); tenantID != "" {
		args = append(args, tenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if !since.IsZero() {
		args = append(args, since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `
		SELECT COALESCE(tenant_id, ''), mapped_model,
		       COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM usage_records
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " GROUP BY tenant_id, mapped_model ORDER BY tenant_id NULLS FIRST, mapped_model"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage summary: %w", err)
	}
	defer rows.Close()

	var out []*storage.UsageSummary
	for rows.Next() {
		var sum storage.UsageSummary
		if err := rows.Scan(&sum.TenantID, &sum.MappedModel, &sum.Requests, &sum.InputTokens, &sum.OutputTokens); err != nil {
			return nil, fmt.Errorf("scanning usage summary: %w", err)
		}
		out = append(out, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage summary: %w", err)
	}

	return out, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scanRecord populates a UsageRecord from a row in recordColumns order.
func scanRecord(row pgx.Row) (*storage.UsageRecord, error) {
	var rec storage.UsageRecord
	var tenantID, stopReason *string

	if err := row.Scan(
		&rec.ID, &rec.RequestID, &tenantID, &rec.Dialect, &rec.Model, &rec.MappedModel,
		&rec.Stream, &rec.InputTokens, &rec.OutputTokens, &stopReason, &rec.LatencyMS, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	if tenantID != nil {
		rec.TenantID = *tenantID
	}
	if stopReason != nil {
		rec.StopReason = *stopReason
	}

	return &rec, nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
