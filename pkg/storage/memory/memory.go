// Package memory provides an in-memory implementation of transport.UsageStore
// suitable for single-instance deployments, development, and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/dolmetsch/pkg/storage"
	"github.com/rhuss/dolmetsch/pkg/transport"
)

// Store is an in-memory UsageStore backed by an append-only ring of
// records with optional oldest-first eviction.
type Store struct {
	mu         sync.RWMutex
	records    []*storage.UsageRecord
	maxRecords int
	closed     bool
}

// Ensure Store implements transport.UsageStore at compile time.
var _ transport.UsageStore = (*Store)(nil)

// New creates a new in-memory store. If maxRecords is 0, the store grows
// without limit. If maxRecords > 0, the oldest record is evicted when the
// limit is reached.
func New(maxRecords int) *Store {
	return &Store{maxRecords: maxRecords}
}

// SaveRecord appends a usage record, evicting the oldest when at capacity.
// An ID, tenant (from the context), and timestamp are assigned when the
// record carries none.
func (s *Store) SaveRecord(ctx context.Context, rec *storage.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	c := *rec
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.TenantID == "" {
		c.TenantID = storage.GetTenant(ctx)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	// Evict if at capacity.
	if s.maxRecords > 0 && len(s.records) >= s.maxRecords {
		n := copy(s.records, s.records[1:])
		s.records = s.records[:n]
	}

	s.records = append(s.records, &c)
	return nil
}

// GetRecord retrieves the most recent record for a request ID. Returns
// ErrNotFound if no record matches. Scoped by tenant when a tenant is
// present in the context.
func (s *Store) GetRecord(ctx context.Context, requestID string) (*storage.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	tenantID := storage.GetTenant(ctx)
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.RequestID != requestID {
			continue
		}
		if tenantID != "" && rec.TenantID != tenantID {
			continue
		}
		c := *rec
		return &c, nil
	}

	return nil, storage.ErrNotFound
}

// ListRecords returns matching records, newest first.
func (s *Store) ListRecords(ctx context.Context, opts storage.ListOptions) ([]*storage.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	tenantID := storage.GetTenant(ctx)
	limit := opts.EffectiveLimit()

	out := make([]*storage.UsageRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.records[i]
		if tenantID != "" && rec.TenantID != tenantID {
			continue
		}
		if opts.Model != "" && rec.Model != opts.Model {
			continue
		}
		if !opts.Since.IsZero() && rec.CreatedAt.Before(opts.Since) {
			continue
		}
		c := *rec
		out = append(out, &c)
	}

	return out, nil
}

// Summarize aggregates records created at or after since, grouped by
// tenant and mapped model and ordered by (tenant, mapped model).
func (s *Store) Summarize(ctx context.Context, since time.Time) ([]*storage.UsageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	tenantID := storage.GetTenant(ctx)

	type key struct{ tenant, model string }
	groups := make(map[key]*storage.UsageSummary)

	for _, rec := range s.records {
		if tenantID != "" && rec.TenantID != tenantID {
			continue
		}
		if !since.IsZero() && rec.CreatedAt.Before(since) {
			continue
		}

		k := key{rec.TenantID, rec.MappedModel}
		sum, ok := groups[k]
		if !ok {
			sum = &storage.UsageSummary{TenantID: rec.TenantID, MappedModel: rec.MappedModel}
			groups[k] = sum
		}
		sum.Requests++
		sum.InputTokens += int64(rec.InputTokens)
		sum.OutputTokens += int64(rec.OutputTokens)
	}

	out := make([]*storage.UsageSummary, 0, len(groups))
	for _, sum := range groups {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TenantID != out[j].TenantID {
			return out[i].TenantID < out[j].TenantID
		}
		return out[i].MappedModel < out[j].MappedModel
	})

	return out, nil
}

// HealthCheck returns nil unless the store has been closed.
func (s *Store) HealthCheck(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

// Close marks the store closed and releases its records. Subsequent
// operations return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.records = nil
	return nil
}
