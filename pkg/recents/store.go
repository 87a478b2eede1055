package recents

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cap is the maximum number of records the store retains. Inserting past the
// cap evicts the least-recently-updated records.
const Cap = 10

// Store owns the authoritative recents list. Consumers get copies and mutate
// only through Load, Upsert and ClearForIdentityChange; they never touch the
// list directly. Persistence is best-effort: cache failures are logged and
// swallowed so the chat surfaces keep working without a cache.
type Store struct {
	mu       sync.Mutex
	records  []Record // most recently updated first
	identity string

	cache  Cache
	logger *zap.Logger
}

// NewStore creates a store backed by the given cache.
func NewStore(cache Cache, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{cache: cache, logger: logger}
}

// Merge reconciles a local cache view with the remote backend's view.
// Remote wins on id conflict regardless of timestamps; local-only records are
// retained. The result is sorted most-recently-updated first, deduplicated,
// and truncated to Cap.
func Merge(local, remote []Record) []Record {
	seen := make(map[string]struct{}, len(local)+len(remote))
	merged := make([]Record, 0, len(local)+len(remote))

	for _, rec := range remote {
		if rec.ID == "" {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		merged = append(merged, rec)
	}
	for _, rec := range local {
		if rec.ID == "" {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		merged = append(merged, rec)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].UpdatedAt.After(merged[j].UpdatedAt)
	})

	if len(merged) > Cap {
		merged = merged[:Cap]
	}
	return merged
}

// Load adopts the merge of the identity's cached records and the remote view,
// persists the result, and returns it. A failing cache degrades to an empty
// local view.
func (s *Store) Load(ctx context.Context, identity string, remote []Record) []Record {
	local, err := s.cache.Load(ctx, identity)
	if err != nil {
		s.logger.Warn("recents cache unavailable, loading remote only",
			zap.String("identity", identity),
			zap.Error(err),
		)
		local = nil
	}

	merged := Merge(local, remote)

	s.mu.Lock()
	s.identity = identity
	s.records = merged
	s.mu.Unlock()

	s.persist(ctx, identity, merged)
	return s.List()
}

// Upsert replaces the record with a matching id or prepends a new one, then
// truncates to Cap. Either way the record becomes the most recent. Calling
// Upsert twice with an identical record is a no-op the second time.
func (s *Store) Upsert(ctx context.Context, rec Record) []Record {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	next := make([]Record, 0, len(s.records)+1)
	next = append(next, rec)
	for _, existing := range s.records {
		if existing.ID != rec.ID {
			next = append(next, existing)
		}
	}
	if len(next) > Cap {
		next = next[:Cap]
	}
	s.records = next
	identity := s.identity
	snapshot := make([]Record, len(next))
	copy(snapshot, next)
	s.mu.Unlock()

	s.persist(ctx, identity, snapshot)
	return snapshot
}

// ClearForIdentityChange drops the in-memory list when the authenticated
// identity changes. The previous identity's cache rows are left in place,
// scoped under its own key, so a later sign-in can reload them.
func (s *Store) ClearForIdentityChange() {
	s.mu.Lock()
	s.records = nil
	s.identity = ""
	s.mu.Unlock()
}

// Purge removes the current identity's records from memory and cache.
func (s *Store) Purge(ctx context.Context) {
	s.mu.Lock()
	identity := s.identity
	s.records = nil
	s.mu.Unlock()

	if err := s.cache.Clear(ctx, identity); err != nil {
		s.logger.Warn("failed to clear recents cache",
			zap.String("identity", identity),
			zap.Error(err),
		)
	}
}

// List returns a copy of the current records, most recent first.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]Record, len(s.records))
	copy(copied, s.records)
	return copied
}

// persist writes the snapshot through to the cache, logging failures instead
// of propagating them.
func (s *Store) persist(ctx context.Context, identity string, records []Record) {
	if err := s.cache.Save(ctx, identity, records); err != nil {
		s.logger.Warn("failed to persist recents",
			zap.String("identity", identity),
			zap.Int("count", len(records)),
			zap.Error(err),
		)
	}
}
