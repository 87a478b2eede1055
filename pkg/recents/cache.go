package recents

import "context"

// Cache persists the recents list locally, scoped per identity so records
// from one signed-in user are never served to another. Implementations are
// best-effort: Load drops malformed entries instead of failing, and callers
// treat every error as recoverable.
type Cache interface {
	// Load returns the cached records for an identity. Unknown identities
	// yield an empty slice, not an error.
	Load(ctx context.Context, identity string) ([]Record, error)

	// Save replaces the cached records for an identity with the given
	// snapshot.
	Save(ctx context.Context, identity string, records []Record) error

	// Clear removes all cached records for an identity.
	Clear(ctx context.Context, identity string) error

	// Close releases any resources held by the cache.
	Close() error
}
