// Package storage provides the key-value persistence layer behind the
// encounter session store.  Backends are interchangeable; all of them
// store opaque string values under string keys.
package storage

import "context"

// Well-known keys used by the session store.
const (
	KeyEncounters        = "encounters"
	KeyActiveEncounterID = "activeEncounterId"

	// ActiveSystemTabPrefix precedes an encounter id, forming the key
	// that remembers which body system tab that encounter last showed.
	ActiveSystemTabPrefix = "activeSystemTab:"
)

// ActiveSystemTabKey returns the per-encounter tab key.
func ActiveSystemTabKey(encounterID string) string {
	return ActiveSystemTabPrefix + encounterID
}

// Store is a synchronous key-value store.  Get reports ok=false when the
// key is absent.  Callers treat persistence as best-effort and log
// failures rather than propagating them to the user.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}
