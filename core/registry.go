package core

import (
	"strings"
	"sync"
)

// URLRegistry tracks every fingerprint ever submitted so producers can
// cheaply skip work the store has already seen, even after the resident
// entry was dispatched. Fingerprints are compared exactly as given:
// canonicalization already folds the dimensions that should collide, and
// the ones it preserves (path case, escapes) must stay distinct here too.
type URLRegistry struct {
	seen sync.Map
}

func NewURLRegistry() *URLRegistry {
	return &URLRegistry{}
}

// Duplicate records the fingerprint and reports whether it was already
// known.
func (r *URLRegistry) Duplicate(fingerprint string) bool {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return false
	}
	_, loaded := r.seen.LoadOrStore(fingerprint, struct{}{})
	return loaded
}

// Seen reports whether the fingerprint was recorded, without recording
// it. Producers use this as a cheap pre-check; the dispatching worker
// still performs the authoritative Duplicate call.
func (r *URLRegistry) Seen(fingerprint string) bool {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return false
	}
	_, found := r.seen.Load(fingerprint)
	return found
}
