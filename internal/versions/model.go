// Package versions owns the per-resource version chains: immutable content
// snapshots, a newest-first index per resource, bounded retention, and
// best-effort persistence into a local key-value store.
package versions

import "time"

// Version is an immutable snapshot of a resource's content. Once created it
// is never mutated in place.
type Version struct {
	ID            string            `json:"id"`
	ResourceID    string            `json:"resourceId"`
	Content       string            `json:"content"`
	Timestamp     time.Time         `json:"timestamp"`
	AuthorID      string            `json:"authorId"`
	AuthorName    string            `json:"authorName"`
	ChangeSummary string            `json:"changeSummary"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Filter selects versions for GetFilteredVersions. Zero-value fields are
// ignored; From/To bounds are inclusive. Limit 0 means no limit.
type Filter struct {
	ResourceIDs []string
	AuthorIDs   []string
	From        *time.Time
	To          *time.Time
	Offset      int
	Limit       int
}

// persistedState is the single JSON document written to the key-value store
// on every mutation.
type persistedState struct {
	Versions map[string]*Version `json:"versions"`
	Index    map[string][]string `json:"index"`
}
