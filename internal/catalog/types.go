// Package catalog implements the durable, crash-safe store of photo
// metadata, cache payloads, and synchronization tokens. It is the sole
// mutator of persistent state — every other component requests mutations
// through its exported methods and holds only transient references.
package catalog

import "time"

// CacheState describes which cache payload form, if any, a photo holds.
// The two populated forms (blob, file) never co-exist for one photo.
type CacheState string

const (
	CacheUnset CacheState = "unset"
	CacheBlob  CacheState = "blob"
	CacheFile  CacheState = "file"
)

// SortMode selects the display-candidate ordering policy.
type SortMode string

const (
	SortSequential SortMode = "sequential"
	SortRandom     SortMode = "random"
	SortNewest     SortMode = "newest"
	SortOldest     SortMode = "oldest"
)

// ParseSortMode validates a configured sort mode string, falling back to
// SortSequential for anything unrecognized.
func ParseSortMode(s string) SortMode {
	switch SortMode(s) {
	case SortSequential, SortRandom, SortNewest, SortOldest:
		return SortMode(s)
	default:
		return SortSequential
	}
}

// Photo is a single cloud-originated image tracked by the catalog.
type Photo struct {
	ID           string
	ProviderKey  string
	ContainerKey string
	Filename     string
	CreationTime time.Time
	Width        int // 0 if unknown
	Height       int // 0 if unknown
	Latitude     *float64
	Longitude    *float64
	LocationName string

	LastViewedAt *time.Time

	CacheState   CacheState
	BlobBytes    []byte
	BlobMimeType string
	FilePath     string
	SizeBytes    int64
	CachedAt     *time.Time
}

// Cached reports whether the photo currently has a populated cache payload.
func (p *Photo) Cached() bool {
	return p.CacheState == CacheBlob || p.CacheState == CacheFile
}
