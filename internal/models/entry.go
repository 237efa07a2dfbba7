package models

import "time"

// EntryStatus describes how a geocode lookup resolved.
type EntryStatus string

const (
	// StatusSuccess marks an address that resolved to coordinates.
	StatusSuccess EntryStatus = "success"
	// StatusFailure marks an address the provider returned zero results for.
	StatusFailure EntryStatus = "failure"
	// StatusAmbiguous marks an address the provider could not resolve uniquely.
	StatusAmbiguous EntryStatus = "ambiguous"
)

// GeocodeEntry is one record in the geocode cache, keyed by the normalized
// address string. Entries are permanent: addresses do not move, and a bad
// address stays bad until someone fixes the input (which produces a new key).
type GeocodeEntry struct {
	Address    string      `json:"address"`          // Address is the original string, kept for reference.
	Normalized string      `json:"normalized"`       // Normalized is the cache key form of the address.
	Latitude   float64     `json:"latitude"`         // Latitude of the resolved point, zero on failure.
	Longitude  float64     `json:"longitude"`        // Longitude of the resolved point, zero on failure.
	Status     EntryStatus `json:"status"`           // Status records how the lookup resolved.
	Reason     string      `json:"reason,omitempty"` // Reason holds the provider error for failed lookups.
	CachedAt   time.Time   `json:"cached_at"`        // CachedAt is when the entry was first written.
}

// Resolved reports whether the entry carries usable coordinates.
func (e GeocodeEntry) Resolved() bool {
	return e.Status == StatusSuccess
}

// Coords returns the entry's coordinates.
func (e GeocodeEntry) Coords() Coordinates {
	return Coordinates{Latitude: e.Latitude, Longitude: e.Longitude}
}
