package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// replacer standardizes common street-suffix spellings so that
// "123 Main Street" and "123 main st" hit the same cache entry.
var replacer = strings.NewReplacer(
	" street", " st",
	" drive", " dr",
	" road", " rd",
	" avenue", " ave",
	" lane", " ln",
	" court", " ct",
	" circle", " cir",
	" boulevard", " blvd",
	" place", " pl",
	" trail", " trl",
	" way", " wy",
	" texas", " tx",
)

// Normalize canonicalizes an address string for use as a cache key.
// It lowercases, standardizes suffix abbreviations, strips punctuation
// and collapses whitespace. Normalize is idempotent.
func Normalize(address string) string {
	normalized := strings.ToLower(address)
	normalized = replacer.Replace(normalized)
	normalized = strings.ReplaceAll(normalized, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", "")

	return strings.Join(strings.Fields(normalized), " ")
}

// Key derives the cache key for a normalized address. Hashing keeps keys
// fixed-length and avoids any dependence on address formatting.
func Key(normalized string) []byte {
	sum := sha256.Sum256([]byte(normalized))
	return []byte(hex.EncodeToString(sum[:])[:16])
}
