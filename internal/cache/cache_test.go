package cache_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-mxtoolbox/treeroutes/internal/cache"
	"github.com/peter-mxtoolbox/treeroutes/internal/models"
)

func TestNormalize(t *testing.T) {
	t.Run("variations collapse to one key", func(t *testing.T) {
		variants := []string{
			"123 Main Street, Cedar Park, TX",
			"123 main st, cedar park, texas",
			"123 Main St., Cedar Park,  TX",
		}
		want := cache.Normalize(variants[0])
		for _, v := range variants {
			assert.Equal(t, want, cache.Normalize(v))
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{
			"123 Main Street, Cedar Park, TX",
			"  400  Oak   Drive ",
			"",
			"no punctuation here",
		}
		for _, s := range inputs {
			once := cache.Normalize(s)
			assert.Equal(t, once, cache.Normalize(once))
		}
	})
}

func TestCacheLookupAndStore(t *testing.T) {
	geocache, err := cache.OpenInMemory(slog.Default())
	require.NoError(t, err)
	defer geocache.Close()

	entry := models.GeocodeEntry{
		Address:    "123 Main Street, Cedar Park, TX",
		Normalized: cache.Normalize("123 Main Street, Cedar Park, TX"),
		Latitude:   30.5050,
		Longitude:  -97.8200,
		Status:     models.StatusSuccess,
		CachedAt:   time.Now().UTC(),
	}

	t.Run("absent key misses", func(t *testing.T) {
		_, found, lookErr := geocache.Lookup(entry.Normalized)
		require.NoError(t, lookErr)
		assert.False(t, found)
	})

	t.Run("store then lookup", func(t *testing.T) {
		require.NoError(t, geocache.Store(entry))

		got, found, lookErr := geocache.Lookup(entry.Normalized)
		require.NoError(t, lookErr)
		require.True(t, found)
		assert.InEpsilon(t, 30.5050, got.Latitude, 1e-9)
		assert.InEpsilon(t, -97.8200, got.Longitude, 1e-9)
		assert.Equal(t, models.StatusSuccess, got.Status)
	})

	t.Run("idempotent re-store is not a conflict", func(t *testing.T) {
		require.NoError(t, geocache.Store(entry))
	})

	t.Run("different coordinates conflict", func(t *testing.T) {
		moved := entry
		moved.Latitude = 31.0
		require.ErrorIs(t, geocache.Store(moved), cache.ErrConflict)

		// The original entry is untouched.
		got, found, lookErr := geocache.Lookup(entry.Normalized)
		require.NoError(t, lookErr)
		require.True(t, found)
		assert.InEpsilon(t, 30.5050, got.Latitude, 1e-9)
	})

	t.Run("success entry is never downgraded", func(t *testing.T) {
		negative := entry
		negative.Status = models.StatusFailure
		negative.Latitude = 0
		negative.Longitude = 0
		require.NoError(t, geocache.Store(negative))

		got, found, lookErr := geocache.Lookup(entry.Normalized)
		require.NoError(t, lookErr)
		require.True(t, found)
		assert.Equal(t, models.StatusSuccess, got.Status)
	})

	t.Run("stats count hits and misses", func(t *testing.T) {
		stats := geocache.Stats()
		assert.Positive(t, stats.Hits)
		assert.Positive(t, stats.Misses)
	})
}

func TestCacheNegativeEntries(t *testing.T) {
	geocache, err := cache.OpenInMemory(slog.Default())
	require.NoError(t, err)
	defer geocache.Close()

	negative := models.GeocodeEntry{
		Address:    "nowhere at all",
		Normalized: cache.Normalize("nowhere at all"),
		Status:     models.StatusFailure,
		Reason:     "zero_results",
		CachedAt:   time.Now().UTC(),
	}
	require.NoError(t, geocache.Store(negative))

	got, found, err := geocache.Lookup(negative.Normalized)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, got.Resolved())
	assert.Equal(t, "zero_results", got.Reason)

	// A corrected address is a different key and still geocodes.
	_, found, err = geocache.Lookup(cache.Normalize("100 Somewhere Ln"))
	require.NoError(t, err)
	assert.False(t, found)

	// Upgrading a failure to a success is allowed.
	fixed := negative
	fixed.Status = models.StatusSuccess
	fixed.Latitude = 30.1
	fixed.Longitude = -97.7
	require.NoError(t, geocache.Store(fixed))

	got, found, err = geocache.Lookup(negative.Normalized)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Resolved())
}

func TestCacheRoundTrip(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")

	entries := []models.GeocodeEntry{
		{
			Address:    "123 Main St, Cedar Park, TX",
			Normalized: cache.Normalize("123 Main St, Cedar Park, TX"),
			Latitude:   30.5050,
			Longitude:  -97.8200,
			Status:     models.StatusSuccess,
			CachedAt:   time.Now().UTC().Truncate(time.Second),
		},
		{
			Address:    "does not exist",
			Normalized: cache.Normalize("does not exist"),
			Status:     models.StatusFailure,
			Reason:     "zero_results",
			CachedAt:   time.Now().UTC().Truncate(time.Second),
		},
	}

	geocache, err := cache.Open(dir, slog.Default())
	require.NoError(t, err)
	for _, entry := range entries {
		require.NoError(t, geocache.Store(entry))
	}
	require.NoError(t, geocache.Close())

	// Reopen and verify every entry survived exactly.
	geocache, err = cache.Open(dir, slog.Default())
	require.NoError(t, err)
	defer geocache.Close()

	count, err := geocache.Len()
	require.NoError(t, err)
	assert.Equal(t, len(entries), count)

	for _, want := range entries {
		got, found, lookErr := geocache.Lookup(want.Normalized)
		require.NoError(t, lookErr)
		require.True(t, found, "entry %q lost on reload", want.Normalized)
		assert.Equal(t, want, got)
	}
}
