package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/peter-mxtoolbox/treeroutes/internal/cache"
	"github.com/peter-mxtoolbox/treeroutes/internal/geocoding"
	"github.com/peter-mxtoolbox/treeroutes/internal/metrics"
	"github.com/peter-mxtoolbox/treeroutes/internal/models"
)

// maxConsecutiveOutages is how many back-to-back transport errors are
// tolerated before the provider is considered unavailable and the batch
// aborts. Definitive failures (zero results, ambiguous) never count.
const maxConsecutiveOutages = 5

// ErrProviderUnavailable is returned when the geocoding provider fails
// repeatedly with transport errors and no address in the batch can proceed.
var ErrProviderUnavailable = errors.New("geocoding provider unavailable")

// FailedAddress records one address that could not be resolved, with the
// reason. Failed addresses are excluded from clustering and surfaced for
// human review.
type FailedAddress struct {
	Record models.AddressRecord `json:"record"`
	Reason string               `json:"reason"`
}

// Result is the outcome of resolving one batch of address records.
type Result struct {
	Resolved []models.GeocodedAddress `json:"resolved"`
	Failed   []FailedAddress          `json:"failed"`
	APICalls int                      `json:"api_calls"`
}

// Resolver geocodes batches of address records, consulting the cache before
// issuing any provider call and writing every outcome back through the cache
// before moving on. Addresses are processed sequentially: pipelining could
// issue duplicate billable calls for the same normalized address within one
// run.
type Resolver struct {
	log          *slog.Logger       // Logger for logging service activities
	cache        *cache.Cache       // Persistent geocode cache
	provider     geocoding.Provider // Geocoding provider for external geocoding services
	providerName string             // Name of the provider for metrics labeling
	metrics      *metrics.Metrics   // Metrics for tracking service performance
}

// NewResolver creates a new Resolver.
func NewResolver(
	log *slog.Logger,
	geocache *cache.Cache,
	provider geocoding.Provider,
	providerName string,
	appMetrics *metrics.Metrics,
) *Resolver {
	return &Resolver{
		log:          log,
		cache:        geocache,
		provider:     provider,
		providerName: providerName,
		metrics:      appMetrics,
	}
}

// ResolveBatch geocodes every record in the batch. A per-address failure is
// recorded and the batch proceeds; only total provider unavailability or
// context cancellation aborts the run. The cache already reflects every
// completed lookup when ResolveBatch returns, even on error.
func (r *Resolver) ResolveBatch(ctx context.Context, records []models.AddressRecord) (*Result, error) {
	result := &Result{}
	outages := 0

	for idx, record := range records {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("batch interrupted: %w", err)
		}

		r.log.DebugContext(ctx, "Resolving address",
			"progress", fmt.Sprintf("%d/%d", idx+1, len(records)),
			"id", record.ID, "address", record.Address)

		entry, fromCache, err := r.lookupOrGeocode(ctx, record.Address)
		if err != nil {
			var failure *geocoding.Failure
			if errors.As(err, &failure) {
				// Definitive failure: already cached negatively above.
				outages = 0
				r.metrics.AddressesProcessed.WithLabelValues("failure").Inc()
				result.Failed = append(result.Failed, FailedAddress{Record: record, Reason: string(failure.Reason)})
				r.log.WarnContext(ctx, "Address failed to geocode", "id", record.ID,
					"address", record.Address, "reason", failure.Reason)
				continue
			}

			// Transport error: not cached, retryable on the next run.
			outages++
			r.metrics.ProviderErrors.Inc()
			r.metrics.AddressesProcessed.WithLabelValues("error").Inc()
			result.Failed = append(result.Failed, FailedAddress{Record: record, Reason: err.Error()})
			r.log.ErrorContext(ctx, "Provider error", "id", record.ID, "error", err)

			if outages >= maxConsecutiveOutages && len(result.Resolved) == 0 {
				return result, fmt.Errorf("%w: %d consecutive errors, last: %v",
					ErrProviderUnavailable, outages, err)
			}
			continue
		}
		outages = 0

		if !fromCache {
			result.APICalls++
		}

		if !entry.Resolved() {
			// Cached negative entry from an earlier run.
			r.metrics.AddressesProcessed.WithLabelValues("failure").Inc()
			result.Failed = append(result.Failed, FailedAddress{Record: record, Reason: entry.Reason})
			continue
		}

		r.metrics.AddressesProcessed.WithLabelValues("success").Inc()
		result.Resolved = append(result.Resolved, models.GeocodedAddress{
			AddressRecord: record,
			Coordinates:   entry.Coords(),
		})
	}

	stats := r.cache.Stats()
	r.log.InfoContext(ctx, "Batch geocoding finished",
		"total", len(records),
		"resolved", len(result.Resolved),
		"failed", len(result.Failed),
		"api_calls", result.APICalls,
		"cache_hits", stats.Hits,
		"cache_misses", stats.Misses,
	)

	return result, nil
}

// lookupOrGeocode serves an address from the cache when possible, and
// otherwise calls the provider and persists the outcome (success or
// definitive failure) before returning. The bool reports a cache hit.
func (r *Resolver) lookupOrGeocode(ctx context.Context, address string) (models.GeocodeEntry, bool, error) {
	normalized := cache.Normalize(address)

	entry, found, err := r.cache.Lookup(normalized)
	if err != nil {
		return models.GeocodeEntry{}, false, err
	}
	if found {
		r.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return entry, true, nil
	}
	r.metrics.CacheLookups.WithLabelValues("miss").Inc()

	start := time.Now()
	coords, err := r.provider.Geocode(ctx, address)
	r.metrics.RequestSeconds.WithLabelValues(r.providerName).Observe(time.Since(start).Seconds())

	if err != nil {
		var failure *geocoding.Failure
		if errors.As(err, &failure) {
			negative := models.GeocodeEntry{
				Address:    address,
				Normalized: normalized,
				Status:     geocoding.StatusFor(failure.Reason),
				Reason:     string(failure.Reason),
				CachedAt:   time.Now().UTC(),
			}
			if storeErr := r.cache.Store(negative); storeErr != nil {
				r.log.WarnContext(ctx, "Failed to cache negative entry", "address", address, "error", storeErr)
			}
		}
		return models.GeocodeEntry{}, false, err
	}

	entry = models.GeocodeEntry{
		Address:    address,
		Normalized: normalized,
		Latitude:   coords.Latitude,
		Longitude:  coords.Longitude,
		Status:     models.StatusSuccess,
		CachedAt:   time.Now().UTC(),
	}
	if err = r.cache.Store(entry); err != nil {
		if errors.Is(err, cache.ErrConflict) {
			// Data-integrity anomaly, not a crash: keep the fresh coordinates
			// for this run, leave the cached entry alone.
			r.log.WarnContext(ctx, "Cache conflict on store", "address", address, "error", err)
			return entry, false, nil
		}
		return models.GeocodeEntry{}, false, err
	}

	return entry, false, nil
}
