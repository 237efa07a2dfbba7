package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/peter-mxtoolbox/treeroutes/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the subset of the Google Maps client used for
// geocoding. Defined as an interface so tests can substitute a mock.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider initializes a new GoogleProvider with the given client and logger.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode resolves an address to coordinates using the Google Maps Geocoding
// API. A zero-result response or a partial match returns a *Failure so the
// caller can cache the outcome permanently; transport errors are returned
// as-is and are retryable.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := maps.GeocodingRequest{Address: address}
	results, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(results) == 0 {
		return nil, &Failure{Address: address, Reason: ReasonZeroResults}
	}
	if results[0].PartialMatch {
		return nil, &Failure{Address: address, Reason: ReasonAmbiguous}
	}

	loc := results[0].Geometry.Location

	return &models.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
