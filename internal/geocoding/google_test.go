package geocoding_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"

	"github.com/peter-mxtoolbox/treeroutes/internal/geocoding"
	"github.com/peter-mxtoolbox/treeroutes/test/mocks"
)

func TestGoogleGeocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		address := "some invalid place"
		req := &maps.GeocodingRequest{Address: address}

		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		var failure *geocoding.Failure
		require.NotErrorAs(t, err, &failure, "transport errors must not be definitive failures")
	})

	t.Run("zero results", func(t *testing.T) {
		address := "nowhere at all"
		req := &maps.GeocodingRequest{Address: address}

		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.Nil(t, coords)
		var failure *geocoding.Failure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, geocoding.ReasonZeroResults, failure.Reason)
		assert.Equal(t, address, failure.Address)
	})

	t.Run("partial match is ambiguous", func(t *testing.T) {
		address := "Main St"
		req := &maps.GeocodingRequest{Address: address}
		mockResponse := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 30.50, Lng: -97.82}}, PartialMatch: true},
		}

		mockClient.On("Geocode", ctx, req).Return(mockResponse, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.Nil(t, coords)
		var failure *geocoding.Failure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, geocoding.ReasonAmbiguous, failure.Reason)
	})

	t.Run("successfull geocoding", func(t *testing.T) {
		address := "1101 Bagdad Rd, Cedar Park, TX"
		req := &maps.GeocodingRequest{Address: address}
		mockResponse := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 30.5217, Lng: -97.8309}}},
		}

		mockClient.On("Geocode", ctx, req).Return(mockResponse, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, coords)
		require.InEpsilon(t, 30.5217, coords.Latitude, 0.01)
		require.InEpsilon(t, -97.8309, coords.Longitude, 0.01)
	})
}
