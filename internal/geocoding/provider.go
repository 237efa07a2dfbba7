package geocoding

import (
	"context"
	"fmt"

	"github.com/peter-mxtoolbox/treeroutes/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and an address string as input, and
// returns the corresponding coordinates and an error if any occurs.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// FailureReason classifies why an address could not be resolved.
type FailureReason string

const (
	// ReasonZeroResults means the provider returned no match for the address.
	ReasonZeroResults FailureReason = "zero_results"
	// ReasonAmbiguous means the provider could not resolve the address to a
	// single location.
	ReasonAmbiguous FailureReason = "ambiguous"
)

// Failure is a definitive per-address geocoding failure. Unlike transport
// errors, a Failure is permanent for a given address string and is cached
// negatively so the address is never re-queried.
type Failure struct {
	Address string        // Address is the string that failed to resolve.
	Reason  FailureReason // Reason classifies the failure.
}

func (f *Failure) Error() string {
	return fmt.Sprintf("failed to geocode %q: %s", f.Address, f.Reason)
}

// StatusFor maps a failure reason to its cache entry status.
func StatusFor(reason FailureReason) models.EntryStatus {
	if reason == ReasonAmbiguous {
		return models.StatusAmbiguous
	}
	return models.StatusFailure
}
