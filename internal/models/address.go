package models

// AddressRecord represents one pickup request submitted through the signup form.
type AddressRecord struct {
	ID      string `json:"id"`              // ID is the unique identifier for the request.
	Name    string `json:"name"`            // Name is the requester's display name.
	Address string `json:"address"`         // Address is the free-text street address as submitted.
	Trees   int    `json:"trees"`           // Trees is the number of trees to pick up.
	Notes   string `json:"notes,omitempty"` // Notes holds optional instructions from the requester.
}

// GeocodedAddress is an AddressRecord joined with its resolved coordinates.
// Only successfully resolved records are ever turned into a GeocodedAddress;
// failures are reported separately and never reach the clusterer.
type GeocodedAddress struct {
	AddressRecord
	Coordinates
}
