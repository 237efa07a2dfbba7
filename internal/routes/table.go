// Package routes holds the route-assignment model shared by the clusterer,
// the manual adjustment tool and the exporters. A Table maps every geocoded
// address to exactly one named route; it is the unit persisted between
// pipeline stages.
package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/peter-mxtoolbox/treeroutes/internal/models"
)

// ErrStructural is returned when an operation would leave the table in an
// invalid state (an unknown address, an unknown route, a self-merge). The
// table is left unchanged when it is returned.
var ErrStructural = errors.New("structural error")

// Violation flags a route whose total tree count exceeds capacity.
type Violation struct {
	RouteID string `json:"route_id"`
	Pickups int    `json:"pickups"`
	Trees   int    `json:"trees"`
	Over    int    `json:"over"`
}

// Table is the complete mapping from address ID to route ID for one run.
type Table struct {
	Records     map[string]models.GeocodedAddress `json:"records"`     // Records indexes every address by ID.
	Assignments map[string]string                 `json:"assignments"` // Assignments maps address ID to route ID.
}

// New returns an empty assignment table.
func New() *Table {
	return &Table{
		Records:     make(map[string]models.GeocodedAddress),
		Assignments: make(map[string]string),
	}
}

// Assign places an address on a route, creating the route implicitly.
// An address already present is reassigned.
func (t *Table) Assign(addr models.GeocodedAddress, routeID string) {
	t.Records[addr.ID] = addr
	t.Assignments[addr.ID] = routeID
}

// Move reassigns one address to the target route. Moving to a route that
// does not exist yet creates it. Returns ErrStructural for an unknown
// address or an empty route ID.
func (t *Table) Move(addressID, routeID string) error {
	if routeID == "" {
		return fmt.Errorf("%w: empty target route", ErrStructural)
	}
	if _, ok := t.Assignments[addressID]; !ok {
		return fmt.Errorf("%w: unknown address %q", ErrStructural, addressID)
	}
	t.Assignments[addressID] = routeID
	return nil
}

// Merge folds route b into route a. Every address on b is reassigned to a
// and b ceases to exist. Returns ErrStructural if either route is unknown
// or a == b.
func (t *Table) Merge(a, b string) error {
	if a == b {
		return fmt.Errorf("%w: cannot merge route %q with itself", ErrStructural, a)
	}
	routes := t.routeSet()
	if !routes[a] {
		return fmt.Errorf("%w: unknown route %q", ErrStructural, a)
	}
	if !routes[b] {
		return fmt.Errorf("%w: unknown route %q", ErrStructural, b)
	}
	for id, routeID := range t.Assignments {
		if routeID == b {
			t.Assignments[id] = a
		}
	}
	return nil
}

// RouteIDs returns every route identifier in sorted order.
func (t *Table) RouteIDs() []string {
	routes := t.routeSet()
	ids := make([]string, 0, len(routes))
	for id := range routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Route returns the addresses assigned to one route, sorted by address ID
// for stable output.
func (t *Table) Route(routeID string) []models.GeocodedAddress {
	var addrs []models.GeocodedAddress
	for id, assigned := range t.Assignments {
		if assigned == routeID {
			addrs = append(addrs, t.Records[id])
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].ID < addrs[j].ID })
	return addrs
}

// Trees returns the total tree count on one route.
func (t *Table) Trees(routeID string) int {
	total := 0
	for id, assigned := range t.Assignments {
		if assigned == routeID {
			total += t.Records[id].Trees
		}
	}
	return total
}

// TotalTrees returns the tree count across the whole table.
func (t *Table) TotalTrees() int {
	total := 0
	for id := range t.Assignments {
		total += t.Records[id].Trees
	}
	return total
}

// Len returns the number of assigned addresses.
func (t *Table) Len() int {
	return len(t.Assignments)
}

// Violations returns the routes whose tree totals exceed capacity, sorted
// by route ID.
func (t *Table) Violations(capacity int) []Violation {
	var out []Violation
	for _, routeID := range t.RouteIDs() {
		trees := t.Trees(routeID)
		if trees > capacity {
			out = append(out, Violation{
				RouteID: routeID,
				Pickups: len(t.Route(routeID)),
				Trees:   trees,
				Over:    trees - capacity,
			})
		}
	}
	return out
}

// Validate checks the table's structural invariant: every assignment refers
// to a known record, every record is assigned, and no route ID is empty.
func (t *Table) Validate() error {
	for id, routeID := range t.Assignments {
		if _, ok := t.Records[id]; !ok {
			return fmt.Errorf("%w: assignment for unknown address %q", ErrStructural, id)
		}
		if routeID == "" {
			return fmt.Errorf("%w: address %q assigned to empty route", ErrStructural, id)
		}
	}
	for id := range t.Records {
		if _, ok := t.Assignments[id]; !ok {
			return fmt.Errorf("%w: address %q has no route", ErrStructural, id)
		}
	}
	return nil
}

// Save writes the table to path as JSON. The write goes through a temp file
// and rename, so a crash never leaves a truncated table on disk.
func (t *Table) Save(path string) error {
	if err := t.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode assignment table: %w", err)
	}

	tmp := path + ".tmp"
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write assignment table: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace assignment table: %w", err)
	}
	return nil
}

// Load reads a table previously written by Save and validates it.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assignment table: %w", err)
	}

	table := New()
	if err = json.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("failed to decode assignment table: %w", err)
	}
	if table.Records == nil {
		table.Records = make(map[string]models.GeocodedAddress)
	}
	if table.Assignments == nil {
		table.Assignments = make(map[string]string)
	}
	if err = table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func (t *Table) routeSet() map[string]bool {
	routes := make(map[string]bool)
	for _, routeID := range t.Assignments {
		routes[routeID] = true
	}
	return routes
}
