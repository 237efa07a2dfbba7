package routes_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-mxtoolbox/treeroutes/internal/models"
	"github.com/peter-mxtoolbox/treeroutes/internal/routes"
)

func geocoded(id string, trees int) models.GeocodedAddress {
	return models.GeocodedAddress{
		AddressRecord: models.AddressRecord{ID: id, Name: "resident " + id, Address: id + " Test Ln", Trees: trees},
		Coordinates:   models.Coordinates{Latitude: 30.5, Longitude: -97.8},
	}
}

// buildTable assigns n addresses with the given tree count to each route.
func buildTable(t *testing.T, perRoute map[string]int, trees int) *routes.Table {
	t.Helper()
	table := routes.New()
	for routeID, n := range perRoute {
		for i := 0; i < n; i++ {
			table.Assign(geocoded(fmt.Sprintf("%s%d", routeID, i), trees), routeID)
		}
	}
	require.NoError(t, table.Validate())
	return table
}

func TestTableMove(t *testing.T) {
	table := buildTable(t, map[string]int{"A": 2, "B": 2}, 5)

	t.Run("moves between routes", func(t *testing.T) {
		require.NoError(t, table.Move("A0", "B"))
		assert.Equal(t, "B", table.Assignments["A0"])
		assert.Equal(t, 15, table.Trees("B"))
		assert.Equal(t, 5, table.Trees("A"))
		require.NoError(t, table.Validate())
	})

	t.Run("move to a fresh route creates it", func(t *testing.T) {
		require.NoError(t, table.Move("A1", "C"))
		assert.Contains(t, table.RouteIDs(), "C")
		require.NoError(t, table.Validate())
	})

	t.Run("unknown address rejected", func(t *testing.T) {
		err := table.Move("nope", "A")
		require.ErrorIs(t, err, routes.ErrStructural)
		require.NoError(t, table.Validate())
	})

	t.Run("empty target rejected", func(t *testing.T) {
		err := table.Move("B0", "")
		require.ErrorIs(t, err, routes.ErrStructural)
		assert.Equal(t, "B", table.Assignments["B0"])
	})
}

func TestTableMerge(t *testing.T) {
	t.Run("merge folds b into a", func(t *testing.T) {
		table := buildTable(t, map[string]int{"A": 5, "B": 3}, 2)

		require.NoError(t, table.Merge("A", "B"))

		assert.Len(t, table.Route("A"), 8)
		assert.NotContains(t, table.RouteIDs(), "B", "no residual reference to the merged route")
		assert.Equal(t, 16, table.Trees("A"))
		require.NoError(t, table.Validate())
	})

	t.Run("self merge rejected", func(t *testing.T) {
		table := buildTable(t, map[string]int{"A": 2}, 2)
		require.ErrorIs(t, table.Merge("A", "A"), routes.ErrStructural)
	})

	t.Run("unknown routes rejected", func(t *testing.T) {
		table := buildTable(t, map[string]int{"A": 2}, 2)
		require.ErrorIs(t, table.Merge("A", "Z"), routes.ErrStructural)
		require.ErrorIs(t, table.Merge("Z", "A"), routes.ErrStructural)
		assert.Len(t, table.Route("A"), 2, "failed merge must leave the table unchanged")
	})
}

func TestTableViolations(t *testing.T) {
	table := buildTable(t, map[string]int{"A": 3, "B": 1}, 10)

	violations := table.Violations(22)
	require.Len(t, violations, 1)
	assert.Equal(t, "A", violations[0].RouteID)
	assert.Equal(t, 30, violations[0].Trees)
	assert.Equal(t, 8, violations[0].Over)

	assert.Empty(t, table.Violations(30))
}

func TestTableTotals(t *testing.T) {
	table := buildTable(t, map[string]int{"A": 2, "B": 3}, 4)

	assert.Equal(t, 5, table.Len())
	assert.Equal(t, 20, table.TotalTrees())
	assert.Equal(t, []string{"A", "B"}, table.RouteIDs())
}

func TestTableSaveLoad(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "assignments.json")

	table := buildTable(t, map[string]int{"A": 2, "B": 1}, 3)
	require.NoError(t, table.Save(path))

	loaded, err := routes.Load(path)
	require.NoError(t, err)
	assert.Equal(t, table.Assignments, loaded.Assignments)
	assert.Equal(t, table.Records, loaded.Records)
}

func TestTableLoadRejectsCorrupt(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")

	t.Run("missing file", func(t *testing.T) {
		_, err := routes.Load(filepath.Join(dir, "missing.json"))
		require.Error(t, err)
	})

	t.Run("assignment without record", func(t *testing.T) {
		path := filepath.Join(dir, "orphan.json")
		filet.File(t, path, `{"records":{},"assignments":{"ghost":"A"}}`)

		_, err := routes.Load(path)
		require.ErrorIs(t, err, routes.ErrStructural)
	})
}
