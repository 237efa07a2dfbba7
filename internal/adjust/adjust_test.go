package adjust_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Flaque/filet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-mxtoolbox/treeroutes/internal/adjust"
	"github.com/peter-mxtoolbox/treeroutes/internal/models"
	"github.com/peter-mxtoolbox/treeroutes/internal/routes"
)

func testTable(t *testing.T) *routes.Table {
	t.Helper()
	table := routes.New()
	for i := 0; i < 5; i++ {
		table.Assign(models.GeocodedAddress{
			AddressRecord: models.AddressRecord{ID: fmt.Sprintf("a%d", i), Name: fmt.Sprintf("Smith %d", i), Address: "1 Elm St", Trees: 6},
			Coordinates:   models.Coordinates{Latitude: 30.5, Longitude: -97.8},
		}, "A")
	}
	for i := 0; i < 3; i++ {
		table.Assign(models.GeocodedAddress{
			AddressRecord: models.AddressRecord{ID: fmt.Sprintf("b%d", i), Name: fmt.Sprintf("Jones %d", i), Address: "2 Oak St", Trees: 2},
			Coordinates:   models.Coordinates{Latitude: 30.6, Longitude: -97.7},
		}, "B")
	}
	return table
}

// runSession drives a session with scripted commands and returns its output.
func runSession(t *testing.T, table *routes.Table, regen func() error, script string) string {
	t.Helper()
	defer filet.CleanUp(t)
	path := filepath.Join(filet.TmpDir(t, ""), "assignments.json")
	require.NoError(t, table.Save(path))

	var out bytes.Buffer
	session := adjust.NewSession(table, path, 22, regen, strings.NewReader(script), &out, slog.Default())
	require.NoError(t, session.Run())
	return out.String()
}

func TestSessionMove(t *testing.T) {
	table := testTable(t)

	out := runSession(t, table, nil, "move a0 B\nquit\n")

	assert.Equal(t, "B", table.Assignments["a0"])
	assert.Contains(t, out, "moved Smith 0 (a0) to route B")
	require.NoError(t, table.Validate())
}

func TestSessionMerge(t *testing.T) {
	table := testTable(t)

	out := runSession(t, table, nil, "merge A B\nquit\n")

	assert.Len(t, table.Route("A"), 8)
	assert.NotContains(t, table.RouteIDs(), "B")
	assert.Contains(t, out, "merged route B into A: 8 pickups, 36 trees")
	// 36 trees against capacity 22 earns a warning.
	assert.Contains(t, out, "over capacity by 14")
}

func TestSessionViolations(t *testing.T) {
	table := testTable(t)

	out := runSession(t, table, nil, "violations\nquit\n")
	assert.Contains(t, out, "route A: 5 pickups, 30 trees (over by 8)")

	// Route B (6 trees) is fine and must not be listed.
	assert.NotContains(t, out, "route B:")
}

func TestSessionRejectsBadCommands(t *testing.T) {
	table := testTable(t)

	out := runSession(t, table, nil, "move ghost B\nmerge A A\nfrobnicate\nquit\n")

	assert.Contains(t, out, "error: structural error")
	assert.Contains(t, out, `unknown command "frobnicate"`)
	// Nothing changed.
	assert.Len(t, table.Route("A"), 5)
	assert.Len(t, table.Route("B"), 3)
}

func TestSessionFindAndRoutes(t *testing.T) {
	table := testTable(t)

	out := runSession(t, table, nil, "find jones 1\nroutes\nquit\n")

	assert.Contains(t, out, "b1  Jones 1  route B")
	assert.Contains(t, out, "route A: 5 pickups, 30 trees")
	assert.Contains(t, out, "route B: 3 pickups, 6 trees")
}

func TestSessionRegen(t *testing.T) {
	table := testTable(t)

	calls := 0
	out := runSession(t, table, func() error { calls++; return nil }, "regen\nquit\n")

	assert.Equal(t, 1, calls)
	assert.Contains(t, out, "outputs regenerated")
}

func TestSessionSavesEveryMutation(t *testing.T) {
	defer filet.CleanUp(t)
	path := filepath.Join(filet.TmpDir(t, ""), "assignments.json")

	table := testTable(t)
	require.NoError(t, table.Save(path))

	var out bytes.Buffer
	session := adjust.NewSession(table, path, 22, nil, strings.NewReader("move a0 B\nquit\n"), &out, slog.Default())
	require.NoError(t, session.Run())

	saved, err := routes.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "B", saved.Assignments["a0"])
}
