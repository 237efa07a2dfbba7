package sheets_test

import (
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-mxtoolbox/treeroutes/internal/models"
	"github.com/peter-mxtoolbox/treeroutes/internal/sheets"
)

func TestLoadCSV(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")

	t.Run("parses form headers", func(t *testing.T) {
		path := filepath.Join(dir, "requests.csv")
		filet.File(t, path, "Name,Full Address,Number of Trees,Notes\n"+
			"Smith,123 Main St Cedar Park TX,2,gate code 1234\n"+
			"Jones,500 Oak Dr Cedar Park TX,1,\n")

		records, rejected, err := sheets.LoadCSV(path)
		require.NoError(t, err)
		assert.Empty(t, rejected)
		require.Len(t, records, 2)

		assert.Equal(t, "Smith", records[0].Name)
		assert.Equal(t, "123 Main St Cedar Park TX", records[0].Address)
		assert.Equal(t, 2, records[0].Trees)
		assert.Equal(t, "gate code 1234", records[0].Notes)
		assert.NotEmpty(t, records[0].ID, "records get generated IDs")
		assert.NotEqual(t, records[0].ID, records[1].ID)
	})

	t.Run("rejects unusable rows without failing", func(t *testing.T) {
		path := filepath.Join(dir, "messy.csv")
		filet.File(t, path, "name,address,trees\n"+
			"Ghost,,1\n"+
			"Grinch,9 North Pole Way,minus-two\n"+
			"Smith,123 Main St,3\n")

		records, rejected, err := sheets.LoadCSV(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Smith", records[0].Name)

		require.Len(t, rejected, 2)
		assert.Equal(t, 2, rejected[0].Line)
		assert.Equal(t, "blank address", rejected[0].Reason)
		assert.Contains(t, rejected[1].Reason, "bad tree count")
	})

	t.Run("missing tree count defaults to one", func(t *testing.T) {
		path := filepath.Join(dir, "notrees.csv")
		filet.File(t, path, "name,address,trees\nSmith,123 Main St,\n")

		records, _, err := sheets.LoadCSV(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 1, records[0].Trees)
	})

	t.Run("no usable rows is fatal", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		filet.File(t, path, "name,address,trees\n,,\n")

		_, _, err := sheets.LoadCSV(path)
		require.ErrorIs(t, err, sheets.ErrNoRows)
	})

	t.Run("missing address column is fatal", func(t *testing.T) {
		path := filepath.Join(dir, "noaddr.csv")
		filet.File(t, path, "name,trees\nSmith,2\n")

		_, _, err := sheets.LoadCSV(path)
		require.ErrorIs(t, err, sheets.ErrNoRows)
	})
}

func TestSaveCSVRoundTrip(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "snapshot.csv")

	records := []models.AddressRecord{
		{ID: "id-1", Name: "Smith", Address: "123 Main St", Trees: 2, Notes: "back porch"},
		{ID: "id-2", Name: "Jones", Address: "500 Oak Dr", Trees: 1},
	}
	require.NoError(t, sheets.SaveCSV(records, path))

	loaded, rejected, err := sheets.LoadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, records, loaded, "IDs must be stable across the snapshot")
}
