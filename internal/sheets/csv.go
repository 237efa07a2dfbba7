package sheets

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/peter-mxtoolbox/treeroutes/internal/models"
)

// Canonical header names. Matching is case-insensitive and ignores
// surrounding whitespace, so the form owner can rename columns freely.
const (
	colID      = "id"
	colName    = "name"
	colAddress = "address"
	colTrees   = "trees"
	colNotes   = "notes"
)

// LoadCSV reads address records from a local CSV file. The first row is the
// header. Rows with a blank address or an unusable tree count are rejected
// (reported, never fatal); an input with zero usable rows returns ErrNoRows.
func LoadCSV(path string) ([]models.AddressRecord, []RowError, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}

	return recordsFromRows(rows)
}

// SaveCSV writes records (with their IDs) so later stages and re-runs read a
// stable snapshot instead of hitting the sheet again.
func SaveCSV(records []models.AddressRecord, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err = writer.Write([]string{colID, colName, colAddress, colTrees, colNotes}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, record := range records {
		row := []string{record.ID, record.Name, record.Address, strconv.Itoa(record.Trees), record.Notes}
		if err = writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err = writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %q: %w", path, err)
	}
	return nil
}

// recordsFromRows converts raw rows (header first) into address records.
// Records without an id column get a generated UUID; ids become stable once
// the fetch stage saves its snapshot CSV.
func recordsFromRows(rows [][]string) ([]models.AddressRecord, []RowError, error) {
	if len(rows) == 0 {
		return nil, nil, ErrNoRows
	}

	index := headerIndex(rows[0])
	if _, ok := index[colAddress]; !ok {
		return nil, nil, fmt.Errorf("%w: no address column in header", ErrNoRows)
	}

	var records []models.AddressRecord
	var rejected []RowError

	for i, row := range rows[1:] {
		line := i + 2 // 1-based, after the header

		address := strings.TrimSpace(cell(row, index, colAddress))
		if address == "" {
			rejected = append(rejected, RowError{Line: line, Reason: "blank address"})
			continue
		}

		trees := 1
		if raw := strings.TrimSpace(cell(row, index, colTrees)); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				rejected = append(rejected, RowError{Line: line, Reason: fmt.Sprintf("bad tree count %q", raw)})
				continue
			}
			trees = parsed
		}

		id := strings.TrimSpace(cell(row, index, colID))
		if id == "" {
			id = uuid.NewString()
		}

		records = append(records, models.AddressRecord{
			ID:      id,
			Name:    strings.TrimSpace(cell(row, index, colName)),
			Address: address,
			Trees:   trees,
			Notes:   strings.TrimSpace(cell(row, index, colNotes)),
		})
	}

	if len(records) == 0 {
		return nil, rejected, ErrNoRows
	}
	return records, rejected, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		// Tolerate the form's verbose headings ("Number of Trees" etc).
		switch {
		case strings.Contains(key, colTrees):
			key = colTrees
		case strings.Contains(key, colAddress):
			key = colAddress
		case strings.Contains(key, colNotes):
			key = colNotes
		case key == colID:
		case strings.Contains(key, colName):
			key = colName
		}
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}
	return index
}

func cell(row []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
