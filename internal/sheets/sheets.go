// Package sheets acquires pickup-request rows. The live source is the signup
// Google Sheet; fetched rows are written to a local CSV that the later
// pipeline stages (and re-runs) read, so the sheet is only touched once per
// planning day.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/peter-mxtoolbox/treeroutes/internal/models"
)

// ErrNoRows is returned when the source contains no usable rows at all.
// This is one of the two conditions that abort a run outright.
var ErrNoRows = errors.New("no usable input rows")

// RowError describes one rejected input row. Rejected rows never abort the
// fetch; they are reported for the form owner to chase up.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Fetcher pulls request rows from a Google Sheet using a service account.
type Fetcher struct {
	service *sheets.Service
	log     *slog.Logger
}

// NewFetcher builds a Fetcher authenticated with the given service-account
// credentials file. The sheet must be shared with the service account's
// client_email.
func NewFetcher(ctx context.Context, credentialsFile string, log *slog.Logger) (*Fetcher, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &Fetcher{service: service, log: log}, nil
}

// Fetch reads the given range of the spreadsheet and converts it to address
// records. The first row is treated as the header.
func (f *Fetcher) Fetch(ctx context.Context, spreadsheetID, readRange string) ([]models.AddressRecord, []RowError, error) {
	f.log.InfoContext(ctx, "Fetching rows from Google Sheets", "spreadsheet", spreadsheetID, "range", readRange)

	resp, err := f.service.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read spreadsheet %q: %w", spreadsheetID, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil, ErrNoRows
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprint(cell)
		}
		rows = append(rows, cells)
	}

	records, rejected, err := recordsFromRows(rows)
	if err != nil {
		return nil, nil, err
	}

	f.log.InfoContext(ctx, "Fetched request rows",
		"total", len(records), "rejected", len(rejected))
	return records, rejected, nil
}
