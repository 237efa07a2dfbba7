package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peter-mxtoolbox/treeroutes/internal/sheets"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Pull request rows from the signup Google Sheet",
	Long: `Fetch reads the signup form responses from the configured Google
Sheet and writes them to requests.csv in the data directory, assigning a
stable ID to every row. Later stages read the CSV snapshot, never the sheet.

Requires TREEROUTES_SPREADSHEET_ID and a service-account credentials file;
the sheet must be shared with the service account's client_email.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if cfg.SpreadsheetID == "" {
		return errors.New("TREEROUTES_SPREADSHEET_ID is not set")
	}

	fetcher, err := sheets.NewFetcher(ctx, cfg.CredentialsFile, logger)
	if err != nil {
		return err
	}

	records, rejected, err := fetcher.Fetch(ctx, cfg.SpreadsheetID, cfg.SheetRange)
	if err != nil {
		return err
	}

	for _, rejection := range rejected {
		logger.Warn("Rejected input row", "line", rejection.Line, "reason", rejection.Reason)
	}

	if err = sheets.SaveCSV(records, requestsPath()); err != nil {
		return err
	}

	fmt.Printf("Fetched %d requests (%d rows rejected) -> %s\n",
		len(records), len(rejected), requestsPath())
	return nil
}
