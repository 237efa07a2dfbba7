package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/peter-mxtoolbox/treeroutes/internal/adjust"
	"github.com/peter-mxtoolbox/treeroutes/internal/routes"
)

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Interactively move addresses and merge routes",
	Long: `Adjust opens an interactive session over the clustered assignments.
Every accepted change is validated and saved immediately, so quitting at any
point is safe. Type "help" at the prompt for the command list.`,
	RunE: runAdjust,
}

func init() {
	rootCmd.AddCommand(adjustCmd)
}

func runAdjust(_ *cobra.Command, _ []string) error {
	table, err := routes.Load(assignmentsPath())
	if err != nil {
		return err
	}

	session := adjust.NewSession(
		table,
		assignmentsPath(),
		cfg.Capacity,
		func() error { return writeOutputs(table) },
		os.Stdin,
		os.Stdout,
		logger,
	)
	return session.Run()
}
