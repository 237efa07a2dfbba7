// Package cli wires the pipeline stages into a cobra command tree:
// fetch -> geocode -> cluster -> adjust -> export. Each stage reads the
// previous stage's file from the data directory, so stages can be re-run
// independently during a planning week.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/peter-mxtoolbox/treeroutes/internal/config"
	"github.com/peter-mxtoolbox/treeroutes/internal/service"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "treeroutes",
	Short: "Build tree-pickup routes from signup-form addresses",
	Long: `treeroutes turns volunteer-submitted pickup requests into
capacity-balanced driving routes.

The pipeline runs in stages, each writing its result into the data
directory:

  fetch    pull request rows from the signup Google Sheet
  geocode  resolve addresses to coordinates (cache-first)
  cluster  group addresses into routes under the trailer capacity
  adjust   interactively move or merge routes
  export   write the map, GeoJSON and printable route sheets

Configuration comes from TREEROUTES_* environment variables (a .env file
is read if present).`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		cfg = config.MustLoad()
		logger = setupLogger(cfg.Env)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Stage file locations inside the data directory.
func requestsPath() string    { return filepath.Join(cfg.DataDir, "requests.csv") }
func geocodedPath() string    { return filepath.Join(cfg.DataDir, "geocoded.json") }
func assignmentsPath() string { return filepath.Join(cfg.DataDir, "assignments.json") }
func mapPath() string         { return filepath.Join(cfg.DataDir, "map.html") }
func geojsonPath() string     { return filepath.Join(cfg.DataDir, "routes.geojson") }
func sheetsDir() string       { return filepath.Join(cfg.DataDir, "sheets") }

// saveGeocoded persists the geocode stage result for the cluster stage.
func saveGeocoded(result *service.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode geocoding result: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write geocoding result: %w", err)
	}
	return nil
}

// loadGeocoded reads the geocode stage result back.
func loadGeocoded(path string) (*service.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocoding result (run geocode first): %w", err)
	}
	var result service.Result
	if err = json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode geocoding result: %w", err)
	}
	return &result, nil
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}),
		)
		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
