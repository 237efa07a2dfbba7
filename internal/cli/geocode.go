package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/peter-mxtoolbox/treeroutes/internal/cache"
	"github.com/peter-mxtoolbox/treeroutes/internal/geocoding"
	"github.com/peter-mxtoolbox/treeroutes/internal/metrics"
	"github.com/peter-mxtoolbox/treeroutes/internal/service"
	"github.com/peter-mxtoolbox/treeroutes/internal/sheets"
)

var geocodeInput string

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve request addresses to coordinates",
	Long: `Geocode resolves every address in requests.csv to coordinates,
consulting the persistent cache before calling the provider. First runs pay
for API calls; re-runs are free. Failed addresses are recorded in the
result and excluded from clustering, never dropped silently.

Interrupting the run is safe: every completed lookup is already in the
cache, and re-running resumes where it left off.`,
	RunE: runGeocode,
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeInput, "input", "", "input CSV (defaults to requests.csv in the data dir)")
	rootCmd.AddCommand(geocodeCmd)
}

func runGeocode(cmd *cobra.Command, _ []string) error {
	// Cancel on Ctrl+C so the batch stops between lookups, never mid-write.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input := geocodeInput
	if input == "" {
		input = requestsPath()
	}

	records, rejected, err := sheets.LoadCSV(input)
	if err != nil {
		return err
	}
	for _, rejection := range rejected {
		logger.Warn("Rejected input row", "line", rejection.Line, "reason", rejection.Reason)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	appMetrics := metrics.NewMetrics(reg)
	if cfg.MetricsPort > 0 {
		go startMetricsServer(ctx, logger, reg, cfg.MetricsPort)
	}

	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.ProviderType),
		APIKey:    cfg.APIKey,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create geocoding provider: %w", err)
	}
	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.ProviderType)

	geocache, err := cache.Open(cfg.CachePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := geocache.Close(); closeErr != nil {
			logger.Error("Failed to close cache", "error", closeErr)
		}
	}()

	resolver := service.NewResolver(logger, geocache, provider, cfg.ProviderType, appMetrics)

	result, err := resolver.ResolveBatch(ctx, records)
	// Persist whatever resolved before deciding the run's fate; the cache
	// already holds every completed lookup either way.
	if result != nil && (len(result.Resolved) > 0 || len(result.Failed) > 0) {
		if saveErr := saveGeocoded(result, geocodedPath()); saveErr != nil {
			logger.Error("Failed to save geocoding result", "error", saveErr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("Geocoded %d/%d addresses (%d API calls) -> %s\n",
		len(result.Resolved), len(records), result.APICalls, geocodedPath())
	if len(result.Failed) > 0 {
		fmt.Printf("%d addresses failed to geocode:\n", len(result.Failed))
		for _, failed := range result.Failed {
			fmt.Printf("  %s: %s (%s)\n", failed.Record.Name, failed.Record.Address, failed.Reason)
		}
	}
	return nil
}

// startMetricsServer exposes /metrics while a long batch runs.
func startMetricsServer(ctx context.Context, log *slog.Logger, reg *prometheus.Registry, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.InfoContext(ctx, "Starting metrics server", "port", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "Metrics server failed", "error", err)
	}
}
