package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the route builder. Everything
// is environment-driven (TREEROUTES_* variables, optionally via a .env file)
// so the same binary serves the test and production spreadsheets.
//
// Fields:
// - Env: The current environment (local, development, production).
// - ProviderType: Which geocoding provider to use (google, nominatim).
// - APIKey: The API key for the Google provider.
// - RateLimit: Requests per second allowed against the provider.
// - Capacity: Maximum tree count per route (trailer limit).
// - Tolerance: Overage allowed before the clusterer adds a route.
// - MaxExtraRoutes: Retry budget above the initial route estimate.
// - Seed: Random seed for reproducible clustering.
// - CachePath: Directory holding the persistent geocode cache.
// - DataDir: Directory for CSVs, tables and rendered outputs.
// - SpreadsheetID: Google Sheet holding the signup form responses.
// - SheetRange: A1 range to read from the sheet.
// - CredentialsFile: Service-account credentials JSON for the Sheets API.
// - MetricsPort: Port for the /metrics endpoint during long batches (0 off).
type Config struct {
	Env             string
	ProviderType    string
	APIKey          string
	RateLimit       int
	Capacity        int
	Tolerance       int
	MaxExtraRoutes  int
	Seed            int64
	CachePath       string
	DataDir         string
	SpreadsheetID   string
	SheetRange      string
	CredentialsFile string
	MetricsPort     int
}

// MustLoad loads the configuration from the environment and returns a
// Config. It panics on values that cannot possibly work, since there is no
// sensible way to continue without a valid configuration.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TREEROUTES")
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("PROVIDER_TYPE", "google")
	v.SetDefault("RATE_LIMIT", 10)
	v.SetDefault("CAPACITY", 22)
	v.SetDefault("TOLERANCE", 0)
	v.SetDefault("MAX_EXTRA_ROUTES", 10)
	v.SetDefault("SEED", 42)
	v.SetDefault("CACHE_PATH", "data/geocode-cache")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("SHEET_RANGE", "A:E")
	v.SetDefault("CREDENTIALS_FILE", "credentials.json")
	v.SetDefault("METRICS_PORT", 0)

	cfg := &Config{
		Env:             v.GetString("ENV"),
		ProviderType:    v.GetString("PROVIDER_TYPE"),
		APIKey:          v.GetString("PROVIDER_KEY"),
		RateLimit:       v.GetInt("RATE_LIMIT"),
		Capacity:        v.GetInt("CAPACITY"),
		Tolerance:       v.GetInt("TOLERANCE"),
		MaxExtraRoutes:  v.GetInt("MAX_EXTRA_ROUTES"),
		Seed:            v.GetInt64("SEED"),
		CachePath:       v.GetString("CACHE_PATH"),
		DataDir:         v.GetString("DATA_DIR"),
		SpreadsheetID:   v.GetString("SPREADSHEET_ID"),
		SheetRange:      v.GetString("SHEET_RANGE"),
		CredentialsFile: v.GetString("CREDENTIALS_FILE"),
		MetricsPort:     v.GetInt("METRICS_PORT"),
	}

	if cfg.Capacity <= 0 {
		panic("capacity must be a positive number of trees")
	}
	if cfg.MaxExtraRoutes < 0 {
		panic("max extra routes must not be negative")
	}
	return cfg
}
