package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Paths     PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Geocode   GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Landmarks []LandmarkConfig `yaml:"landmarks" mapstructure:"landmarks"`
	Auditor   AuditorConfig    `yaml:"auditor" mapstructure:"auditor"`
	CPI       CPIConfig        `yaml:"cpi" mapstructure:"cpi"`
	Filter    FilterConfig     `yaml:"filter" mapstructure:"filter"`
	Store     StoreConfig      `yaml:"store" mapstructure:"store"`
	HTTP      HTTPConfig       `yaml:"http" mapstructure:"http"`
	Log       LogConfig        `yaml:"log" mapstructure:"log"`
}

// PathsConfig locates the input and output table of every stage.
type PathsConfig struct {
	RawDir         string `yaml:"raw_dir" mapstructure:"raw_dir"`
	RawEncoding    string `yaml:"raw_encoding" mapstructure:"raw_encoding"`
	Prepared       string `yaml:"prepared" mapstructure:"prepared"`
	ForScraping    string `yaml:"for_scraping" mapstructure:"for_scraping"`
	Transactions   string `yaml:"transactions" mapstructure:"transactions"`
	CPIRatios      string `yaml:"cpi_ratios" mapstructure:"cpi_ratios"`
	RealPrices     string `yaml:"real_prices" mapstructure:"real_prices"`
	ProgressEveryN int    `yaml:"progress_every" mapstructure:"progress_every"`
}

// GeocodeConfig selects and tunes the geocoding providers.
type GeocodeConfig struct {
	Providers    []string `yaml:"providers" mapstructure:"providers"`
	NominatimURL string   `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
	GoogleKey    string   `yaml:"google_key" mapstructure:"google_key"`
	RateLimit    float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Locality     string   `yaml:"locality" mapstructure:"locality"`
	CacheEnabled bool     `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheTTLDays int      `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// LandmarkConfig names a reference point that distances are measured to.
// Latitude and Longitude are optional; zero means geocode Address at start.
type LandmarkConfig struct {
	Name      string  `yaml:"name" mapstructure:"name"`
	Address   string  `yaml:"address" mapstructure:"address"`
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude"`
	Longitude float64 `yaml:"longitude" mapstructure:"longitude"`
}

// AuditorConfig configures the county auditor scrape.
type AuditorConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	TaxYear          int     `yaml:"tax_year" mapstructure:"tax_year"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	CacheEnabled     bool    `yaml:"cache_enabled" mapstructure:"cache_enabled"`
}

// CPIConfig configures CPI ratio download and lookup.
type CPIConfig struct {
	FREDKey        string `yaml:"fred_api_key" mapstructure:"fred_api_key"`
	FREDBaseURL    string `yaml:"fred_base_url" mapstructure:"fred_base_url"`
	Series         string `yaml:"series" mapstructure:"series"`
	ReferenceMonth string `yaml:"reference_month" mapstructure:"reference_month"`
}

// FilterConfig holds the plausibility thresholds for row filtering.
type FilterConfig struct {
	ReferenceLandmark string  `yaml:"reference_landmark" mapstructure:"reference_landmark"`
	MaxDistanceKm     float64 `yaml:"max_distance_km" mapstructure:"max_distance_km"`
	DropIncomplete    bool    `yaml:"drop_incomplete" mapstructure:"drop_incomplete"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// HTTPConfig configures the shared HTTP fetcher.
type HTTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Landmark returns the landmark with the given name.
func (c *Config) Landmark(name string) (LandmarkConfig, bool) {
	for _, l := range c.Landmarks {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return LandmarkConfig{}, false
}

// Validate checks that the keys a stage depends on are set.
func (c *Config) Validate(stage string) error {
	switch stage {
	case "prepare":
		if c.Paths.RawDir == "" {
			return eris.New("config: paths.raw_dir is required (CINCY_PATHS_RAW_DIR)")
		}
		if len(c.Landmarks) == 0 {
			return eris.New("config: at least one landmark is required")
		}
		for _, l := range c.Landmarks {
			if l.Name == "" {
				return eris.New("config: landmark name is required")
			}
			if l.Address == "" && l.Latitude == 0 && l.Longitude == 0 {
				return eris.Errorf("config: landmark %q needs an address or coordinates", l.Name)
			}
		}
		if len(c.Geocode.Providers) == 0 {
			return eris.New("config: geocode.providers is empty")
		}
	case "scrape":
		if c.Auditor.BaseURL == "" {
			return eris.New("config: auditor.base_url is required")
		}
	case "filter":
		if _, ok := c.Landmark(c.Filter.ReferenceLandmark); !ok {
			return eris.Errorf("config: filter.reference_landmark %q is not a configured landmark", c.Filter.ReferenceLandmark)
		}
	case "cpi", "cpi_fetch":
		if c.CPI.FREDKey == "" {
			return eris.New("config: cpi.fred_api_key is required (CINCY_CPI_FRED_API_KEY)")
		}
	}
	return nil
}

// Load reads configuration from ./config.yaml (optional) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path and environment. An empty path
// looks for an optional config.yaml in the working directory; a named file
// must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("CINCY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.raw_dir", "data/raw_sales_data")
	v.SetDefault("paths.raw_encoding", "utf-8")
	v.SetDefault("paths.prepared", "data/house_transactions_prepared.csv")
	v.SetDefault("paths.for_scraping", "data/house_transactions_for_scraping.csv")
	v.SetDefault("paths.transactions", "data/house_transactions.csv")
	v.SetDefault("paths.cpi_ratios", "data/fred.csv")
	v.SetDefault("paths.real_prices", "data/real_house_prices.csv")
	v.SetDefault("paths.progress_every", 1000)
	v.SetDefault("geocode.providers", []string{"nominatim"})
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.user_agent", "cincinnati-fc/1.0")
	v.SetDefault("geocode.google_key", "")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.locality", "Hamilton County, OH")
	v.SetDefault("geocode.cache_enabled", true)
	v.SetDefault("geocode.cache_ttl_days", 0)
	v.SetDefault("landmarks", []map[string]any{
		{"name": "Nippert", "address": "Nippert Stadium, Cincinnati, OH 45221"},
		{"name": "Mercy", "address": "689 US-50, Milford, OH 45150"},
	})
	v.SetDefault("auditor.base_url", "https://wedge1.hcauditor.org/view/re/")
	v.SetDefault("auditor.tax_year", 2021)
	v.SetDefault("auditor.user_agent", "Mozilla/5.0")
	v.SetDefault("auditor.concurrency", 2)
	v.SetDefault("auditor.rate_limit", 2.0)
	v.SetDefault("auditor.failure_threshold", 10)
	v.SetDefault("auditor.reset_timeout_secs", 60)
	v.SetDefault("auditor.cache_enabled", true)
	v.SetDefault("cpi.fred_api_key", "")
	v.SetDefault("cpi.fred_base_url", "https://api.stlouisfed.org/fred/series/observations")
	v.SetDefault("cpi.series", "CPIAUCSL")
	v.SetDefault("cpi.reference_month", "2020-01")
	v.SetDefault("filter.reference_landmark", "Nippert")
	v.SetDefault("filter.max_distance_km", 50.0)
	v.SetDefault("filter.drop_incomplete", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "cincinnati-fc.db")
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
