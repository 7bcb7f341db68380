package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/noplanalderson/argus/internal/usecase/scoring"
)

type Config struct {
	App        AppConfig
	Auth       AuthConfig
	ClickHouse ClickHouseConfig
	TIP        TIPConfig
	Blocklist  BlocklistConfig
	Weights    WeightsConfig
}

type AppConfig struct {
	Env  string
	Port int
	Host string
}

type AuthConfig struct {
	Secret string
}

type ClickHouseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TIPConfig struct {
	// Per-provider API keys, keyed by canonical provider name
	Keys map[string]string

	Concurrency    int
	RequestTimeout time.Duration
	Freshness      time.Duration
	CacheTTL       time.Duration
	RateLimit      float64
	RateBurst      int

	// Optional YAML descriptor file overriding the built-in provider set
	DescriptorPath string
}

type BlocklistConfig struct {
	// Plaintext source list, one IP per line
	SourcePath string
	// Badger index directory
	IndexPath string
	// Cron expression for the scheduled index rebuild
	RebuildSchedule string
}

type WeightsConfig struct {
	IP   scoring.WeightTable
	Hash scoring.WeightTable
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/etc/argus")

	viper.AutomaticEnv()

	bindEnvVars()
	setDefaults()

	// Config file is optional; env vars and defaults cover everything
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("Error reading config file", "error", err)
		}
	}

	config := &Config{
		App: AppConfig{
			Env:  viper.GetString("APP_ENV"),
			Port: viper.GetInt("APP_PORT"),
			Host: viper.GetString("APP_HOST"),
		},
		Auth: AuthConfig{
			Secret: viper.GetString("AUTH_SECRET"),
		},
		ClickHouse: ClickHouseConfig{
			Host:     viper.GetString("CLICKHOUSE_HOST"),
			Port:     viper.GetInt("CLICKHOUSE_PORT"),
			User:     viper.GetString("CLICKHOUSE_USER"),
			Password: viper.GetString("CLICKHOUSE_PASSWORD"),
			Database: viper.GetString("CLICKHOUSE_DATABASE"),
		},
		TIP: TIPConfig{
			Keys: map[string]string{
				scoring.ProviderVirusTotal:    viper.GetString("VIRUSTOTAL_API_KEY"),
				scoring.ProviderAbuseIPDB:     viper.GetString("ABUSEIPDB_API_KEY"),
				scoring.ProviderCrowdSec:      viper.GetString("CROWDSEC_API_KEY"),
				scoring.ProviderCriminalIP:    viper.GetString("CRIMINALIP_API_KEY"),
				scoring.ProviderThreatbook:    viper.GetString("THREATBOOK_API_KEY"),
				scoring.ProviderMalwareBazaar: viper.GetString("MALWAREBAZAAR_API_KEY"),
				scoring.ProviderYaraify:       viper.GetString("YARAIFY_API_KEY"),
				scoring.ProviderMalprobe:      viper.GetString("MALPROBE_API_KEY"),
			},
			Concurrency:    viper.GetInt("TIP_CONCURRENCY"),
			RequestTimeout: viper.GetDuration("TIP_REQUEST_TIMEOUT"),
			Freshness:      viper.GetDuration("TIP_FRESHNESS"),
			CacheTTL:       viper.GetDuration("TIP_CACHE_TTL"),
			RateLimit:      viper.GetFloat64("TIP_RATE_LIMIT"),
			RateBurst:      viper.GetInt("TIP_RATE_BURST"),
			DescriptorPath: viper.GetString("TIP_DESCRIPTOR_PATH"),
		},
		Blocklist: BlocklistConfig{
			SourcePath:      viper.GetString("BLOCKLIST_SOURCE_PATH"),
			IndexPath:       viper.GetString("BLOCKLIST_INDEX_PATH"),
			RebuildSchedule: viper.GetString("BLOCKLIST_REBUILD_SCHEDULE"),
		},
		Weights: WeightsConfig{
			IP:   weightTable("weights.ip", defaultIPWeights),
			Hash: weightTable("weights.hash", defaultHashWeights),
		},
	}

	return config, nil
}

// Nominal provider weight tables. Overridable per provider from the config
// file; each table should sum to 1.0.
var defaultIPWeights = scoring.WeightTable{
	scoring.ProviderVirusTotal: 0.05,
	scoring.ProviderBlocklist:  0.25,
	scoring.ProviderAbuseIPDB:  0.20,
	scoring.ProviderCrowdSec:   0.15,
	scoring.ProviderCriminalIP: 0.15,
	scoring.ProviderThreatbook: 0.20,
}

var defaultHashWeights = scoring.WeightTable{
	scoring.ProviderVirusTotal:    0.40,
	scoring.ProviderYaraify:       0.10,
	scoring.ProviderMalwareBazaar: 0.20,
	scoring.ProviderMalprobe:      0.30,
}

func weightTable(prefix string, defaults scoring.WeightTable) scoring.WeightTable {
	table := make(scoring.WeightTable, len(defaults))
	for provider, weight := range defaults {
		key := prefix + "." + provider
		if viper.IsSet(key) {
			table[provider] = viper.GetFloat64(key)
		} else {
			table[provider] = weight
		}
	}
	return table
}

func bindEnvVars() {
	// App
	viper.BindEnv("APP_ENV")
	viper.BindEnv("APP_PORT")
	viper.BindEnv("APP_HOST")
	viper.BindEnv("AUTH_SECRET")

	// ClickHouse
	viper.BindEnv("CLICKHOUSE_HOST")
	viper.BindEnv("CLICKHOUSE_PORT")
	viper.BindEnv("CLICKHOUSE_USER")
	viper.BindEnv("CLICKHOUSE_PASSWORD")
	viper.BindEnv("CLICKHOUSE_DATABASE")

	// Threat intel providers
	viper.BindEnv("VIRUSTOTAL_API_KEY")
	viper.BindEnv("ABUSEIPDB_API_KEY")
	viper.BindEnv("CROWDSEC_API_KEY")
	viper.BindEnv("CRIMINALIP_API_KEY")
	viper.BindEnv("THREATBOOK_API_KEY")
	viper.BindEnv("MALWAREBAZAAR_API_KEY")
	viper.BindEnv("YARAIFY_API_KEY")
	viper.BindEnv("MALPROBE_API_KEY")

	// Collector tuning
	viper.BindEnv("TIP_CONCURRENCY")
	viper.BindEnv("TIP_REQUEST_TIMEOUT")
	viper.BindEnv("TIP_FRESHNESS")
	viper.BindEnv("TIP_CACHE_TTL")
	viper.BindEnv("TIP_RATE_LIMIT")
	viper.BindEnv("TIP_RATE_BURST")
	viper.BindEnv("TIP_DESCRIPTOR_PATH")

	// Blocklist
	viper.BindEnv("BLOCKLIST_SOURCE_PATH")
	viper.BindEnv("BLOCKLIST_INDEX_PATH")
	viper.BindEnv("BLOCKLIST_REBUILD_SCHEDULE")
}

func setDefaults() {
	// App defaults
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_HOST", "0.0.0.0")

	// ClickHouse defaults
	viper.SetDefault("CLICKHOUSE_HOST", "localhost")
	viper.SetDefault("CLICKHOUSE_PORT", 9000)
	viper.SetDefault("CLICKHOUSE_USER", "argus")
	viper.SetDefault("CLICKHOUSE_DATABASE", "argus")

	// Collector defaults
	viper.SetDefault("TIP_CONCURRENCY", 3)
	viper.SetDefault("TIP_REQUEST_TIMEOUT", 10*time.Second)
	viper.SetDefault("TIP_FRESHNESS", 60*24*time.Hour)
	viper.SetDefault("TIP_CACHE_TTL", time.Hour)
	viper.SetDefault("TIP_RATE_LIMIT", 5.0)
	viper.SetDefault("TIP_RATE_BURST", 3)

	// Blocklist defaults
	viper.SetDefault("BLOCKLIST_SOURCE_PATH", "/var/lib/argus/blocklist.txt")
	viper.SetDefault("BLOCKLIST_INDEX_PATH", "/var/lib/argus/blocklist-index")
	viper.SetDefault("BLOCKLIST_REBUILD_SCHEDULE", "0 3 * * *")
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func SetupLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.IsDevelopment() {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
