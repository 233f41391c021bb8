// Package config loads screener configuration from YAML files and
// APERTURE_* environment variables, with defaults matching the standard
// screen so a bare binary runs in memory mode without any file at all.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Universe    UniverseConfig    `mapstructure:"universe"`
	Criteria    CriteriaConfig    `mapstructure:"criteria"`
	Assumptions AssumptionsConfig `mapstructure:"assumptions"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	MarketData  MarketDataConfig  `mapstructure:"market_data"`
	SECData     SECDataConfig     `mapstructure:"sec_data"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Server      ServerConfig      `mapstructure:"server"`
	Output      OutputConfig      `mapstructure:"output"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type UniverseConfig struct {
	Path string `mapstructure:"path"`
}

type CriteriaConfig struct {
	MinLTMEBITDA     float64 `mapstructure:"min_ltm_ebitda"`
	MaxEVEBITDA      float64 `mapstructure:"max_ev_ebitda"`
	MaxNetDebtEBITDA float64 `mapstructure:"max_net_debt_ebitda"`
	MinRevenueCAGR   float64 `mapstructure:"min_revenue_cagr"`
	MaxMarginStdDev  float64 `mapstructure:"max_margin_stddev"`
	MaxCapexPctSales float64 `mapstructure:"max_capex_pct_sales"`
}

type AssumptionsConfig struct {
	HorizonYears     int     `mapstructure:"horizon_years"`
	LeverageMultiple float64 `mapstructure:"leverage_multiple"`
	ExitPremium      float64 `mapstructure:"exit_premium"`
	InterestRate     float64 `mapstructure:"interest_rate"`
	TaxRate          float64 `mapstructure:"tax_rate"`
}

type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

type MarketDataConfig struct {
	BaseURL string `mapstructure:"base_url"`
	WSURL   string `mapstructure:"ws_url"`
	Timeout string `mapstructure:"timeout"`
}

type SECDataConfig struct {
	UserAgent     string  `mapstructure:"user_agent"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type CacheConfig struct {
	RedisAddr string `mapstructure:"redis_addr"`
	TTL       string `mapstructure:"ttl"`
}

type StorageConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads configuration from path when given, otherwise searches
// ./configs and the working directory for config.yaml. A missing file is
// only an error when it was named explicitly; environment variables and
// defaults alone are a valid configuration.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("APERTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("universe.path", "./universe.csv")

	v.SetDefault("criteria.min_ltm_ebitda", domain.DefaultCriteria.MinLTMEBITDA)
	v.SetDefault("criteria.max_ev_ebitda", domain.DefaultCriteria.MaxEVEBITDA)
	v.SetDefault("criteria.max_net_debt_ebitda", domain.DefaultCriteria.MaxNetDebtEBITDA)
	v.SetDefault("criteria.min_revenue_cagr", domain.DefaultCriteria.MinRevenueCAGR)
	v.SetDefault("criteria.max_margin_stddev", domain.DefaultCriteria.MaxMarginStdDev)
	v.SetDefault("criteria.max_capex_pct_sales", domain.DefaultCriteria.MaxCapexPctSales)

	v.SetDefault("assumptions.horizon_years", domain.DefaultAssumptions.HorizonYears)
	v.SetDefault("assumptions.leverage_multiple", domain.DefaultAssumptions.LeverageMultiple)
	v.SetDefault("assumptions.exit_premium", domain.DefaultAssumptions.ExitPremium)
	v.SetDefault("assumptions.interest_rate", domain.DefaultAssumptions.InterestRate)
	v.SetDefault("assumptions.tax_rate", domain.DefaultAssumptions.TaxRate)

	v.SetDefault("pipeline.workers", 10)

	v.SetDefault("market_data.base_url", "")
	v.SetDefault("market_data.ws_url", "")
	v.SetDefault("market_data.timeout", "10s")

	v.SetDefault("sec_data.user_agent", "Aperture LBO Screener contact@example.com")
	v.SetDefault("sec_data.rate_per_second", 10.0)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("output.dir", "./output")
}

// Validate checks bounds and duration syntax. Criteria and assumption
// bounds delegate to the domain validators so the config layer can never
// accept a screen the engine would reject.
func (c *Config) Validate() error {
	if err := c.ScreeningCriteria().Validate(); err != nil {
		return fmt.Errorf("criteria: %w", err)
	}
	if err := c.ModelAssumptions().Validate(); err != nil {
		return fmt.Errorf("assumptions: %w", err)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if _, err := time.ParseDuration(c.MarketData.Timeout); err != nil {
		return fmt.Errorf("market_data.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("cache.ttl: %w", err)
	}
	if c.SECData.RatePerSecond <= 0 {
		return fmt.Errorf("sec_data.rate_per_second must be > 0, got %g", c.SECData.RatePerSecond)
	}
	return nil
}

// ScreeningCriteria converts the criteria section to the domain type.
func (c *Config) ScreeningCriteria() domain.ScreeningCriteria {
	return domain.ScreeningCriteria{
		MinLTMEBITDA:     c.Criteria.MinLTMEBITDA,
		MaxEVEBITDA:      c.Criteria.MaxEVEBITDA,
		MaxNetDebtEBITDA: c.Criteria.MaxNetDebtEBITDA,
		MinRevenueCAGR:   c.Criteria.MinRevenueCAGR,
		MaxMarginStdDev:  c.Criteria.MaxMarginStdDev,
		MaxCapexPctSales: c.Criteria.MaxCapexPctSales,
	}
}

// ModelAssumptions converts the assumptions section to the domain type.
func (c *Config) ModelAssumptions() domain.Assumptions {
	return domain.Assumptions{
		HorizonYears:     c.Assumptions.HorizonYears,
		LeverageMultiple: c.Assumptions.LeverageMultiple,
		ExitPremium:      c.Assumptions.ExitPremium,
		InterestRate:     c.Assumptions.InterestRate,
		TaxRate:          c.Assumptions.TaxRate,
	}
}

// MarketTimeout returns the parsed market data HTTP timeout.
func (c *Config) MarketTimeout() time.Duration {
	d, err := time.ParseDuration(c.MarketData.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// CacheTTL returns the parsed cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
