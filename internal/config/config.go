// Package config loads roofsolar settings from config.yaml, .env and
// ROOFSOLAR_* environment variables.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/roofsolar/internal/flux"
	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/proposal"
	"github.com/sells-group/roofsolar/internal/roof"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "ROOFSOLAR"

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig            `yaml:"store" mapstructure:"store"`
	Server   ServerConfig           `yaml:"server" mapstructure:"server"`
	Log      LogConfig              `yaml:"log" mapstructure:"log"`
	Tariff   model.NetBillingParams `yaml:"tariff" mapstructure:"tariff"`
	Tuning   proposal.Tuning        `yaml:"tuning" mapstructure:"tuning"`
	Geometry GeometryConfig         `yaml:"geometry" mapstructure:"geometry"`
	Flux     flux.Options           `yaml:"flux" mapstructure:"flux"`
	Fetch    FetchConfig            `yaml:"fetch" mapstructure:"fetch"`
	Report   ReportConfig           `yaml:"report" mapstructure:"report"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// Persist stores every computed proposal and mapped view.
	Persist bool `yaml:"persist" mapstructure:"persist"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeometryConfig tunes segment visibility and scene heights.
type GeometryConfig struct {
	MaxTiltDeg           float64 `yaml:"max_tilt_deg" mapstructure:"max_tilt_deg"`
	MinAreaM2            float64 `yaml:"min_area_m2" mapstructure:"min_area_m2"`
	MaxAspect            float64 `yaml:"max_aspect" mapstructure:"max_aspect"`
	MinSliverSideM       float64 `yaml:"min_sliver_side_m" mapstructure:"min_sliver_side_m"`
	VerticalExaggeration float64 `yaml:"vertical_exaggeration" mapstructure:"vertical_exaggeration"`
}

// SceneOptions converts the geometry section into scene options.
func (g GeometryConfig) SceneOptions() roof.SceneOptions {
	opts := roof.DefaultSceneOptions()
	opts.VerticalExaggeration = g.VerticalExaggeration
	opts.Visibility = roof.Visibility{
		MaxTiltDeg:     g.MaxTiltDeg,
		MinAreaM2:      g.MinAreaM2,
		MaxAspect:      g.MaxAspect,
		MinSliverSideM: g.MinSliverSideM,
	}
	return opts
}

// FetchConfig configures raster and survey downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Timeout returns the per-request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// ReportConfig configures the printable proposal report.
type ReportConfig struct {
	Locale string `yaml:"locale" mapstructure:"locale"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "roofsolar.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.persist", false)
	v.SetDefault("report.locale", "pl-PL")

	t := proposal.PolandDefaults()
	v.SetDefault("tariff.buy_price_per_kwh", t.BuyPricePerKWh)
	v.SetDefault("tariff.sell_price_per_kwh", t.SellPricePerKWh)
	v.SetDefault("tariff.capex_per_kwp", t.CapexPerKWp)
	v.SetDefault("tariff.om_rate_pct_per_year", t.OMRatePctPerYear)
	v.SetDefault("tariff.degradation_pct_per_year", t.DegradationPctPerYear)
	v.SetDefault("tariff.discount_rate_pct", t.DiscountRatePct)
	v.SetDefault("tariff.lifetime_years", t.LifetimeYears)
	v.SetDefault("tariff.self_consumption_ratio", t.SelfConsumptionRatio)
	v.SetDefault("tariff.module_wattage_w", t.ModuleWattageW)

	tu := proposal.DefaultTuning()
	v.SetDefault("tuning.fallback_yield", tu.FallbackYield)
	v.SetDefault("tuning.coverage_target", tu.CoverageTarget)
	v.SetDefault("tuning.roi_candidate_factors", tu.ROICandidateFactors)
	v.SetDefault("tuning.fallback_max_roof_panels", tu.FallbackMaxRoofPanels)
	v.SetDefault("tuning.small_roof_panels", tu.SmallRoofPanels)

	vis := roof.DefaultVisibility()
	v.SetDefault("geometry.max_tilt_deg", vis.MaxTiltDeg)
	v.SetDefault("geometry.min_area_m2", vis.MinAreaM2)
	v.SetDefault("geometry.max_aspect", vis.MaxAspect)
	v.SetDefault("geometry.min_sliver_side_m", vis.MinSliverSideM)
	v.SetDefault("geometry.vertical_exaggeration", 1.0)

	fo := flux.DefaultOptions()
	v.SetDefault("flux.efficiency", fo.Efficiency)
	v.SetDefault("flux.performance_ratio", fo.PerformanceRatio)

	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "roofsolar/1.0")
	v.SetDefault("fetch.rate_per_sec", 5.0)
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

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		errs = append(errs, c.storeErrors()...)
	case "store":
		errs = append(errs, c.storeErrors()...)
	case "propose":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Geometry.VerticalExaggeration <= 0 {
		errs = append(errs, "geometry.vertical_exaggeration must be > 0")
	}
	if c.Flux.Efficiency <= 0 || c.Flux.Efficiency > 1 {
		errs = append(errs, "flux.efficiency must be in (0, 1]")
	}
	if c.Flux.PerformanceRatio <= 0 || c.Flux.PerformanceRatio > 1 {
		errs = append(errs, "flux.performance_ratio must be in (0, 1]")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	switch strings.ToLower(c.Store.Driver) {
	case "", "sqlite":
		return nil
	case "postgres", "pgx":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
		return nil
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
}
