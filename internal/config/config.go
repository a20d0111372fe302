package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/flightzone/internal/geo"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Zones    ZonesConfig    `yaml:"zones" mapstructure:"zones"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Airspace AirspaceConfig `yaml:"airspace" mapstructure:"airspace"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the mission database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ZonesConfig holds the default zone distances and buffering options used
// when a route or request does not carry its own settings.
type ZonesConfig struct {
	FlightGeographyM float64 `yaml:"flight_geography_m" mapstructure:"flight_geography_m"`
	ContingencyM     float64 `yaml:"contingency_m" mapstructure:"contingency_m"`
	GroundRiskM      float64 `yaml:"ground_risk_m" mapstructure:"ground_risk_m"`
	Mode             string  `yaml:"mode" mapstructure:"mode"`
	CapSegments      int     `yaml:"cap_segments" mapstructure:"cap_segments"`
	Parallel         bool    `yaml:"parallel" mapstructure:"parallel"`
	CorridorJoin     string  `yaml:"corridor_join" mapstructure:"corridor_join"`
	HullJoin         string  `yaml:"hull_join" mapstructure:"hull_join"`
}

// Settings converts the configured defaults to zone settings.
func (z ZonesConfig) Settings() (geo.ZoneSettings, error) {
	mode, err := geo.ParseBufferMode(z.Mode)
	if err != nil {
		return geo.ZoneSettings{}, eris.Wrap(err, "config: zones.mode")
	}
	s := geo.ZoneSettings{
		FlightGeographyM: z.FlightGeographyM,
		ContingencyM:     z.ContingencyM,
		GroundRiskM:      z.GroundRiskM,
		Mode:             mode,
	}
	if err := s.Validate(); err != nil {
		return geo.ZoneSettings{}, eris.Wrap(err, "config: zones")
	}
	return s, nil
}

// Options converts the configured buffering options to compose options.
func (z ZonesConfig) Options() ([]geo.ComposeOption, error) {
	corridor, err := geo.ParseJoinStyle(z.CorridorJoin)
	if err != nil {
		return nil, eris.Wrap(err, "config: zones.corridor_join")
	}
	hull, err := geo.ParseJoinStyle(z.HullJoin)
	if err != nil {
		return nil, eris.Wrap(err, "config: zones.hull_join")
	}
	return []geo.ComposeOption{
		geo.WithCapSegments(z.CapSegments),
		geo.WithCorridorJoin(corridor),
		geo.WithHullJoin(hull),
		geo.WithParallel(z.Parallel),
	}, nil
}

// CacheConfig configures the zone result cache used by the server.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// AirspaceConfig configures the restriction feed client.
type AirspaceConfig struct {
	URL         string        `yaml:"url" mapstructure:"url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	RatePerSec  float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FLIGHTZONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "flightzone.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("zones.flight_geography_m", 10.0)
	v.SetDefault("zones.contingency_m", 50.0)
	v.SetDefault("zones.ground_risk_m", 100.0)
	v.SetDefault("zones.mode", "auto")
	v.SetDefault("zones.cap_segments", geo.DefaultCapSegments)
	v.SetDefault("zones.parallel", false)
	v.SetDefault("zones.corridor_join", "miter")
	v.SetDefault("zones.hull_join", "miter")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("airspace.timeout", 15*time.Second)
	v.SetDefault("airspace.max_attempts", 3)
	v.SetDefault("airspace.rate_per_sec", 2.0)

	// Read config file (optional)
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

// Validate checks the settings a command mode depends on. Supported modes
// are "zones", "mission", "airspace" and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	checkZones := func() {
		if _, err := c.Zones.Settings(); err != nil {
			problems = append(problems, err.Error())
		}
		if _, err := c.Zones.Options(); err != nil {
			problems = append(problems, err.Error())
		}
		if c.Zones.CapSegments < 1 || c.Zones.CapSegments > 256 {
			problems = append(problems, "zones.cap_segments must be between 1 and 256")
		}
	}
	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.SQLitePath == "" {
				problems = append(problems, "store.sqlite_path is required")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
	}

	switch mode {
	case "zones":
		checkZones()
	case "mission":
		checkZones()
		checkStore()
	case "airspace":
		checkZones()
		if c.Airspace.URL == "" {
			problems = append(problems, "airspace.url is required")
		}
	case "serve":
		checkZones()
		checkStore()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
			problems = append(problems, "server.rate_limit and server.rate_burst must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
