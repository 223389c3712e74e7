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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	FHRS      FHRSConfig      `yaml:"fhrs" mapstructure:"fhrs"`
	OSM       OSMConfig       `yaml:"osm" mapstructure:"osm"`
	Boundary  BoundaryConfig  `yaml:"boundary" mapstructure:"boundary"`
	Gazetteer GazetteerConfig `yaml:"gazetteer" mapstructure:"gazetteer"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Suggest   SuggestConfig   `yaml:"suggest" mapstructure:"suggest"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backends.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	StatsDB     string `yaml:"stats_db" mapstructure:"stats_db"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// FHRSConfig configures the register API client.
type FHRSConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// OSMConfig configures the PBF import.
type OSMConfig struct {
	PBFPath string `yaml:"pbf_path" mapstructure:"pbf_path"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

// BoundaryConfig configures the district boundary import.
type BoundaryConfig struct {
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
	FieldPrefix   string `yaml:"field_prefix" mapstructure:"field_prefix"`
}

// GazetteerConfig configures the OS Open Names import.
type GazetteerConfig struct {
	// Dir is the root of an extracted OS Open Names distribution,
	// holding DOC/OS_Open_Names_Header.csv and DATA/*.csv.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ReconcileConfig tunes the reconciliation pass.
type ReconcileConfig struct {
	// DistantMeters is the distance beyond which a confirmed link is
	// reported as suspiciously far apart.
	DistantMeters float64 `yaml:"distant_meters" mapstructure:"distant_meters"`
}

// SuggestConfig tunes the suggestion engine.
type SuggestConfig struct {
	RadiusMeters float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	Limit        int     `yaml:"limit" mapstructure:"limit"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
	// MaxBBoxDegrees caps the viewport area a single query may cover.
	MaxBBoxDegrees float64 `yaml:"max_bbox_degrees" mapstructure:"max_bbox_degrees"`
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
	v.SetEnvPrefix("FHRS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.stats_db", "stats.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("fhrs.base_url", "https://api.ratings.food.gov.uk")
	v.SetDefault("fhrs.user_agent", "fhrs-reconcile/1.0")
	v.SetDefault("fhrs.timeout_secs", 60)
	v.SetDefault("fhrs.max_retries", 3)
	v.SetDefault("fhrs.requests_per_second", 2)
	v.SetDefault("osm.workers", 2)
	v.SetDefault("boundary.field_prefix", "LAD21")
	v.SetDefault("reconcile.distant_meters", 250)
	v.SetDefault("suggest.radius_meters", 250)
	v.SetDefault("suggest.limit", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_bbox_degrees", 0.25)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the configuration needed for the given command mode.
// All problems are reported at once rather than one per run.
func (c *Config) Validate(mode string) error {
	var problems []string

	needDB := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	switch mode {
	case "serve":
		needDB()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.MaxBBoxDegrees <= 0 {
			problems = append(problems, "server.max_bbox_degrees must be > 0")
		}
		if c.Suggest.RadiusMeters <= 0 {
			problems = append(problems, "suggest.radius_meters must be > 0")
		}
		if c.Suggest.Limit <= 0 {
			problems = append(problems, "suggest.limit must be > 0")
		}
	case "import-osm":
		needDB()
		if c.OSM.PBFPath == "" {
			problems = append(problems, "osm.pbf_path is required")
		}
	case "update-fhrs":
		needDB()
		if c.FHRS.BaseURL == "" {
			problems = append(problems, "fhrs.base_url is required")
		}
	case "boundaries":
		needDB()
		if c.Boundary.ShapefilePath == "" {
			problems = append(problems, "boundary.shapefile_path is required")
		}
	case "import-names":
		needDB()
		if c.Gazetteer.Dir == "" {
			problems = append(problems, "gazetteer.dir is required")
		}
	case "stats":
		needDB()
		if c.Store.StatsDB == "" {
			problems = append(problems, "store.stats_db is required")
		}
	case "reconcile":
		needDB()
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
