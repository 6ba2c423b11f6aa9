package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. LINGUA_DB_DRIVER.
const EnvPrefix = "LINGUA"

// Config holds all configuration for lingua.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Clock    ClockConfig    `mapstructure:"clock"`
	Exam     ExamConfig     `mapstructure:"exam"`
	Missions MissionsConfig `mapstructure:"missions"`
}

// DBConfig selects the storage backend.
type DBConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`    // empty sqlite DSN resolves to the XDG data path
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// AuthConfig configures bearer-token verification. An empty secret disables
// identity resolution: every request is anonymous.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type CacheConfig struct {
	Driver    string        `mapstructure:"driver"` // "memory" or "redis"
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// ClockConfig sets the location used for calendar-day boundaries.
type ClockConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type ExamConfig struct {
	DurationSeconds int    `mapstructure:"duration_seconds"`
	AutosaveEvery   int    `mapstructure:"autosave_every"`
	Clock           string `mapstructure:"clock"` // "client" or "server"
	QuestionBank    string `mapstructure:"question_bank"`
}

type MissionsConfig struct {
	XPMode string `mapstructure:"xp_mode"` // "qualifying" or "ledgered"
}

// Load reads configuration from an optional file and LINGUA_* environment
// variables. If configFile is empty, lingua.yaml is searched in the working
// directory and $XDG_CONFIG_HOME/lingua; a missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("lingua")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configHome(); dir != "" {
			v.AddConfigPath(filepath.Join(dir, "lingua"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindEnv binds every known key to its LINGUA_* variable. Keys are bound
// one by one rather than through AutomaticEnv: LINGUA_DB would otherwise
// shadow the whole db.* subtree. LINGUA_DB is accepted as a short form of
// LINGUA_DB_DSN.
func bindEnv(v *viper.Viper) error {
	replacer := strings.NewReplacer(".", "_")
	for _, key := range v.AllKeys() {
		names := []string{key, EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))}
		if key == "db.dsn" {
			names = append(names, EnvPrefix+"_DB")
		}
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Default returns the built-in configuration, ignoring files and the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: unmarshal defaults: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")

	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("clock.timezone", "Local")

	v.SetDefault("exam.duration_seconds", 7200)
	v.SetDefault("exam.autosave_every", 10)
	v.SetDefault("exam.clock", "client")
	v.SetDefault("exam.question_bank", "")

	v.SetDefault("missions.xp_mode", "qualifying")
}

// Validate checks enum-valued settings.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown db driver: %q", c.DB.Driver)
	}
	if c.DB.Driver == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required for the postgres driver")
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache driver: %q", c.Cache.Driver)
	}
	switch c.Exam.Clock {
	case "client", "server":
	default:
		return fmt.Errorf("unknown exam clock: %q", c.Exam.Clock)
	}
	if c.Exam.DurationSeconds <= 0 {
		return fmt.Errorf("exam.duration_seconds must be positive")
	}
	switch c.Missions.XPMode {
	case "qualifying", "ledgered":
	default:
		return fmt.Errorf("unknown missions xp mode: %q", c.Missions.XPMode)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured calendar timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Clock.Timezone == "" || c.Clock.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Clock.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Clock.Timezone, err)
	}
	return loc, nil
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}
