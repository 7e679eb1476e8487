package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ServiceName    = ""
	ServiceVersion = ""
)

var (
	Env *EnvConfig
)

type EnvConfig struct {
	Env                     string                    `mapstructure:"env"`
	Log                     LogConfig                 `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration             `mapstructure:"graceful_shutdown_timeout"`
	Database                map[string]DatabaseConfig `mapstructure:"database"`
	Ingest                  IngestConfig              `mapstructure:"ingest"`
	Scid                    ScidConfig                `mapstructure:"scid"`
	NatsJetstream           NatsJetstreamConfig       `mapstructure:"nats_jetstream"`
	Redis                   map[string]RedisConfig    `mapstructure:"redis"`
}

type IngestConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BatchSize    int           `mapstructure:"batch_size"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type ScidConfig struct {
	DataDir         string `mapstructure:"data_dir"`
	BookkeepingPath string `mapstructure:"bookkeeping_path"`
	ServerAddr      string `mapstructure:"server_addr"`
}

type NatsJetstreamConfig struct {
	URL             string        `mapstructure:"url"`
	MaxRetries      int           `mapstructure:"max_retries"`
	ReconnectFactor float64       `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
}

type DatabaseConfig struct {
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	ReconnectFactor float64       `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
	MaxRetry        int           `mapstructure:"max_retry"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxActiveConns  int           `mapstructure:"max_active_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN renders the config into a lib/pq connection string for the configured
// database.
func (c DatabaseConfig) DSN() string {
	return c.dsnFor(c.Name)
}

// MaintenanceDSN connects to the default postgres database, used for catalog
// lookups and CREATE DATABASE which cannot run against the target database
// before it exists.
func (c DatabaseConfig) MaintenanceDSN() string {
	return c.dsnFor("postgres")
}

func (c DatabaseConfig) dsnFor(dbName string) string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}

	port := c.Port
	if port <= 0 {
		port = 5432
	}

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, c.User, c.Password, dbName, sslMode)
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

type RedisConfig struct {
	CacheDSN string `mapstructure:"cache_dsn"`
}

func LoadConfig(configPath string) error {
	viper.Reset()

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	err = viper.Unmarshal(&Env)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	return nil
}
