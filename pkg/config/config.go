// Package config provides configuration management for the compiler.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Compile  CompileConfig  `mapstructure:"compile"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

// CompileConfig holds the compile-flow defaults; CLI flags override them.
type CompileConfig struct {
	Heuristic           string `mapstructure:"heuristic"` // bfs, dfs, or random
	Seed                uint64 `mapstructure:"seed"`
	Strict              bool   `mapstructure:"strict"`
	RetainVisualization bool   `mapstructure:"retain_visualization"`
	SchedulePartitions  bool   `mapstructure:"schedule_partitions"`
	FIFOLength          int    `mapstructure:"fifo_length"`
	MergeFIFOs          bool   `mapstructure:"merge_fifos"`
}

// DatabaseConfig holds the optional compile-run history database.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // postgres, mysql, or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration for fetching input
// graphs and publishing emitted artifacts.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
}

// Load reads configuration from the specified file path, falling back to
// standard locations and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/dataflow-compiler")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file; defaults apply.
		} else if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("compile.heuristic", "bfs")
	v.SetDefault("compile.seed", 0)
	v.SetDefault("compile.strict", false)
	v.SetDefault("compile.retain_visualization", false)
	v.SetDefault("compile.schedule_partitions", true)
	v.SetDefault("compile.fifo_length", 8)
	v.SetDefault("compile.merge_fifos", false)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.database", "compile_history.db")
	v.SetDefault("database.max_conns", 5)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./data")
	v.SetDefault("storage.scheme", "https")

	v.SetDefault("log.level", "info")
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Compile.Heuristic {
	case "bfs", "dfs", "random":
	default:
		return fmt.Errorf("invalid compile.heuristic %q (want bfs, dfs, or random)", c.Compile.Heuristic)
	}
	if c.Compile.FIFOLength < 2 {
		return fmt.Errorf("compile.fifo_length must be at least 2, got %d", c.Compile.FIFOLength)
	}
	if c.Database.Enabled {
		switch c.Database.Type {
		case "postgres", "postgresql", "mysql", "sqlite":
		default:
			return fmt.Errorf("invalid database.type %q", c.Database.Type)
		}
	}
	switch c.Storage.Type {
	case "local", "cos":
	default:
		return fmt.Errorf("invalid storage.type %q", c.Storage.Type)
	}
	return nil
}
