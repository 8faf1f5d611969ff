// Package config loads the YAML configuration shared by the jelly commands.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/pkg/validation"
)

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

type CheckConfig struct {
	// Tenant is the canister id written into every anchor.
	Tenant       string `yaml:"tenant" validate:"required,principal"`
	AffluxPolicy string `yaml:"afflux_policy" validate:"oneof=lenient strict"`

	SandboxEnabled bool `yaml:"sandbox_enabled"`

	// SandboxCommand starts the script runner, e.g. "node runner.js".
	SandboxCommand string `yaml:"sandbox_command" validate:"required_if=SandboxEnabled true"`

	CompileCacheSize int `yaml:"compile_cache_size" validate:"min=0"`

	// Version is stamped on stored graphs.
	Version string `yaml:"version" validate:"required"`
}

// StoreConfig selects where checked graphs are persisted. An empty driver
// keeps everything in memory.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=memory sqlite postgres"`
	DSN    string `yaml:"dsn"`
	Codec  string `yaml:"codec" validate:"oneof=msgpack json"`

	Compression string `yaml:"compression" validate:"omitempty,oneof=none gzip zstd"`

	// EncryptKey is a hex AES key. Stored blobs are sealed with AES-GCM
	// when it is set.
	EncryptKey string `yaml:"encrypt_key" validate:"omitempty,aes_key"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

type Config struct {
	Log    LogConfig    `yaml:"log"`
	Check  CheckConfig  `yaml:"check"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
}

// DefaultTenant is the canister id used when none is configured.
const DefaultTenant = "rrkah-fqaaa-aaaaa-aaaaq-cai"

var ErrMissingDSN = errors.New("store dsn is required for sqlite and postgres")

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Check: CheckConfig{
			Tenant:           DefaultTenant,
			AffluxPolicy:     graph.AffluxLenient.String(),
			CompileCacheSize: 1024,
			Version:          "1.0.0",
		},
		Store:  StoreConfig{Codec: "msgpack", Compression: "zstd"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if err := validation.Tags(c); err != nil {
		return err
	}
	if (c.Store.Driver == "sqlite" || c.Store.Driver == "postgres") && c.Store.DSN == "" {
		return ErrMissingDSN
	}
	return nil
}

// Policy is the parsed afflux policy.
func (c *Config) Policy() graph.AffluxPolicy {
	policy, err := graph.ParseAffluxPolicy(c.Check.AffluxPolicy)
	if err != nil {
		return graph.AffluxLenient
	}
	return policy
}
