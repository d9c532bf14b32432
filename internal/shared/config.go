package shared

import (
	_ "embed"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

//go:embed config.example.toml
var exampleConf []byte

// envKeys maps supported environment variables to config keys.
var envKeys = map[string]string{
	"SPOTIFY_CLIENT_ID":     "credentials.spotify.client_id",
	"SPOTIFY_CLIENT_SECRET": "credentials.spotify.client_secret",
	"PORT":                  "server.port",
	"TOPHITS_HOST":          "server.host",
	"TOPHITS_MARKET":        "catalog.market",
	"TOPHITS_LOG_LEVEL":     "log.level",
}

// Config represents the application configuration.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify client-credentials settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	APIURL       string `toml:"api_url"`
}

// HasCredentials reports whether both the client id and secret are set.
func (s SpotifyConfig) HasCredentials() bool {
	return strings.TrimSpace(s.ClientID) != "" && strings.TrimSpace(s.ClientSecret) != ""
}

// CatalogConfig controls how the catalog service is queried.
type CatalogConfig struct {
	Market    string        `toml:"market"`
	Timeout   time.Duration `toml:"timeout"`    // per upstream call
	RateLimit float64       `toml:"rate_limit"` // outbound requests per second, 0 disables
	StartYear int           `toml:"start_year"`
	Genres    []string      `toml:"genres"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Validate checks settings that would otherwise fail at request time.
//
// Missing credentials are not a configuration error: they surface as [ErrMissingCredentials] on the first catalog call.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("%w: catalog timeout must be positive", ErrInvalidConfig)
	}
	if c.Catalog.RateLimit < 0 {
		return fmt.Errorf("%w: catalog rate_limit must not be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Catalog.Market) == "" {
		return fmt.Errorf("%w: catalog market must be set", ErrInvalidConfig)
	}
	if c.Credentials.Spotify.TokenURL == "" || c.Credentials.Spotify.APIURL == "" {
		return fmt.Errorf("%w: spotify token_url and api_url must be set", ErrInvalidConfig)
	}
	return nil
}

// Redacted returns a copy of the config with secrets masked, safe for printing.
func (c Config) Redacted() Config {
	if c.Credentials.Spotify.ClientSecret != "" {
		c.Credentials.Spotify.ClientSecret = "********"
	}
	return c
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadConfig builds a Config by layering, lowest precedence first:
//  1. embedded defaults
//  2. the file at path (TOML, or YAML for .yaml/.yml), skipped when path is empty
//  3. environment variables listed in envKeys
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
		}
		if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "toml"}); err != nil {
			return fmt.Errorf("%w: failed to decode config: %v", ErrInvalidConfig, err)
		}
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func loadEnv(config *Config) error {
	k := koanf.New(".")
	provider := env.Provider("", ".", func(s string) string {
		return envKeys[s]
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if len(k.Keys()) == 0 {
		return nil
	}

	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "toml"}); err != nil {
		return fmt.Errorf("%w: failed to decode environment: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WriteConfig encodes config as TOML to w.
func WriteConfig(w io.Writer, config *Config) error {
	if err := toml.NewEncoder(w).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
