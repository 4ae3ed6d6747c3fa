package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values read from config.toml.
const (
	EnvOAuthURL     = "TWITCH_OAUTH_URL"
	EnvClientID     = "TWITCH_CLIENT_ID"
	EnvClientSecret = "TWITCH_CLIENT_SECRET"
	EnvTestUserID   = "TWITCH_TEST_USER_ID"
	EnvOAuthMode    = "TWITCH_OAUTH_MODE"
)

const (
	DefaultOAuthURL     = "https://id.twitch.tv/oauth2"
	DefaultPollInterval = 100 * time.Millisecond
	DefaultHTTPTimeout  = 10 * time.Second
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	OAuth    OAuthConfig    `toml:"oauth"`
	Server   ServerConfig   `toml:"server"`
	HTTP     HTTPConfig     `toml:"http"`
	Database DatabaseConfig `toml:"database"`
}

// OAuthConfig contains the provider endpoint and client credentials.
type OAuthConfig struct {
	BaseURL      string   `toml:"base_url"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	TestUserID   string   `toml:"test_user_id"`
	Mode         string   `toml:"mode"`
	Scopes       []string `toml:"scopes"`
}

// ServerConfig contains settings for the local callback listener.
type ServerConfig struct {
	Host              string   `toml:"host"`
	Ports             []int    `toml:"ports"`
	PollInterval      Duration `toml:"poll_interval"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// HTTPConfig contains outbound HTTP client settings.
type HTTPConfig struct {
	Timeout Duration `toml:"timeout"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Duration is a [time.Duration] that reads and writes TOML strings such as "100ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ScopeString joins the configured scopes the way the provider expects them.
func (c OAuthConfig) ScopeString() string {
	return strings.Join(c.Scopes, " ")
}

// IsCodeMode reports whether the configured mode selects the authorization-code exchange.
func (c OAuthConfig) IsCodeMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), "code")
}

// ApplyEnv overrides configuration values with any TWITCH_* environment variables that are set.
func (c *Config) ApplyEnv() {
	c.applyLookup(os.LookupEnv)
}

func (c *Config) applyLookup(lookup func(string) (string, bool)) {
	for env, dst := range map[string]*string{
		EnvOAuthURL:     &c.OAuth.BaseURL,
		EnvClientID:     &c.OAuth.ClientID,
		EnvClientSecret: &c.OAuth.ClientSecret,
		EnvTestUserID:   &c.OAuth.TestUserID,
		EnvOAuthMode:    &c.OAuth.Mode,
	} {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
		}
	}
}

// Normalize fills in defaults for every value that has one.
func (c *Config) Normalize() {
	c.OAuth.BaseURL = strings.TrimRight(c.OAuth.BaseURL, "/")
	if c.OAuth.BaseURL == "" {
		c.OAuth.BaseURL = DefaultOAuthURL
	}
	if c.OAuth.Mode == "" {
		c.OAuth.Mode = "implicit"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.PollInterval.Duration <= 0 {
		c.Server.PollInterval.Duration = DefaultPollInterval
	}
	if c.HTTP.Timeout.Duration <= 0 {
		c.HTTP.Timeout.Duration = DefaultHTTPTimeout
	}
}

// Validate checks that the credentials required by the configured mode are present.
//
// The client id is always required; the client secret and test user id only for code mode.
func (c *Config) Validate() error {
	var missing []string
	if c.OAuth.ClientID == "" {
		missing = append(missing, "client_id ("+EnvClientID+")")
	}
	if c.OAuth.IsCodeMode() {
		if c.OAuth.ClientSecret == "" {
			missing = append(missing, "client_secret ("+EnvClientSecret+")")
		}
		if c.OAuth.TestUserID == "" {
			missing = append(missing, "test_user_id ("+EnvTestUserID+")")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	if len(c.Server.Ports) == 0 && !c.OAuth.IsCodeMode() {
		return fmt.Errorf("%w: server.ports must list at least one candidate port", ErrInvalidConfig)
	}
	for _, p := range c.Server.Ports {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, p)
		}
	}

	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	config.Normalize()

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.Normalize()
	return &config
}

// ResolveConfig loads path when it exists, falls back to defaults otherwise, then applies
// environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	config.ApplyEnv()
	config.Normalize()
	return config, nil
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

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
