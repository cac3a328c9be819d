package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/zettel/internal/inference"
	"github.com/starford/zettel/internal/suggest"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Graph     GraphConfig       `yaml:"graph"`
	Inference InferenceConfig   `yaml:"inference"`
	Suggest   SuggestConfig     `yaml:"suggest"`
	Articles  ArticlesConfig    `yaml:"articles"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []validation.Validatable{
		&c.App, &c.SQLite, &c.Auth, &c.Graph, &c.Inference, &c.Suggest, &c.Articles,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// GraphConfig tunes identifier allocation and graph queries.
type GraphConfig struct {
	IDMaxAttempts int           `yaml:"id_max_attempts"`
	HubMinLinks   int           `yaml:"hub_min_links"`
	StaleAfter    time.Duration `yaml:"stale_after"`
	MaxNodes      int           `yaml:"max_nodes"`
	MaxDepth      int           `yaml:"max_depth"`
	// EventThrottle is the minimum gap between graph.updated broadcasts.
	EventThrottle time.Duration `yaml:"event_throttle"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IDMaxAttempts, validation.Min(1)),
		validation.Field(&c.HubMinLinks, validation.Min(1)),
		validation.Field(&c.StaleAfter, validation.Min(time.Minute)),
		validation.Field(&c.MaxNodes, validation.Min(1), validation.Max(10000)),
		validation.Field(&c.MaxDepth, validation.Min(1), validation.Max(20)),
	)
}

// InferenceConfig selects the language-model backend.
type InferenceConfig struct {
	Backend       string        `yaml:"backend"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"api_key"`
	Temperature   float32       `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

// Validate validates the inference configuration.
func (c *InferenceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(inference.BackendOllama, inference.BackendOpenAI)),
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(float32(0)), validation.Max(float32(2))),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RatePerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// Client converts the section into the inference client settings.
func (c *InferenceConfig) Client() inference.Config {
	return inference.Config{
		Backend:       c.Backend,
		BaseURL:       c.BaseURL,
		Model:         c.Model,
		APIKey:        c.APIKey,
		Temperature:   c.Temperature,
		RatePerSecond: c.RatePerSecond,
		Burst:         c.Burst,
	}
}

// SuggestConfig controls the suggestion pipeline.
//
// Mode is one of "manual", "auto" or "off". Auto regenerates suggestions in
// the background once a saved note has been idle for Debounce; off disables
// the suggestion endpoints entirely.
type SuggestConfig struct {
	Mode          string        `yaml:"mode"`
	Debounce      time.Duration `yaml:"debounce"`
	MinBodyLength int           `yaml:"min_body_length"`
	CacheSize     int           `yaml:"cache_size"`
	MaxTags       int           `yaml:"max_tags"`
	MaxLinks      int           `yaml:"max_links"`
}

// Validate validates the suggestion configuration.
func (c *SuggestConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = string(suggest.ModeManual)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(string(suggest.ModeManual), string(suggest.ModeAuto), string(suggest.ModeOff))),
		validation.Field(&c.Debounce, validation.Min(100*time.Millisecond)),
		validation.Field(&c.MinBodyLength, validation.Min(0)),
		validation.Field(&c.CacheSize, validation.Min(1)),
		validation.Field(&c.MaxTags, validation.Min(1), validation.Max(50)),
		validation.Field(&c.MaxLinks, validation.Min(1), validation.Max(50)),
	)
}

// ArticlesConfig points at the read-only article directory. An empty Path
// disables articles.
type ArticlesConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the articles configuration.
func (c *ArticlesConfig) Validate() error {
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./zettel.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Graph: GraphConfig{
			IDMaxAttempts: 50,
			HubMinLinks:   2,
			StaleAfter:    30 * 24 * time.Hour,
			MaxNodes:      100,
			MaxDepth:      5,
			EventThrottle: 2 * time.Second,
		},
		Inference: InferenceConfig{
			Backend:     inference.BackendOllama,
			BaseURL:     "http://localhost:11434",
			Model:       "llama3.2",
			Temperature: 0.2,
			Timeout:     90 * time.Second,
		},
		Suggest: SuggestConfig{
			Mode:          string(suggest.ModeManual),
			Debounce:      5 * time.Second,
			MinBodyLength: 100,
			CacheSize:     512,
			MaxTags:       5,
			MaxLinks:      5,
		},
		Articles: ArticlesConfig{
			Path:  "./articles",
			Watch: true,
		},
	}
}
