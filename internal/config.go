package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var prefixRe = regexp.MustCompile(`^(/[A-Za-z0-9._~-]+)+$`)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	API     APIConfig         `yaml:"api"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
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
	// BodyLimit caps request bodies in bytes. Embedded base64 images make
	// target updates large.
	BodyLimit int64 `yaml:"body_limit"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.BodyLimit, validation.Required, validation.Min(int64(1024))),
	)
}

// StorageConfig holds the directories for venue documents and images.
type StorageConfig struct {
	VenuesPath string `yaml:"venues_path"`
	ImagesPath string `yaml:"images_path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.VenuesPath, validation.Required),
		validation.Field(&c.ImagesPath, validation.Required),
	); err != nil {
		return err
	}
	if c.VenuesPath == c.ImagesPath {
		return fmt.Errorf("storage: venues_path and images_path must differ")
	}
	return nil
}

// APIConfig holds REST API configuration.
type APIConfig struct {
	Prefix string     `yaml:"prefix"`
	CORS   CORSConfig `yaml:"cors"`
}

// Validate validates the API configuration.
func (c *APIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Prefix, validation.Required, validation.Match(prefixRe)),
	)
}

// CORSConfig lists what cross-origin callers may use. Empty lists allow
// everything.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// EventsConfig holds Server-Sent Events configuration.
type EventsConfig struct {
	// Throttle is the minimum interval between venues.updated events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:      3001,
				BodyLimit: 10 << 20,
			},
		},
		Storage: StorageConfig{
			VenuesPath: "./public/venues",
			ImagesPath: "./public/images",
		},
		API: APIConfig{
			Prefix: "/api",
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
