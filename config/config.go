package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
)

const (
	EnvPirateWeatherAPIKey = "PIRATE_WEATHER_API_KEY"
	EnvAppInsightsKey      = "APPLICATIONINSIGHTS_INSTRUMENTATION_KEY"
	EnvTemplatePath        = "DASH_TEMPLATE_PATH"
	EnvFontsDir            = "DASH_FONTS_DIR"
	EnvCacheBackend        = "WEATHER_CACHE_BACKEND"
	EnvCachePath           = "WEATHER_CACHE_PATH"
	EnvConfigFile          = "DASH_CONFIG_FILE"
	EnvHTTPTimeout         = "HTTP_TIMEOUT"
)

// StopGroup is a bus stop shown as one block of arrival rows, and the routes kept
// from its predictions.
type StopGroup struct {
	Name   string `yaml:"name" validate:"required"`
	StopID int    `yaml:"stop_id" validate:"gt=0"`
	Routes []int  `yaml:"routes" validate:"required,min=1,dive,gt=0"`
}

type Config struct {
	PirateWeatherAPIKey           string `validate:"required"`
	AppInsightsInstrumentationKey string
	TemplatePath                  string
	FontsDir                      string
	CacheBackend                  string        `validate:"oneof=file sqlite memory"`
	CachePath                     string        `validate:"required_unless=CacheBackend memory"`
	HTTPTimeout                   time.Duration `validate:"gte=0"`

	Latitude  float64     `validate:"latitude"`
	Longitude float64     `validate:"longitude"`
	Timezone  string      `validate:"required,timezone"`
	Stops     []StopGroup `validate:"required,min=1,unique=Name,dive"`
}

// fileConfig is the optional YAML document named by DASH_CONFIG_FILE. Fields left
// out keep their defaults.
type fileConfig struct {
	Latitude  *float64    `yaml:"latitude"`
	Longitude *float64    `yaml:"longitude"`
	Timezone  string      `yaml:"timezone"`
	Stops     []StopGroup `yaml:"stops"`
}

// fieldEnv names the setting behind a struct field in errors.
var fieldEnv = map[string]string{
	"PirateWeatherAPIKey": EnvPirateWeatherAPIKey,
	"CacheBackend":        EnvCacheBackend,
	"CachePath":           EnvCachePath,
	"HTTPTimeout":         EnvHTTPTimeout,
}

var validate = validator.New()

// Default returns the settings for the Weehawken dashboard: Boulevard East is
// listed before Park Avenue, which is also the order the stops are queried in.
func Default() *Config {
	return &Config{
		CacheBackend: "file",
		CachePath:    "data/weather.json",
		Latitude:     40.774370,
		Longitude:    -74.019892,
		Timezone:     "America/New_York",
		Stops: []StopGroup{
			{Name: "blvd", StopID: 21824, Routes: []int{128, 165, 166, 168}},
			{Name: "park", StopID: 31497, Routes: []int{156, 89}},
		},
	}
}

// LoadDotEnv loads .env from the working directory when there is one.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment and the optional YAML file.
func Load() (*Config, error) {
	cfg := Default()
	cfg.PirateWeatherAPIKey = os.Getenv(EnvPirateWeatherAPIKey)
	cfg.AppInsightsInstrumentationKey = os.Getenv(EnvAppInsightsKey)
	cfg.TemplatePath = os.Getenv(EnvTemplatePath)
	cfg.FontsDir = os.Getenv(EnvFontsDir)
	if v := os.Getenv(EnvCacheBackend); v != "" {
		cfg.CacheBackend = v
	}
	if v := os.Getenv(EnvCachePath); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv(EnvHTTPTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, &dasherr.ConfigError{Field: EnvHTTPTimeout, Err: err}
		}
		cfg.HTTPTimeout = d
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, &dasherr.ConfigError{Field: EnvConfigFile, Err: err}
		}
		log.Printf("Config file: %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return err
	}
	if fc.Latitude != nil {
		c.Latitude = *fc.Latitude
	}
	if fc.Longitude != nil {
		c.Longitude = *fc.Longitude
	}
	if fc.Timezone != "" {
		c.Timezone = fc.Timezone
	}
	if fc.Stops != nil {
		c.Stops = fc.Stops
	}
	return nil
}

// Validate reports the first invalid field as a *dasherr.ConfigError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &dasherr.ConfigError{Field: "config", Err: err}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if env, ok := fieldEnv[fe.StructField()]; ok {
		field = env
	}
	return &dasherr.ConfigError{
		Field: field,
		Err:   fmt.Errorf("failed %q validation (value %v)", fe.Tag(), redact(fe)),
	}
}

// Location is the timezone the dashboard shows times in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func redact(fe validator.FieldError) any {
	if fe.StructField() == "PirateWeatherAPIKey" {
		return "<redacted>"
	}
	return fe.Value()
}
