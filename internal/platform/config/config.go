// Package config loads CepLookup settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting. Command-line flags override these values.
type Config struct {
	Variant       string        `env:"CEPLOOKUP_VARIANT" envDefault:"v4"`
	LookupURL     string        `env:"CEPLOOKUP_LOOKUP_URL" envDefault:"https://viacep.com.br"`
	LookupTimeout time.Duration `env:"CEPLOOKUP_LOOKUP_TIMEOUT" envDefault:"0s"`
	// StorePath is the SQLite file. Empty keeps saved addresses in memory only.
	StorePath string `env:"CEPLOOKUP_STORE_PATH" envDefault:"ceplookup.db"`

	LogFile  string `env:"CEPLOOKUP_LOG_FILE" envDefault:"ceplookup.log"`
	LogLevel string `env:"CEPLOOKUP_LOG_LEVEL" envDefault:"info"`

	GazetteerURL   string `env:"CEPLOOKUP_GAZETTEER_URL" envDefault:"https://download.geonames.org/export/zip/BR.zip"`
	GazetteerCache string `env:"CEPLOOKUP_GAZETTEER_CACHE" envDefault:"BR.zip"`

	OTelEndpoint string `env:"CEPLOOKUP_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"CEPLOOKUP_OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := PresetFor(cfg.Variant); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Preset describes one historical iteration of the lookup screen.
type Preset struct {
	Name      string
	KeyScheme string
	// AutoSave persists every successful lookup without asking.
	AutoSave bool
	// AutoLoad reads saved addresses at start and opens the saved list when any exist.
	AutoLoad bool
}

var presets = map[string]Preset{
	"v1": {Name: "v1", KeyScheme: "single", AutoSave: true},
	"v2": {Name: "v2", KeyScheme: "single", AutoSave: true, AutoLoad: true},
	"v3": {Name: "v3", KeyScheme: "multi"},
	"v4": {Name: "v4", KeyScheme: "multi", AutoLoad: true},
}

// PresetFor resolves a variant name such as "v2".
func PresetFor(variant string) (Preset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(variant))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown variant %q", variant)
	}
	return p, nil
}
