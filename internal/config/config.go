package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"uptimeline/internal/models"
)

// Config represents configuration data for the availability service.
type Config struct {
	ListenAddr     string          `yaml:"listen_addr"`
	RefreshSeconds int             `yaml:"refresh_seconds"`
	DefaultRange   string          `yaml:"default_range"`
	EventSource    EventSource     `yaml:"event_source"`
	Devices        []models.Device `yaml:"devices"`
}

// EventSource points at the remote status-log API.
type EventSource struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     ":8080",
		RefreshSeconds: 60,
		DefaultRange:   string(models.RangeDay),
		EventSource: EventSource{
			BaseURL:        "http://localhost:9000/api",
			TimeoutSeconds: 10,
		},
		Devices: []models.Device{
			{ID: "example", Name: "Example Device"},
		},
	}
}

// Load reads configuration from a yaml file. Missing files fall back to
// defaults; the API token may also come from the UPTIMELINE_API_TOKEN
// environment variable.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultConfig().ListenAddr
	}
	if cfg.RefreshSeconds <= 0 {
		cfg.RefreshSeconds = DefaultConfig().RefreshSeconds
	}
	if cfg.EventSource.TimeoutSeconds <= 0 {
		cfg.EventSource.TimeoutSeconds = DefaultConfig().EventSource.TimeoutSeconds
	}
	if cfg.EventSource.Token == "" {
		cfg.EventSource.Token = os.Getenv("UPTIMELINE_API_TOKEN")
	}

	if cfg.EventSource.BaseURL == "" {
		return Config{}, errors.New("event_source.base_url is required")
	}
	if _, err := models.ParseRange(cfg.DefaultRange); err != nil {
		return Config{}, fmt.Errorf("default_range: %w", err)
	}
	if len(cfg.Devices) == 0 {
		return Config{}, errors.New("configuration must define at least one device")
	}
	for i, device := range cfg.Devices {
		if device.ID == "" {
			return Config{}, fmt.Errorf("device %d is missing id", i)
		}
		if device.Name == "" {
			cfg.Devices[i].Name = device.ID
		}
	}
	return cfg, nil
}
