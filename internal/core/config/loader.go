package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pipeline.Environment == "" {
		cfg.Pipeline.Environment = "production"
	}
	if cfg.Pipeline.Component == "" {
		cfg.Pipeline.Component = "app"
	}
	if cfg.Pipeline.MaxBufferSize == 0 {
		cfg.Pipeline.MaxBufferSize = 1000
	}
	if cfg.Pipeline.MaxRetentionDays == 0 {
		cfg.Pipeline.MaxRetentionDays = 7
	}

	return &cfg, nil
}
