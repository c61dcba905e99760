package main

import (
	"fmt"
	"os"

	"github.com/jihwankim/spectrum-utils/pkg/config"
)

// loadConfig loads the configuration file named by the --config flag,
// falling back to ./config.yaml, and to built-in defaults when neither
// exists.
func loadConfig() (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return config.DefaultConfig(), nil
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	return cfg, nil
}
