package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements Provider for YAML configuration files.
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider.
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{filename: filename}
}

// LoadConfig loads the complete configuration from the YAML file.
func (y *YAMLProvider) LoadConfig() (*Data, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var data Data
	if err := yaml.Unmarshal(cfgFile, &data); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	data.applyDefaults()
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}
