package config

import (
	"os"

	"go.yaml.in/yaml/v3"
)

// WriteConfig serializes cfg to YAML and writes it to path.
func WriteConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
