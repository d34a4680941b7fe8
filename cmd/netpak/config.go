package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the netpak CLI configuration. Flags override file values.
type Config struct {
	Addr           string `yaml:"addr"`
	MaxPackageSize int    `yaml:"max_package_size"`
	BufferSize     int    `yaml:"buffer_size"`
	TLSCert        string `yaml:"tls_cert"`
	TLSKey         string `yaml:"tls_key"`
}

// defaultConfigPath returns the default config file path: ~/.netpak/config.yaml
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".netpak", "config.yaml")
	}
	return filepath.Join(home, ".netpak", "config.yaml")
}

// loadConfig reads the configuration from the given YAML file path.
// If the file does not exist, it returns a default Config with no error.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr: "127.0.0.1:9000",
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
