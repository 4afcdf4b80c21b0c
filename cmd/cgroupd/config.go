package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// config is the optional on-disk configuration cgroupd accepts via
// --config. Every field has a sane default; the file itself is optional,
// matching spec.md §6's "Persisted state: None" for request data while
// still giving the daemon somewhere to name non-default paths.
type config struct {
	CgroupRoot string `yaml:"cgroupRoot"`
	SocketPath string `yaml:"socketPath"`
	LogLevel   string `yaml:"logLevel"`
}

func defaultConfig() config {
	return config{
		CgroupRoot: "/sys/fs/cgroup",
		SocketPath: "/sys/fs/cgroup/cgmanager/sock",
		LogLevel:   "info",
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, fmt.Errorf("cgroupd: read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("cgroupd: parse config %s: %w", path, err)
	}

	return cfg, nil
}
