package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lhassa8/LMCP/transport/stdio"
)

// ServerConfig describes one server entry in a configuration file.
type ServerConfig struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Dir     string            `json:"dir,omitempty" yaml:"dir,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// LaunchConfig converts the entry into a launch descriptor.
func (s ServerConfig) LaunchConfig() stdio.LaunchConfig {
	return stdio.LaunchConfig{
		Command: s.Command,
		Args:    s.Args,
		Dir:     s.Dir,
		Env:     s.Env,
	}
}

// FileConfig is the on-disk configuration format, compatible with the
// conventional mcpServers layout.
type FileConfig struct {
	MCPServers map[string]ServerConfig `json:"mcpServers" yaml:"mcpServers"`
}

// LoadConfigFile reads a server configuration from a JSON or YAML file,
// chosen by extension.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}

	for name, server := range cfg.MCPServers {
		if server.Command == "" {
			return nil, fmt.Errorf("server %q has no command", name)
		}
	}
	return &cfg, nil
}

// Server returns the named server entry.
func (c *FileConfig) Server(name string) (ServerConfig, bool) {
	s, ok := c.MCPServers[name]
	return s, ok
}
