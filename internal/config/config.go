package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config models taskline.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Uploads struct {
		MaxFileSize       int64    `yaml:"max_file_size"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
	} `yaml:"uploads"`
	Timezone string `yaml:"timezone"`
	Catalog  struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`
	DueSoon struct {
		DefaultDays int `yaml:"default_days"`
	} `yaml:"due_soon"`
	RecentAssignments struct {
		DefaultLimit int `yaml:"default_limit"`
	} `yaml:"recent_assignments"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Uploads.MaxFileSize <= 0 {
		return fmt.Errorf("config.uploads.max_file_size must be positive")
	}
	if len(c.Uploads.AllowedExtensions) == 0 {
		return fmt.Errorf("config.uploads.allowed_extensions is required")
	}
	for _, ext := range c.Uploads.AllowedExtensions {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("config.uploads.allowed_extensions contains an empty entry")
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config.timezone %q: %w", c.Timezone, err)
	}
	if c.DueSoon.DefaultDays < 0 {
		return fmt.Errorf("config.due_soon.default_days must not be negative")
	}
	if c.RecentAssignments.DefaultLimit <= 0 {
		return fmt.Errorf("config.recent_assignments.default_limit must be positive")
	}
	return nil
}

// Location returns the configured timezone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskline.yml")
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses config from raw YAML bytes over the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the workspace has no config file.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v1

auth:
  jwt_secret: ""

uploads:
  max_file_size: 10485760
  allowed_extensions: [pdf, doc, docx, xls, xlsx, ppt, pptx, txt, jpg, jpeg, png, gif, zip, rar]

timezone: Africa/Nairobi

catalog:
  path: ""

due_soon:
  default_days: 3

recent_assignments:
  default_limit: 10
`
