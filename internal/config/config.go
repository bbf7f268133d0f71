package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "console.yml"

// Project roles reported by GetMe.
var projectRoles = []string{"ADMIN", "EDITOR", "VIEWER"}

// Config models console.yml.
type Config struct {
	Project struct {
		ID      string `yaml:"id"`
		Subject string `yaml:"subject"`
		Role    string `yaml:"role"`
	} `yaml:"project"`
	Backend struct {
		Listen         string `yaml:"listen"`
		Address        string `yaml:"address"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"backend"`
	Console struct {
		Listen string `yaml:"listen"`
	} `yaml:"console"`
	Store struct {
		Workspace string `yaml:"workspace"`
		InMemory  bool   `yaml:"in_memory"`
		Seed      bool   `yaml:"seed"`
	} `yaml:"store"`
	Log struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig is one receiver of console activity.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with pc config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Project.ID == "" {
		return fmt.Errorf("config.project.id is required")
	}
	if !slices.Contains(projectRoles, c.Project.Role) {
		return fmt.Errorf("config.project.role must be one of %s", strings.Join(projectRoles, ", "))
	}
	if c.Backend.Address == "" {
		return fmt.Errorf("config.backend.address is required")
	}
	if u, err := url.Parse(c.Backend.Address); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config.backend.address must be an absolute URL")
	}
	if c.Backend.TimeoutSeconds < 0 {
		return fmt.Errorf("config.backend.timeout_seconds must not be negative")
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("config.log.encoding must be json or console")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhook %d has negative timeout", i)
		}
	}
	return nil
}

// BackendTimeout returns the per-call deadline clients apply.
func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault(projectID string) string {
	return fmt.Sprintf(defaultTemplate, projectID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a project.
func Default(projectID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(projectID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default value.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
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

const defaultTemplate = `project:
  id: %s
  subject: local-user
  role: ADMIN

backend:
  listen: 127.0.0.1:9090
  address: http://127.0.0.1:9090
  timeout_seconds: 10

console:
  listen: 127.0.0.1:8080

store:
  workspace: .
  in_memory: false
  seed: false

log:
  level: info
  encoding: console

# webhooks:
#   - url: https://hooks.example.com/pipeconsole
#     secret: change-me
#     events: [command.enqueued, piped.registered]
`
