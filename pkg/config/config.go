package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Memory    MemoryConfig              `json:"memory" yaml:"memory"`
	Engine    EngineConfig              `json:"engine" yaml:"engine"`
}

type AppConfig struct {
	Name      string `json:"name" yaml:"name"`
	Workspace string `json:"workspace" yaml:"workspace"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type MemoryConfig struct {
	Path string `json:"path" yaml:"path"`
}

type EngineConfig struct {
	MaxIterations   int    `json:"max_iterations" yaml:"max_iterations"`
	MaxStepRetries  int    `json:"max_step_retries" yaml:"max_step_retries"`
	ValidationMode  string `json:"validation_mode" yaml:"validation_mode"`
	PlanHistoryPath string `json:"plan_history_path" yaml:"plan_history_path"`
	PromptDir       string `json:"prompt_dir" yaml:"prompt_dir"`
}

// Default returns the configuration used when no file is given. The plan
// history lives under the user's config directory so duplicate detection
// survives across runs.
func Default() *Config {
	cfg := &Config{
		App: AppConfig{Name: "rudder", Workspace: "./workspace"},
		Providers: map[string]ProviderConfig{
			"openai": {
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   "gpt-4o-mini",
				Enabled: true,
			},
		},
		Memory: MemoryConfig{Path: "rudder.db"},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads a JSON or YAML config file, chosen by extension, and fills
// in defaults for anything the file leaves unset.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &cfg)
	default:
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "rudder"
	}
	if c.App.Workspace == "" {
		c.App.Workspace = "./workspace"
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "rudder.db"
	}
	if c.Engine.MaxIterations <= 0 {
		c.Engine.MaxIterations = 30
	}
	if c.Engine.MaxStepRetries <= 0 {
		c.Engine.MaxStepRetries = 2
	}
	if c.Engine.ValidationMode == "" {
		c.Engine.ValidationMode = "auto"
	}
	if c.Engine.PlanHistoryPath == "" {
		c.Engine.PlanHistoryPath = defaultPlanHistoryPath()
	}
	if c.Engine.PromptDir == "" {
		c.Engine.PromptDir = "./prompts"
	}
}

func defaultPlanHistoryPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "plan_history.json"
	}
	return filepath.Join(base, "rudder", "plan_history.json")
}

// GetDefaultProvider returns the first enabled provider.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}
