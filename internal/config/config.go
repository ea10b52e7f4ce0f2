// Package config loads VibeTree's YAML configuration file, composing each
// subsystem's own Config type the way the teacher's internal/config
// aggregates gateway.Config, executor.BackendConfig, and friends.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vibetree/vibetree/internal/gateway"
	"github.com/vibetree/vibetree/internal/logging"
	"github.com/vibetree/vibetree/internal/materializer"
)

// Config is VibeTree's top-level configuration, unmarshaled from a single
// YAML document.
type Config struct {
	Version     string          `yaml:"version"`
	Gateway     *gateway.Config `yaml:"gateway"`
	Logging     *logging.Config `yaml:"logging"`
	Store       *StoreConfig    `yaml:"store"`
	Scripts     *ScriptsConfig  `yaml:"scripts"`
	Repos       []*RepoConfig   `yaml:"repos"`
	DefaultRepo string          `yaml:"default_repo"`
}

// StoreConfig names the data directory internal/store.NewStore opens its
// sqlite database under (NewStore creates vibetree.db inside it).
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ScriptsConfig holds the default worktree-creation and post-creation
// scripts applied when a repo doesn't override them, per spec.md §4.6.
type ScriptsConfig struct {
	WorktreeCreateScript string `yaml:"worktree_create_script"`
	PostCreateScript     string `yaml:"post_create_script"`
}

// AsMaterializerScripts adapts ScriptsConfig to materializer.ScriptConfig.
func (s *ScriptsConfig) AsMaterializerScripts() materializer.ScriptConfig {
	if s == nil {
		return materializer.ScriptConfig{}
	}
	return materializer.ScriptConfig{
		WorktreeCreateScript: s.WorktreeCreateScript,
		PostCreateScript:     s.PostCreateScript,
	}
}

// RepoConfig names one repository VibeTree coordinates, analogous to the
// teacher's ProjectConfig.
type RepoConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// DefaultConfig returns sensible defaults: a localhost gateway on 4173, text
// logging at info level, and the store under ~/.vibetree.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Gateway: &gateway.Config{Host: "127.0.0.1", Port: 4173},
		Logging: logging.DefaultConfig(),
		Store:   &StoreConfig{Path: filepath.Join("~", ".vibetree", "data")},
		Scripts: &ScriptsConfig{},
	}
}

// Load reads and parses a YAML config file, falling back to DefaultConfig
// if the file does not exist. Environment variables in the file are
// expanded via os.ExpandEnv.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Store.Path = expandPath(cfg.Store.Path)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Store != nil {
		cfg.Store.Path = expandPath(cfg.Store.Path)
	}
	for _, r := range cfg.Repos {
		r.Path = expandPath(r.Path)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating the parent directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultConfigPath returns ~/.vibetree/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vibetree", "config.yaml")
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Gateway == nil {
		return fmt.Errorf("gateway configuration is required")
	}
	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		return fmt.Errorf("invalid gateway port: %d", c.Gateway.Port)
	}
	if c.Store == nil || c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	return nil
}

// GetRepo returns the repo configured at path, or nil.
func (c *Config) GetRepo(path string) *RepoConfig {
	for _, r := range c.Repos {
		if r.Path == path {
			return r
		}
	}
	return nil
}

// GetRepoByName returns the repo matching name case-insensitively, or nil.
func (c *Config) GetRepoByName(name string) *RepoConfig {
	lower := strings.ToLower(name)
	for _, r := range c.Repos {
		if strings.ToLower(r.Name) == lower {
			return r
		}
	}
	return nil
}

// GetDefaultRepo returns the repo named by DefaultRepo, falling back to the
// first configured repo. Returns nil if none are configured.
func (c *Config) GetDefaultRepo() *RepoConfig {
	if c.DefaultRepo != "" {
		if r := c.GetRepoByName(c.DefaultRepo); r != nil {
			return r
		}
	}
	if len(c.Repos) > 0 {
		return c.Repos[0]
	}
	return nil
}
