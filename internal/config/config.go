// Package config loads mem settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines mem configuration.
type Config struct {
	DB    DBConfig    `yaml:"db"`
	Log   LogConfig   `yaml:"log"`
	Index IndexConfig `yaml:"index"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type IndexConfig struct {
	Root     string   `yaml:"root"`
	Manifest string   `yaml:"manifest"`
	Patterns []string `yaml:"patterns"`
}

// DefaultPatterns are the slash-separated globs, relative to each project
// directory, that name indexable memory documents.
var DefaultPatterns = []string{"memory/*.md", "CLAUDE.md"}

// Default returns the built-in configuration rooted at home.
func Default(home string) Config {
	return Config{
		DB: DBConfig{
			Path: filepath.Join(home, ".mem", "mem.db"),
		},
		Log: LogConfig{
			Level: "warn",
		},
		Index: IndexConfig{
			Root:     filepath.Join(home, ".claude", "projects"),
			Manifest: filepath.Join(home, ".mem", "projects.yaml"),
			Patterns: append([]string(nil), DefaultPatterns...),
		},
	}
}

// Load reads configuration from path, or from the file named by MEM_CONFIG, or from
// ~/.mem/config.yaml, then applies environment overrides. A missing default file is
// not an error; a missing file named explicitly is.
func Load(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home dir: %w", err)
	}
	cfg := Default(home)

	explicit := true
	if path == "" {
		path = os.Getenv("MEM_CONFIG")
	}
	if path == "" {
		path, explicit = filepath.Join(home, ".mem", "config.yaml"), false
	}
	if err := loadFromFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if dbPath := os.Getenv("MEM_DB"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("MEM_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if root := os.Getenv("MEM_INDEX_ROOT"); root != "" {
		cfg.Index.Root = root
	}
	if manifest := os.Getenv("MEM_MANIFEST"); manifest != "" {
		cfg.Index.Manifest = manifest
	}

	cfg.DB.Path = expandHome(cfg.DB.Path, home)
	cfg.Index.Root = expandHome(cfg.Index.Root, home)
	cfg.Index.Manifest = expandHome(cfg.Index.Manifest, home)
	if len(cfg.Index.Patterns) == 0 {
		cfg.Index.Patterns = append([]string(nil), DefaultPatterns...)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// expandHome replaces a leading "~/" with the home directory.
func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}
