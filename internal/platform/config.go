package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigNames are the file names FindConfig looks for, in order.
var ConfigNames = []string{"odm.yaml", ".odm.yaml"}

// ErrNoConfig is returned by FindConfig when no configuration file exists
// between the start directory and the filesystem root.
var ErrNoConfig = errors.New("config not found")

// Config is the on-disk configuration read by the command line tool.
type Config struct {
	StrictNames  bool        `yaml:"strict_names"`
	Milliseconds bool        `yaml:"milliseconds"`
	Select       []string    `yaml:"select"`
	Output       string      `yaml:"output"`
	Mongo        MongoConfig `yaml:"mongo"`
}

// MongoConfig locates the collection read by the find command.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Options turns the configuration into mapper options.
func (c Config) Options() []Option {
	return []Option{
		WithStrictNames(c.StrictNames),
		WithMillisecondPrecision(c.Milliseconds),
	}
}

// FindConfig looks upwards from startDir for one of ConfigNames and returns
// the absolute path of the first one found.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, name := range ConfigNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrNoConfig
}

// LoadConfig reads the configuration file at path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// DiscoverConfig loads the configuration found from startDir. A missing file
// yields the zero Config.
func DiscoverConfig(startDir string) (Config, string, error) {
	path, err := FindConfig(startDir)
	if errors.Is(err, ErrNoConfig) {
		return Config{}, "", nil
	}
	if err != nil {
		return Config{}, "", err
	}
	cfg, err := LoadConfig(path)
	return cfg, path, err
}
