package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/orbitlab/orbit/pkg/chunker"
)

// Config stores repository-local settings: the commit author identity and
// the chunk size boundaries used when files are split.
type Config struct {
	User    UserConfig    `toml:"user"`
	Chunker ChunkerConfig `toml:"chunker"`
}

type UserConfig struct {
	Name string `toml:"name"`
}

type ChunkerConfig struct {
	MinSize uint `toml:"min_size"`
	AvgSize uint `toml:"avg_size"`
	MaxSize uint `toml:"max_size"`
}

// DefaultConfig returns the settings written by Init.
func DefaultConfig() *Config {
	return &Config{
		User: UserConfig{Name: "anonymous <anonymous@localhost>"},
		Chunker: ChunkerConfig{
			MinSize: chunker.DefaultConfig.MinSize,
			AvgSize: chunker.DefaultConfig.AvgSize,
			MaxSize: chunker.DefaultConfig.MaxSize,
		},
	}
}

func (r *Repo) configPath() string {
	return filepath.Join(r.OrbDir, "config.toml")
}

// ReadConfig reads .orb/config.toml. A missing file returns the defaults.
func (r *Repo) ReadConfig() (*Config, error) {
	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("read config: unmarshal: %w", err)
	}
	return cfg, nil
}

// WriteConfig atomically writes .orb/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(r.OrbDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// chunkerConfig returns the chunk boundaries from repository config,
// falling back to package defaults for unset fields.
func (r *Repo) chunkerConfig() (chunker.Config, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return chunker.Config{}, err
	}
	out := chunker.Config{
		MinSize: cfg.Chunker.MinSize,
		AvgSize: cfg.Chunker.AvgSize,
		MaxSize: cfg.Chunker.MaxSize,
	}
	return out, nil
}

// authorName returns the configured commit author.
func (r *Repo) authorName() (string, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	return cfg.User.Name, nil
}
