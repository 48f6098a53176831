package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the pipeline configuration, loaded from the YAML config file and
// overridable through HANGAR_* environment variables and flags.
type Config struct {
	DataRoot    string `mapstructure:"data_root" yaml:"data_root"`
	Snapshot    string `mapstructure:"snapshot" yaml:"snapshot"`
	Compression string `mapstructure:"compression" yaml:"compression"`
}

func Load() (*Config, error) {
	var cfg Config

	viper.SetDefault("data_root", "data")
	viper.SetDefault("compression", "zstd")

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RawDir is where the external fetcher leaves a snapshot's source files.
func (c *Config) RawDir(snapshot string) string {
	return filepath.Join(c.DataRoot, "raw", snapshot)
}

// NormalizedDir holds a snapshot's typed Parquet tables.
func (c *Config) NormalizedDir(snapshot string) string {
	return filepath.Join(c.DataRoot, "normalized", snapshot)
}

// PublishRoot holds the published generations and the current pointer.
func (c *Config) PublishRoot() string {
	return filepath.Join(c.DataRoot, "publish")
}

// ManifestDir holds the chained run manifests.
func (c *Config) ManifestDir() string {
	return filepath.Join(c.DataRoot, "manifests")
}
