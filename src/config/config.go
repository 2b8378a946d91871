// Package config loads the image manifest: the registry the images live in
// and, per image, the ordered list of tags that must exist there.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no --config flag is given.
const DefaultConfigFile = "docker.yml"

// CurrentVersion is the only schema version this binary understands.
// Files without a version field are treated as this version.
const CurrentVersion = 1

// Environment variables that override registry settings after loading.
const (
	EnvOwner  = "BUILD_DOCKER_OWNER"
	EnvPrefix = "BUILD_DOCKER_PREFIX"
	EnvCache  = "BUILD_DOCKER_CACHE"
)

// Config is the top-level configuration. It is loaded once per run and
// treated as read-only afterwards.
type Config struct {
	Version  int            `yaml:"version" toml:"version"`
	Requires string         `yaml:"requires" toml:"requires"` // semver constraint on the tool version
	Source   string         `yaml:"source" toml:"source"`     // org.opencontainers.image.source, resolved from git when empty
	CI       string         `yaml:"ci" toml:"ci"`             // group markers: github, gitlab, plain
	Registry RegistryConfig `yaml:"registry" toml:"registry"`
	Probe    ProbeConfig    `yaml:"probe" toml:"probe"`
	Images   ImageList      `yaml:"images" toml:"images"`
}

// Image returns the image declared under name.
func (c *Config) Image(name string) (ImageSpec, bool) {
	return c.Images.Lookup(name)
}

// Load reads configuration from a YAML or TOML file.
// If path is empty, DefaultConfigFile is used. The format is picked from the
// file extension; anything that is not .toml is parsed as YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg, err := Parse(data, formatFor(path))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnv(cfg, os.Getenv)
	return cfg, nil
}

// Format names a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes raw configuration bytes on top of the defaults.
// Unknown keys are rejected in both formats.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := defaults()

	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Probe: DefaultProbeConfig(),
	}
}

// applyEnv overlays registry settings from the environment. CI systems use
// this to point a shared manifest at a fork's registry.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvOwner); v != "" {
		cfg.Registry.Owner = v
	}
	if v := getenv(EnvPrefix); v != "" {
		cfg.Registry.ImagePrefix = v
	}
	if v := getenv(EnvCache); v != "" {
		cfg.Registry.CacheRef = v
	}
}
