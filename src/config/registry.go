package config

import (
	"fmt"
	"strings"
	"time"
)

// RegistryConfig describes where images are published.
type RegistryConfig struct {
	Owner       string `yaml:"owner" toml:"owner"`
	ImagePrefix string `yaml:"prefix" toml:"prefix"` // e.g. ghcr.io/petrows
	CacheRef    string `yaml:"cache" toml:"cache"`   // buildx registry cache repository
}

// Reference returns the fully qualified reference {prefix}/{image}:{tag}.
func (r RegistryConfig) Reference(image, tag string) string {
	return fmt.Sprintf("%s/%s:%s", strings.TrimRight(r.ImagePrefix, "/"), image, tag)
}

// CacheFor returns the buildx cache reference for an image, or "" when no
// cache repository is configured. A cache ref that already names a tag is
// used verbatim for every image.
func (r RegistryConfig) CacheFor(image string) string {
	if r.CacheRef == "" {
		return ""
	}
	last := r.CacheRef[strings.LastIndex(r.CacheRef, "/")+1:]
	if strings.Contains(last, ":") {
		return r.CacheRef
	}
	return r.CacheRef + ":" + image
}

// Probe methods.
const (
	ProbeCLI  = "cli"
	ProbeHTTP = "http"
)

// ProbeConfig selects how tag existence is checked.
type ProbeConfig struct {
	Method    string   `yaml:"method" toml:"method"`
	Command   []string `yaml:"command" toml:"command"` // cli only; the reference is appended
	Strict    bool     `yaml:"strict" toml:"strict"`   // abort on probe errors instead of treating the tag as missing
	Timeout   string   `yaml:"timeout" toml:"timeout"` // per probe, e.g. "2m"; empty = unbounded
	PlainHTTP bool     `yaml:"plain_http" toml:"plain_http"`
}

// DefaultProbeConfig returns the manifest-inspect CLI probe.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Method:  ProbeCLI,
		Command: []string{"docker", "manifest", "inspect"},
	}
}

// TimeoutDuration parses Timeout. Zero means no bound.
func (p ProbeConfig) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("probe.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("probe.timeout: must not be negative, got %s", p.Timeout)
	}
	return d, nil
}
