package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const mappingYAML = `
registry:
  owner: petrows
  prefix: ghcr.io/petrows
  cache: ghcr.io/petrows/cache
images:
  zeta:
    description: last letter first
    tags: [v2, v1]
  alpha:
    description: declared second
    tags: ["1.0"]
  python:
    - "3.12"
    - "3.11"
`

func TestLoadYAMLPreservesDeclarationOrder(t *testing.T) {
	cfg, err := Load(writeConfig(t, "docker.yml", mappingYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.Images.Names(), []string{"zeta", "alpha", "python"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	zeta, ok := cfg.Image("zeta")
	if !ok {
		t.Fatal("zeta not found")
	}
	if !reflect.DeepEqual(zeta.Tags, []string{"v2", "v1"}) {
		t.Errorf("zeta tags = %v, want [v2 v1]", zeta.Tags)
	}
	if zeta.Description != "last letter first" {
		t.Errorf("zeta description = %q", zeta.Description)
	}

	py, _ := cfg.Image("python")
	if !reflect.DeepEqual(py.Tags, []string{"3.12", "3.11"}) {
		t.Errorf("python shorthand tags = %v", py.Tags)
	}

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want default %d", cfg.Version, CurrentVersion)
	}
	if cfg.Probe.Method != ProbeCLI || len(cfg.Probe.Command) == 0 {
		t.Errorf("probe defaults not applied: %+v", cfg.Probe)
	}
}

func TestLoadYAMLSequenceForm(t *testing.T) {
	cfg, err := Load(writeConfig(t, "docker.yaml", `
version: 1
registry:
  prefix: ghcr.io/petrows
probe:
  method: http
  strict: true
images:
  - name: b
    tags: [x]
  - name: a
    tags: [y, z]
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Images.Names(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Names() = %v", got)
	}
	if cfg.Probe.Method != ProbeHTTP || !cfg.Probe.Strict {
		t.Errorf("probe = %+v", cfg.Probe)
	}
	if !reflect.DeepEqual(cfg.Probe.Command, DefaultProbeConfig().Command) {
		t.Errorf("unset probe.command lost its default: %v", cfg.Probe.Command)
	}
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "docker.toml", `
version = 1

[registry]
owner = "petrows"
prefix = "ghcr.io/petrows"

[[images]]
name = "github-linters"
description = "linters"
tags = ["v3", "v3-test"]

[[images]]
name = "base"
tags = ["latest"]
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Images.Names(); !reflect.DeepEqual(got, []string{"github-linters", "base"}) {
		t.Errorf("Names() = %v", got)
	}
	if cfg.Registry.ImagePrefix != "ghcr.io/petrows" {
		t.Errorf("prefix = %q", cfg.Registry.ImagePrefix)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "docker.yml", "registry:\n  prefx: typo\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseRejectsUnknownImageKeys(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "mapping body",
			yaml: "images:\n  a:\n    tags: [\"1\"]\n    descripton: typo\n",
			want: `images.a: line 4: unknown field "descripton"`,
		},
		{
			name: "sequence entry",
			yaml: "images:\n  - name: a\n    tag: [\"1\"]\n",
			want: `images[0]: line 3: unknown field "tag"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), FormatYAML)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := &Config{Registry: RegistryConfig{Owner: "a", ImagePrefix: "p", CacheRef: "c"}}
	env := map[string]string{EnvOwner: "fork", EnvCache: "ghcr.io/fork/cache"}
	applyEnv(cfg, func(k string) string { return env[k] })

	want := RegistryConfig{Owner: "fork", ImagePrefix: "p", CacheRef: "ghcr.io/fork/cache"}
	if cfg.Registry != want {
		t.Errorf("Registry = %+v, want %+v", cfg.Registry, want)
	}
}

func TestRegistryReference(t *testing.T) {
	r := RegistryConfig{ImagePrefix: "ghcr.io/petrows/"}
	if got := r.Reference("A", "2"); got != "ghcr.io/petrows/A:2" {
		t.Errorf("Reference = %q", got)
	}
}

func TestCacheFor(t *testing.T) {
	tests := []struct {
		cache string
		want  string
	}{
		{"", ""},
		{"ghcr.io/petrows/cache", "ghcr.io/petrows/cache:img"},
		{"ghcr.io/petrows/cache:shared", "ghcr.io/petrows/cache:shared"},
		{"localhost:5000/cache", "localhost:5000/cache:img"},
	}
	for _, tt := range tests {
		r := RegistryConfig{CacheRef: tt.cache}
		if got := r.CacheFor("img"); got != tt.want {
			t.Errorf("CacheFor(%q) = %q, want %q", tt.cache, got, tt.want)
		}
	}
}

func validConfig() *Config {
	return &Config{
		Version:  CurrentVersion,
		Registry: RegistryConfig{Owner: "petrows", ImagePrefix: "ghcr.io/petrows", CacheRef: "ghcr.io/petrows/cache"},
		Probe:    DefaultProbeConfig(),
		Images: ImageList{
			{Name: "a", Tags: []string{"1", "2"}, Description: "A"},
			{Name: "b", Tags: []string{"3"}, Description: "B"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad version", mutate: func(c *Config) { c.Version = 2 }, wantErr: "version: must be 1"},
		{name: "missing prefix", mutate: func(c *Config) { c.Registry.ImagePrefix = "" }, wantErr: "registry.prefix: is required"},
		{name: "no images", mutate: func(c *Config) { c.Images = nil }, wantErr: "at least one image"},
		{name: "duplicate image", mutate: func(c *Config) { c.Images[1].Name = "a" }, wantErr: `duplicate image name "a"`},
		{name: "uppercase image", mutate: func(c *Config) { c.Images[0].Name = "Bad" }, wantErr: "not a valid repository component"},
		{name: "empty tags", mutate: func(c *Config) { c.Images[1].Tags = nil }, wantErr: "at least one tag"},
		{name: "bad tag", mutate: func(c *Config) { c.Images[0].Tags = []string{"-x"} }, wantErr: `invalid tag "-x"`},
		{name: "duplicate tag", mutate: func(c *Config) { c.Images[0].Tags = []string{"1", "1"} }, wantErr: `duplicate tag "1"`},
		{name: "unknown probe", mutate: func(c *Config) { c.Probe.Method = "ftp" }, wantErr: `unknown method "ftp"`},
		{name: "empty cli command", mutate: func(c *Config) { c.Probe.Command = nil }, wantErr: "probe.command"},
		{name: "bad timeout", mutate: func(c *Config) { c.Probe.Timeout = "soon" }, wantErr: "probe.timeout"},
		{name: "bad ci", mutate: func(c *Config) { c.CI = "jenkins" }, wantErr: `unknown flavor "jenkins"`},
		{name: "bad constraint", mutate: func(c *Config) { c.Requires = "not a range" }, wantErr: "requires: invalid constraint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			_, err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := validConfig()
	cfg.Registry.CacheRef = ""
	cfg.Images[0].Description = ""

	warnings, err := Validate(cfg)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %v, want 2", warnings)
	}
}

func TestValidateWarnsStrictCLI(t *testing.T) {
	cfg := validConfig()
	cfg.Probe.Strict = true

	warnings, err := Validate(cfg)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !reflect.DeepEqual(warnings, []string{StrictCLIWarning}) {
		t.Errorf("warnings = %v", warnings)
	}

	cfg.Probe.Method = ProbeHTTP
	if warnings, _ := Validate(cfg); len(warnings) != 0 {
		t.Errorf("http method warnings = %v", warnings)
	}
}

func TestCheckRequires(t *testing.T) {
	tests := []struct {
		constraint string
		tool       string
		wantErr    bool
	}{
		{">= 1.2", "1.3.0", false},
		{">= 1.2", "v1.1.9", true},
		{">= 1.2", "dev", false},
		{">= 1.2", "", false},
		{"^2", "2.0.1", false},
		{"^2", "3.0.0", true},
	}
	for _, tt := range tests {
		err := checkRequires(tt.constraint, tt.tool)
		if (err != nil) != tt.wantErr {
			t.Errorf("checkRequires(%q, %q) = %v, wantErr %v", tt.constraint, tt.tool, err, tt.wantErr)
		}
	}
}
