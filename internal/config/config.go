// Package config provides YAML configuration file support for
// paris-traceroute: persisted defaults for the probe method, MDA's
// confidence parameter, and traceroute's per-hop probe counts, layered
// underneath whatever the CLI flags override (spec.md §9 "Config-file-
// driven defaults").
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration file structure.
type Config struct {
	Defaults Defaults          `yaml:"defaults"`
	Aliases  map[string]string `yaml:"aliases,omitempty"`
}

// Defaults holds default values for trace parameters, applied whenever the
// matching CLI flag is left unset. Verbose, InterProbeDelay, DestPort and
// Enrichment.Enabled are read and saved but not applied to any flag.
type Defaults struct {
	// Output mode
	TUI     bool `yaml:"tui"`
	Verbose bool `yaml:"verbose"`
	Format  string `yaml:"format"` // "default", "json", "xml", "table", "csv", or "html" (spec.md §6 -F)
	NoColor bool `yaml:"no_color"`

	// Algorithm selection (spec.md §6 -a)
	Algorithm string  `yaml:"algorithm"` // "paris-traceroute" or "mda"
	MDAAlpha  float64 `yaml:"mda_alpha"`

	// Probe method: icmp, udp, tcp
	ProbeMethod string `yaml:"probe_method"`

	// Trace parameters
	MaxHops            int           `yaml:"max_hops"`
	Queries            int           `yaml:"queries"`
	Timeout            time.Duration `yaml:"timeout"`
	FirstHop           int           `yaml:"first_hop"`
	MaxConsecutiveStar int           `yaml:"max_consecutive_star"`
	InterProbeDelay    time.Duration `yaml:"inter_probe_delay"`
	Sorted             bool          `yaml:"sorted"`

	// Network
	IPv4       bool `yaml:"ipv4"`
	IPv6       bool `yaml:"ipv6"`
	SourcePort int  `yaml:"source_port"`
	DestPort   int  `yaml:"dest_port"`

	// Enrichment
	Enrichment EnrichmentConfig `yaml:"enrichment"`
}

// EnrichmentConfig holds enrichment settings. paris-traceroute only ever
// carries reverse-DNS annotation (spec.md §1 names external collaborators
// like ASN/GeoIP lookups as out of scope); the field stays its own struct
// so a config file written against an older ASN/GeoIP-capable version
// still parses, with those keys simply ignored.
type EnrichmentConfig struct {
	Enabled bool `yaml:"enabled"`
	RDNS    bool `yaml:"rdns"`
}

// DefaultConfig returns a Config with the spec's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Defaults{
			Format:             "default",
			Algorithm:          "paris-traceroute",
			MDAAlpha:           0.05,
			ProbeMethod:        "udp",
			MaxHops:            30,
			Queries:            3,
			Timeout:            3 * time.Second,
			FirstHop:           1,
			MaxConsecutiveStar: 5,
			SourcePort:         33456,
			DestPort:           33457,
			Enrichment: EnrichmentConfig{
				Enabled: true,
				RDNS:    true,
			},
		},
		Aliases: make(map[string]string),
	}
}

// Load reads configuration from the default config file locations. It
// searches in order: ./paris-traceroute.yaml, then the user config
// directory. If no config file is found, returns default configuration.
func Load() (*Config, error) {
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return LoadFrom(path)
		}
	}
	return DefaultConfig(), nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the default user config path.
func (c *Config) Save() error {
	return c.SaveTo(getUserConfigPath())
}

// SaveTo writes the configuration to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func getConfigPaths() []string {
	paths := []string{
		"paris-traceroute.yaml",
		"paris-traceroute.yml",
		".paris-traceroute.yaml",
		".paris-traceroute.yml",
	}
	if userPath := getUserConfigPath(); userPath != "" {
		paths = append(paths, userPath)
	}
	return paths
}

func getUserConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "paris-traceroute", "config.yaml")
		}
	default:
		home, err := os.UserHomeDir()
		if err == nil {
			if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
				return filepath.Join(xdgConfig, "paris-traceroute", "config.yaml")
			}
			return filepath.Join(home, ".config", "paris-traceroute", "config.yaml")
		}
	}
	return ""
}

// GetConfigPath returns the path where user config would be saved.
func GetConfigPath() string {
	return getUserConfigPath()
}

// GenerateExample generates the example configuration file printed by
// `config --show`.
func GenerateExample() string {
	return `# paris-traceroute configuration file
# Location: ~/.config/paris-traceroute/config.yaml (Linux/macOS)
#           %APPDATA%\paris-traceroute\config.yaml (Windows)
#           ./paris-traceroute.yaml (current directory)

defaults:
  tui: false              # Interactive TUI mode
  verbose: false          # Detailed table output
  format: default         # default, json, xml, table, csv, or html
  no_color: false

  algorithm: paris-traceroute  # paris-traceroute or mda
  mda_alpha: 0.05              # MDA stopping-rule confidence parameter

  probe_method: udp      # icmp, udp, or tcp

  max_hops: 30
  queries: 3
  timeout: 3s
  first_hop: 1
  max_consecutive_star: 5
  inter_probe_delay: 0s
  sorted: false

  ipv4: false
  ipv6: false
  source_port: 33456
  dest_port: 33457

  enrichment:
    enabled: true
    rdns: true

aliases:
  dns: 8.8.8.8
  cf: 1.1.1.1
  google: google.com
`
}
