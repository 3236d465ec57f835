// Package config provides configuration loading and management for stemtools.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"stemtools/pkg/imaging"
	"stemtools/pkg/lattice"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Imaging parameters
	Imaging struct {
		// Px2Ang is the pixel-to-angstrom ratio the decoding networks expect
		Px2Ang float64 `yaml:"px2ang"`

		// DivisibleBy is the downsampling factor the resized image dimension
		// must divide by
		DivisibleBy int `yaml:"divisibleBy"`
	} `yaml:"imaging"`

	// Lattice parameters
	Lattice struct {
		// LatticeAtom is the species label of the host lattice
		LatticeAtom string `yaml:"latticeAtom"`

		// Dopant is the species label of the substitutional dopant
		Dopant string `yaml:"dopant"`

		// Bonds lists the maximum bond length per species pair, in picometers
		Bonds []BondEntry `yaml:"bonds"`
	} `yaml:"lattice"`

	// Output parameters
	Output struct {
		// SaveOverlays determines whether decoded site overlays are written
		SaveOverlays bool `yaml:"saveOverlays"`

		// HistogramBins is the bin count for distance histograms
		HistogramBins int `yaml:"histogramBins"`

		// Dir is the directory analysis artifacts are written to
		Dir string `yaml:"dir"`
	} `yaml:"output"`
}

// BondEntry is a species pair with its maximum bond length
type BondEntry struct {
	A         string  `yaml:"a"`
	B         string  `yaml:"b"`
	MaxLength float64 `yaml:"maxLength"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Imaging.Px2Ang = imaging.DefaultPx2Ang
	cfg.Imaging.DivisibleBy = imaging.DefaultDivisibleBy

	// Si-doped graphene, the system the decoding networks are trained on.
	cfg.Lattice.LatticeAtom = "C"
	cfg.Lattice.Dopant = "Si"
	cfg.Lattice.Bonds = []BondEntry{
		{A: "C", B: "C", MaxLength: 175},
		{A: "C", B: "Si", MaxLength: 210},
		{A: "Si", B: "Si", MaxLength: 250},
	}

	cfg.Output.SaveOverlays = true
	cfg.Output.HistogramBins = 20
	cfg.Output.Dir = "analysis_output"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// SpeciesMap converts the configured species labels to a lattice species map
func (c *Config) SpeciesMap() lattice.SpeciesMap {
	return lattice.SpeciesMap{
		LatticeAtom: c.Lattice.LatticeAtom,
		Dopant:      c.Lattice.Dopant,
	}
}

// BondTable converts the configured bond entries to a lattice bond table
func (c *Config) BondTable() lattice.BondTable {
	table := make(lattice.BondTable, len(c.Lattice.Bonds))
	for _, b := range c.Lattice.Bonds {
		table[lattice.NewPair(b.A, b.B)] = b.MaxLength
	}
	return table
}
