// Package config loads externally-configurable run options (block
// length, look-ahead, solver timeout, cache path) from YAML, parsed
// with gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options holds the tunables a run reads at startup.
type Options struct {
	BlockLength      int     `yaml:"block_length"`
	LookAhead        int     `yaml:"look_ahead"`
	Horizon          int     `yaml:"horizon"`
	SolverTimeout    string  `yaml:"solver_timeout"`
	RunCachePath     string  `yaml:"run_cache_path"`
	Verbose          bool    `yaml:"verbose"`
	Color            bool    `yaml:"color"`
	CostPriceEpsilon float64 `yaml:"cost_price_epsilon"`
}

// Defaults returns the built-in option set used when no config file is
// supplied.
func Defaults() Options {
	return Options{
		BlockLength:      7,
		LookAhead:        3,
		Horizon:          7,
		SolverTimeout:    "30s",
		RunCachePath:     "./linnyr-rundb",
		Verbose:          false,
		Color:            true,
		CostPriceEpsilon: 1e-9,
	}
}

// Load reads and parses a YAML options file at path, starting from
// Defaults() so a partial file only overrides the fields it sets.
func Load(path string) (Options, error) {
	opts := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return opts, nil
}
