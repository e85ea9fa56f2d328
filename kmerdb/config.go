package kmerdb

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultK         = 21
	defaultAlpha     = 1.0
	defaultThreshold = 0.0
	defaultRangeSize = 1 << 16
	maxK             = 32
)

// SpeciesConfig names a species and the genome files sampled for it.
type SpeciesConfig struct {
	Name    string   `yaml:"name"`
	Genomes []string `yaml:"genomes"`
}

// Config holds run parameters. Zero values are replaced by OrDefault.
type Config struct {
	K         int             `yaml:"k"`                    // k-mer length, default 21, max 32
	Alpha     float64         `yaml:"alpha"`                // additive smoothing constant, default 1
	Threshold float64         `yaml:"threshold"`            // retention threshold in [0,1], default 0
	Output    string          `yaml:"output"`               // database path
	Workers   int             `yaml:"workers,omitempty"`    // merge and count workers, default NumCPU
	Shards    int             `yaml:"shards,omitempty"`     // count store shards, default NumCPU
	RangeSize int             `yaml:"range_size,omitempty"` // codes per merge job, default 65536
	Strict    bool            `yaml:"strict,omitempty"`     // re-open and validate the published file
	Species   []SpeciesConfig `yaml:"species"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		K:         defaultK,
		Alpha:     defaultAlpha,
		Threshold: defaultThreshold,
		RangeSize: defaultRangeSize,
	}
}

// OrDefault returns DefaultConfig if c is nil, otherwise normalizes c.
// Alpha and Threshold are kept as given since zero is meaningful for both.
func (c *Config) OrDefault() *Config {
	if c == nil {
		return DefaultConfig()
	}
	if c.K <= 0 {
		c.K = defaultK
	}
	if c.RangeSize <= 0 {
		c.RangeSize = defaultRangeSize
	}
	return c
}

// Validate checks the parameters that do not depend on input files.
func (c *Config) Validate() error {
	const op = "config"
	if c.K <= 0 || c.K > maxK {
		return invalidf(op, "k %d outside [1,%d]", c.K, maxK)
	}
	if math.IsNaN(c.Alpha) || math.IsInf(c.Alpha, 0) || c.Alpha < 0 {
		return invalidf(op, "alpha %g must be a finite value >= 0", c.Alpha)
	}
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		return invalidf(op, "threshold %g outside [0,1]", c.Threshold)
	}
	if c.Output == "" {
		return invalidf(op, "output path is empty")
	}
	if len(c.Species) == 0 {
		return newError(KindInvalidParameter, op, ErrEmptyDatabase)
	}
	for _, s := range c.Species {
		if len(s.Genomes) == 0 {
			return invalidf(op, "species %q has no genome files", s.Name)
		}
	}
	return nil
}

// SpeciesTable registers the configured species in order. The sample count of each
// species is its number of genome files.
func (c *Config) SpeciesTable() (*SpeciesTable, error) {
	t := NewSpeciesTable()
	for _, s := range c.Species {
		if _, err := t.Register(s.Name, uint32(len(s.Genomes))); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadConfig reads a YAML run configuration. Relative genome and output paths are
// resolved against the directory of the config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError("config", path, fmt.Errorf("cannot read config: %w", err))
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Kind: KindInvalidParameter, Op: "config", Path: path, Err: fmt.Errorf("%w: invalid YAML: %w", ErrInvalidInput, err)}
	}
	base := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || p == "-" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	cfg.Output = resolve(cfg.Output)
	for i := range cfg.Species {
		for j, g := range cfg.Species[i].Genomes {
			cfg.Species[i].Genomes[j] = resolve(g)
		}
	}
	return cfg.OrDefault(), nil
}

// Save writes cfg as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ioError("config", path, err)
	}
	return nil
}
