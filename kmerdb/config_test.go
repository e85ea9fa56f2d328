package kmerdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
k: 15
alpha: 0.5
threshold: 0.8
output: out/db.bin
workers: 4
strict: true
species:
  - name: E_coli
    genomes: [a.fa, /abs/b.fa]
  - name: K_pneumoniae
    genomes: [c.fa.gz]
`), 0o644))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15, cfg.K)
	assert.Equal(t, 0.5, cfg.Alpha)
	assert.Equal(t, 0.8, cfg.Threshold)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.Strict)
	assert.Equal(t, defaultRangeSize, cfg.RangeSize)
	assert.Equal(t, filepath.Join(dir, "out", "db.bin"), cfg.Output)
	assert.Equal(t, []string{filepath.Join(dir, "a.fa"), "/abs/b.fa"}, cfg.Species[0].Genomes)

	tbl, err := cfg.SpeciesTable()
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 1}, tbl.Denominators())
}

func TestLoadConfig_Defaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "min.yaml")
	require.NoError(t, os.WriteFile(p, []byte("output: x.db\nspecies: [{name: a, genomes: [g.fa]}]\n"), 0o644))
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, defaultK, cfg.K)
	assert.Equal(t, defaultAlpha, cfg.Alpha)
	assert.Equal(t, defaultThreshold, cfg.Threshold)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, KindIO, KindOf(err))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("k: [unterminated"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Output = "db.bin"
		cfg.Species = []SpeciesConfig{{Name: "a", Genomes: []string{"g.fa"}}}
		return cfg
	}
	require.NoError(t, valid().Validate())

	for name, mutate := range map[string]func(*Config){
		"k too large":     func(c *Config) { c.K = 33 },
		"negative alpha":  func(c *Config) { c.Alpha = -1 },
		"threshold > 1":   func(c *Config) { c.Threshold = 1.01 },
		"no output":       func(c *Config) { c.Output = "" },
		"no species":      func(c *Config) { c.Species = nil },
		"no genomes":      func(c *Config) { c.Species[0].Genomes = nil },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Equal(t, KindInvalidParameter, KindOf(err))
		})
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = filepath.Join(dir, "db.bin")
	cfg.Species = []SpeciesConfig{{Name: "a", Genomes: []string{filepath.Join(dir, "g.fa")}}}
	p := filepath.Join(dir, "saved.yaml")
	require.NoError(t, cfg.Save(p))
	got, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
