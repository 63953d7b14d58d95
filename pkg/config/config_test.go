package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := LoadFromReader("yaml", []byte(""))
	require.NoError(t, err)

	assert.Equal(t, "bfs", cfg.Compile.Heuristic)
	assert.Equal(t, 8, cfg.Compile.FIFOLength)
	assert.True(t, cfg.Compile.SchedulePartitions)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromReader_Overrides(t *testing.T) {
	content := []byte(`
compile:
  heuristic: random
  seed: 12345
  strict: true
  fifo_length: 16
database:
  enabled: true
  type: postgres
  host: db.internal
  port: 5432
storage:
  type: cos
  bucket: designs
  region: ap-guangzhou
`)
	cfg, err := LoadFromReader("yaml", content)
	require.NoError(t, err)

	assert.Equal(t, "random", cfg.Compile.Heuristic)
	assert.Equal(t, uint64(12345), cfg.Compile.Seed)
	assert.True(t, cfg.Compile.Strict)
	assert.Equal(t, 16, cfg.Compile.FIFOLength)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "designs", cfg.Storage.Bucket)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad heuristic", func(c *Config) { c.Compile.Heuristic = "magic" }, true},
		{"fifo too short", func(c *Config) { c.Compile.FIFOLength = 1 }, true},
		{"bad db type", func(c *Config) { c.Database.Enabled = true; c.Database.Type = "oracle" }, true},
		{"db type ignored when disabled", func(c *Config) { c.Database.Type = "oracle" }, false},
		{"bad storage type", func(c *Config) { c.Storage.Type = "s3" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromReader("yaml", []byte(""))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
