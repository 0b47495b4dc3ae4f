package viper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storage struct {
	Format      string `mapstructure:"format"`
	Compression string `mapstructure:"compression"`
	Retries     uint   `mapstructure:"retries"`
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  format: proto\n  retries: 5\n"), 0o644))
	t.Setenv("RINGER_STORAGE_COMPRESSION", "zstd")

	c := New()
	require.NoError(t, c.SetDefaults("storage", storage{Format: "json", Compression: "gzip", Retries: 1}))
	require.NoError(t, c.LoadFile(path))

	var got struct {
		Storage storage `mapstructure:"storage"`
	}
	require.NoError(t, c.Unmarshal(&got))
	assert.Equal(t, storage{Format: "proto", Compression: "zstd", Retries: 5}, got.Storage)
	assert.True(t, c.IsSet("storage.format"))
	assert.Equal(t, "proto", c.GetString("storage.format"))
}

func TestLoadMissingFile(t *testing.T) {
	assert.Error(t, New().LoadFile(filepath.Join(t.TempDir(), "none.yaml")))
}
