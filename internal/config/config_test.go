package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "provhash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
metadata_dir: /data/metadata/
media_dir: /data/media/
hash_dir: /data/hashes/
media_extension: gif
count: 10000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/metadata/", cfg.MetadataDir)
	assert.Equal(t, "/data/media/", cfg.MediaDir)
	assert.Equal(t, "/data/hashes/", cfg.HashDir)
	assert.Equal(t, "gif", cfg.MediaExtension)
	assert.Equal(t, 10000, cfg.Count)
}

func TestLoad_MediaExtensionDefault(t *testing.T) {
	path := writeConfig(t, `
metadata_dir: /data/metadata/
media_dir: /data/media/
hash_dir: /data/hashes/
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "png", cfg.MediaExtension)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
metadata_dir: /data/metadata/
media_dir: /data/media/
hash_dir: /data/hashes/
`)
	t.Setenv(EnvHashDir, "/override/hashes/")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/override/hashes/", cfg.HashDir)
	assert.Equal(t, "/data/media/", cfg.MediaDir)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv(EnvMetadataDir, "/env/metadata/")
	t.Setenv(EnvMediaDir, "/env/media/")
	t.Setenv(EnvHashDir, "/env/hashes/")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/metadata/", cfg.MetadataDir)
}

func TestLoad_MissingRequiredSetting(t *testing.T) {
	path := writeConfig(t, `
metadata_dir: /data/metadata/
media_dir: /data/media/
`)
	t.Setenv(EnvHashDir, "")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsMissingSetting(err))
	assert.Contains(t, err.Error(), "hash_dir")
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, `
metadata_dir: /data/metadata/
media_dir: /data/media/
hash_dir: /data/hashes/
hashdir: typo
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_NegativeCount(t *testing.T) {
	path := writeConfig(t, `
metadata_dir: /data/metadata/
media_dir: /data/media/
hash_dir: /data/hashes/
count: -5
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.False(t, IsMissingSetting(err))
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
