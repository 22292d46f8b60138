package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  env: production
storage:
  type: s3
  bucket: gigboard-media
upload:
  max_size: 1048576
  profiles:
    track:
      max_size: 2097152
      allowed_types: ["audio/*"]
    flyer: {}
`), 0o644))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("REDIS_ADDR", "localhost:6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "gigboard-media", cfg.Storage.Bucket)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	// значения не из файла остаются по умолчанию
	assert.Equal(t, 85, cfg.Upload.ImageQuality)

	track, ok := cfg.UploadProfile("track")
	require.True(t, ok)
	assert.EqualValues(t, 2097152, track.MaxSize)

	flyer, ok := cfg.UploadProfile("flyer")
	require.True(t, ok)
	assert.EqualValues(t, 1048576, flyer.MaxSize)
	assert.Equal(t, EPKAccept, flyer.AllowedTypes)

	_, ok = cfg.UploadProfile("unknown")
	assert.False(t, ok)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SERVER_PORT", "eighty")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Storage.Type = "ftp"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Upload.ImageQuality = 0
	assert.Error(t, cfg.Validate())
}

func TestMaxUploadRequestSize(t *testing.T) {
	cfg := Default()
	cfg.Upload.MaxFiles = 4
	cfg.Upload.MaxSize = 10 * mb
	cfg.Upload.Profiles = map[string]UploadProfile{
		"track":  {MaxSize: 100 * mb},
		"avatar": {MaxSize: 5 * mb},
	}
	assert.Equal(t, int64(4*100*mb+multipartOverhead), cfg.MaxUploadRequestSize())

	cfg.Upload.MaxFiles = 0
	cfg.Upload.Profiles = nil
	assert.Equal(t, int64(10*mb+multipartOverhead), cfg.MaxUploadRequestSize())
}
