package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ENV_KEY_STORAGE_ROOT, t.TempDir())

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, c.Port)
	assert.Equal(t, STORAGE_DRIVER_LOCAL, c.StorageDriver)
	assert.EqualValues(t, 5<<20, c.MaxUploadBytes)
	assert.Equal(t, []string{".png", ".jpg", ".jpeg", ".jfif", ".webp"}, c.AllowedExtensions)
	assert.Equal(t, 85, c.ImageQuality)
	assert.Equal(t, []string{"candidate", "employer", "company", "job"}, c.RetirePartitions)
	assert.True(t, c.ExtractColors)
	assert.Equal(t, DELETE_AUTH_REQUIRED, c.DeleteAuth)
	assert.Equal(t, 10*time.Minute, c.CacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(ENV_KEY_ALLOWED_EXTENSIONS, ".PNG, .jpg")
	t.Setenv(ENV_KEY_RETIRE_PARTITIONS, "company")
	t.Setenv(ENV_KEY_IMAGE_QUALITY, "70")
	t.Setenv(ENV_KEY_DELETE_AUTH, DELETE_AUTH_OPTIONAL)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{".png", ".jpg"}, c.AllowedExtensions)
	assert.Equal(t, []string{"company"}, c.RetirePartitions)
	assert.Equal(t, 70, c.ImageQuality)
	assert.Equal(t, DELETE_AUTH_OPTIONAL, c.DeleteAuth)
}

func TestLoadRetireNone(t *testing.T) {
	t.Setenv(ENV_KEY_RETIRE_PARTITIONS, "none")

	c, err := Load()
	require.NoError(t, err)
	assert.Empty(t, c.RetirePartitions)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver":       {ENV_KEY_STORAGE_DRIVER: "ftp"},
		"minio without host":   {ENV_KEY_STORAGE_DRIVER: STORAGE_DRIVER_MINIO, ENV_KEY_MINIO_BUCKET: "b"},
		"s3 without bucket":    {ENV_KEY_STORAGE_DRIVER: STORAGE_DRIVER_S3},
		"quality out of range": {ENV_KEY_IMAGE_QUALITY: "101"},
		"bad extension":        {ENV_KEY_ALLOWED_EXTENSIONS: "png"},
		"unknown retire kind":  {ENV_KEY_RETIRE_PARTITIONS: "admin"},
		"bad delete auth":      {ENV_KEY_DELETE_AUTH: "never"},
		"bad size":             {ENV_KEY_MAX_UPLOAD_BYTES: "five"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
