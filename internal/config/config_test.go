package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/esimov/qrstyle/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		AssetRootKey, HTTPTimeoutKey, MaxAssetBytesKey, CacheSizeKey,
		WorkersKey, BestEffortLogoKey, JPEGQualityKey, LogEnvKey, LogLevelKey,
	} {
		t.Setenv(key, "")
	}
}

func TestConfig_Defaults(t *testing.T) {
	assert := assert.New(t)
	clearEnv(t)

	cfg, err := Load(zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Empty(cfg.AssetRoot)
	assert.Equal(10*time.Second, cfg.HTTPTimeout)
	assert.Equal(int64(asset.DefaultMaxBytes), cfg.MaxAssetBytes)
	assert.Equal(asset.DefaultCacheSize, cfg.CacheSize)
	assert.Equal(runtime.NumCPU(), cfg.Workers)
	assert.False(cfg.BestEffortLogo)
	assert.Equal(100, cfg.JPEGQuality)
}

func TestConfig_FromEnv(t *testing.T) {
	assert := assert.New(t)
	clearEnv(t)

	root := t.TempDir()
	t.Setenv(AssetRootKey, root)
	t.Setenv(HTTPTimeoutKey, "3s")
	t.Setenv(MaxAssetBytesKey, "1024")
	t.Setenv(CacheSizeKey, "8")
	t.Setenv(WorkersKey, "4")
	t.Setenv(BestEffortLogoKey, "yes")
	t.Setenv(JPEGQualityKey, "85")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(root, cfg.AssetRoot)
	assert.Equal(3*time.Second, cfg.HTTPTimeout)
	assert.Equal(int64(1024), cfg.MaxAssetBytes)
	assert.Equal(8, cfg.CacheSize)
	assert.Equal(4, cfg.Workers)
	assert.True(cfg.BestEffortLogo)
	assert.Equal(85, cfg.JPEGQuality)
}

func TestConfig_MalformedValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(HTTPTimeoutKey, "soon")
	t.Setenv(WorkersKey, "many")

	cfg, err := Load(zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
}

func TestConfig_Invalid(t *testing.T) {
	testCases := map[string][2]string{
		"missing root":   {AssetRootKey, filepath.Join(t.TempDir(), "missing")},
		"negative bytes": {MaxAssetBytesKey, "-1"},
		"zero cache":     {CacheSizeKey, "0"},
		"jpeg quality":   {JPEGQualityKey, "101"},
	}
	for name, kv := range testCases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}

func TestConfig_LoadEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(CacheSizeKey)
	t.Setenv(WorkersKey, "2")

	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("QRSTYLE_CACHE_SIZE=5\nQRSTYLE_WORKERS=9\n"), 0644))
	require.NoError(t, LoadEnv(file))
	t.Cleanup(func() { os.Unsetenv(CacheSizeKey) })

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.CacheSize)
	// Variables already in the environment win over the file.
	assert.Equal(t, 2, cfg.Workers)

	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestConfig_Store(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	t.Setenv(AssetRootKey, root)
	t.Setenv(MaxAssetBytesKey, "16")

	cfg, err := Load(nil)
	require.NoError(t, err)

	// A valid PNG header padded beyond the size limit.
	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.png"), data, 0644))

	store := cfg.Store()
	_, err = store.Fetch(context.Background(), "big.png")
	assert.ErrorIs(t, err, asset.ErrTooLarge)

	_, err = store.Fetch(context.Background(), "../outside.png")
	assert.ErrorIs(t, err, asset.ErrNotFound)
}
