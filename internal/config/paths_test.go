package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)
	require.NotNil(t, paths)

	assert.True(t, filepath.IsAbs(paths.ExecutableDir), "ExecutableDir should be absolute")
	assert.True(t, filepath.IsAbs(paths.DataDir), "DataDir should be absolute")
	assert.True(t, filepath.IsAbs(paths.LogsDir), "LogsDir should be absolute")

	assert.Equal(t, filepath.Join(paths.ExecutableDir, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(paths.DataDir, "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join(paths.DataDir, "cache"), paths.CacheDir)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "logs"), paths.LogsDir)
	assert.Equal(t, filepath.Join(paths.DataDir, "polls.csv"), paths.PollsCSV)
}

func TestPaths_ResolveDataFile(t *testing.T) {
	paths := &Paths{DataDir: "/opt/pollpulse/data"}

	assert.Equal(t, "/opt/pollpulse/data/polls.csv", paths.ResolveDataFile("polls.csv"))
	assert.Equal(t, "/tmp/override.csv", paths.ResolveDataFile("/tmp/override.csv"))
}

func TestPaths_Helpers(t *testing.T) {
	paths := &Paths{
		DataDir:    "/base/data",
		ReportsDir: "/base/data/reports",
		CacheDir:   "/base/data/cache",
		LogsDir:    "/base/logs",
	}

	assert.Equal(t, "/base/data/polls.xlsx", paths.GetDataPath("polls.xlsx"))
	assert.Equal(t, "/base/data/reports/trend.csv", paths.GetReportPath("trend.csv"))
	assert.Equal(t, "/base/data/cache/tmp.bin", paths.GetCachePath("tmp.bin"))
	assert.Equal(t, "/base/logs/app.log", paths.GetLogPath("app.log"))
}

func TestPaths_EnsureDirectories(t *testing.T) {
	base := t.TempDir()
	paths := &Paths{
		ExecutableDir: base,
		DataDir:       filepath.Join(base, "data"),
		ReportsDir:    filepath.Join(base, "data", "reports"),
		CacheDir:      filepath.Join(base, "data", "cache"),
		LogsDir:       filepath.Join(base, "logs"),
	}

	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.DataDir, paths.ReportsDir, paths.CacheDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, "directory %s must exist", dir)
		assert.True(t, info.IsDir())
	}
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.txt")
	assert.False(t, FileExists(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.True(t, FileExists(path))
}
