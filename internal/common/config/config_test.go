package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "ENV", "STUDY_DATA_DIR", "STUDY_DB_PATH", "STUDY_RELAY_URL", "STUDY_CHARTS_PER_CATEGORY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "data/db/study.db", cfg.DBPath)
	assert.Equal(t, "", cfg.RelayURL)
	assert.Equal(t, "8_chart_hhlc_experiment", cfg.StudyType)
	assert.Equal(t, 2, cfg.ChartsPerCategory)
	assert.Equal(t, "study_session", cfg.SessionCookie)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8080")
	t.Setenv("STUDY_CHARTS_PER_CATEGORY", "3")
	t.Setenv("READ_TIMEOUT", "not-a-number")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.ChartsPerCategory)
	assert.Equal(t, 10, cfg.ReadTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("STUDY_RELAY_URL=https://forms.example.test/f/abc\nSTUDY_DATA_DIR=/srv/study\n"), 0o644))

	// registered so the values godotenv sets are restored afterwards
	t.Setenv("STUDY_RELAY_URL", "")
	t.Setenv("STUDY_DATA_DIR", "/from/env")
	os.Unsetenv("STUDY_RELAY_URL")

	cfg := Load()
	assert.Equal(t, "https://forms.example.test/f/abc", cfg.RelayURL)
	// the process environment wins over .env
	assert.Equal(t, "/from/env", cfg.DataDir)
}

func TestCORSOrigins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STUDY_CORS_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, Load().CORSOrigins)

	t.Setenv("STUDY_CORS_ORIGINS", "")
	assert.Empty(t, Load().CORSOrigins)
}
