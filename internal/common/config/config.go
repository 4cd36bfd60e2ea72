package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int

	DataDir           string
	DBPath            string
	RelayURL          string
	StudyType         string
	ChartsPerCategory int
	SessionCookie     string
	CORSOrigins       []string
}

// Load reads the configuration from the environment. Values from a .env
// file in the working directory fill in variables that are not set.
func Load() *Config {
	loadDotEnv(".env")

	return &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),

		DataDir:           getEnv("STUDY_DATA_DIR", "data"),
		DBPath:            getEnv("STUDY_DB_PATH", "data/db/study.db"),
		RelayURL:          getEnv("STUDY_RELAY_URL", ""),
		StudyType:         getEnv("STUDY_TYPE", "8_chart_hhlc_experiment"),
		ChartsPerCategory: getEnvAsInt("STUDY_CHARTS_PER_CATEGORY", 2),
		SessionCookie:     getEnv("STUDY_SESSION_COOKIE", "study_session"),
		CORSOrigins:       getEnvAsList("STUDY_CORS_ORIGINS"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[CONFIG] Ignoring %s: %v", path, err)
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
