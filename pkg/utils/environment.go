package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadEnvFile loads a .env file from dir into the process environment.
// Variables already set in the environment win over the file.
func LoadEnvFile(dir string) {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		logrus.Warnf("[CONFIG] failed to load %s: %v", path, err)
	}
}
