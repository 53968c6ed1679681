package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadEnv loads environment variables from a .env file when one exists.
// Missing files are not an error; the environment simply wins.
func LoadEnv(log *logrus.Logger) {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Warn("Error loading .env file")
		return
	}
	log.Debug("Loaded environment variables from .env file")
}
