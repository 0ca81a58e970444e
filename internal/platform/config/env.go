package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvironmentVar selects the deployment environment. Dotenv files are only
// read outside production.
const EnvironmentVar = "ATTENDANCE_ENV"

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from the given dotenv files into the process
// environment without overriding values that are already set. Missing files
// are ignored. It is a no-op when ATTENDANCE_ENV is "production".
func LoadDotEnv(paths ...string) error {
	if strings.EqualFold(strings.TrimSpace(os.Getenv(EnvironmentVar)), "production") {
		return nil
	}
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load dotenv %s: %w", path, err)
		}
	}
	return nil
}
