package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
)

// envFiles are tried in order; variables already present in the process
// environment are never overridden.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles(dir string) error {
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "failed to load environment file").
				Fatal().
				WithContext("path", path).
				Build()
		}
		slog.Debug("Loaded environment variables", "path", path)
	}
	return nil
}
