package env

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const DefaultEnvFile = ".env"

// InitConfig fills config from the process environment. Variables from the
// given dotenv files (DefaultEnvFile when none are passed) are loaded first
// and never override variables that are already set.
func InitConfig(config any, files ...string) error {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		// nolint:errcheck // dotenv files are optional
		_ = godotenv.Load(f)
	}

	if err := envconfig.Process("", config); err != nil {
		return errors.Wrap(err, "failed to envconfig.Process")
	}

	return nil
}

// MustInitConfig is InitConfig for main packages.
func MustInitConfig(config any, files ...string) {
	if err := InitConfig(config, files...); err != nil {
		panic(err)
	}
}
