package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"talkatv/internal/config"
	"talkatv/internal/logging"
	"talkatv/internal/views"
)

// loadConfig reads the --config file and layers the given flag overrides on
// top. Only flags the user actually set are applied.
func loadConfig(c *cli.Context, flagKeys map[string]string) (config.Config, error) {
	overrides := map[string]interface{}{}
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}

	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg config.Config) (zerolog.Logger, error) {
	logger, err := logging.New(c.App.ErrWriter, cfg.Log)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, nil
}

func ordering(cfg config.Config) views.Ordering {
	if cfg.Reversed() {
		return views.OrderReverse
	}
	return views.OrderForward
}
