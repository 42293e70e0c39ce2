package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"talkatv/internal/config"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a sample configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "talkatv.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "check",
				Usage:  "Load and validate the configuration",
				Action: runConfigCheck,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitFile(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigCheck(c *cli.Context) error {
	cfg, err := loadConfig(c, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Configuration is valid: home=%s api_path=%s order=%s request_timeout=%s\n",
		cfg.Home, cfg.APIPath, cfg.Order, cfg.RequestTimeout)
	return nil
}
