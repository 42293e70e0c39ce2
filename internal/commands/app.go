package commands

import (
	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func NewApp() *cli.App {
	return &cli.App{
		Name:    "talkatv",
		Usage:   "Embeddable comments widget for the talkatv service",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"TALKATV_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			ServeCommand(),
			SnapshotCommand(),
			ConfigCommand(),
		},
	}
}
