package main

import (
	"context"
	"log"
	"os"

	"github.com/rxtech-lab/argo-sizing/internal/version"
	"github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the bot configuration `FILE`",
		Required: true,
	}

	return &cli.Command{
		Name:    "sizer",
		Usage:   "Run and inspect position-sizing strategies",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "replay",
				Usage: "Replay a price series against the configured strategy",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Price series `FILE` (.csv or .parquet)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "journal",
						Aliases: []string{"j"},
						Usage:   "Directory receiving the fills journal and the summary. Overrides journal_dir",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Hide the progress bar",
					},
				},
				Action: replayAction,
			},
			{
				Name:   "inspect",
				Usage:  "Print the stored strategy state",
				Flags:  []cli.Flag{configFlag},
				Action: inspectAction,
			},
			{
				Name:  "schema",
				Usage: "Print the configuration JSON schema",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Print only the settings schema of strategy `ID`",
					},
				},
				Action: schemaAction,
			},
			{
				Name:  "serve",
				Usage: "Serve the dashboard over the stored strategy state",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Listen `ADDRESS`",
						Value:   ":8080",
					},
				},
				Action: serveAction,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
