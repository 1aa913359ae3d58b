package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "foodshare",
		Usage: "Server-side rendered front end for the food sharing API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Dotenv file loaded before reading the environment",
				Value:   ".env",
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			seedCommand,
			foodsCommand,
			keysCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
