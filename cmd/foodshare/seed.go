package main

import (
	"context"
	"fmt"
	"os"

	"foodshare/internal/seed"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Create sample foods through the food API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "email",
			Usage:    "Account the sample foods are donated by",
			EnvVars:  []string{"SEED_EMAIL"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "password",
			EnvVars:  []string{"SEED_PASSWORD"},
			Required: true,
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of foods to create",
			Value:   12,
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Delete foods from earlier seed runs first",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.APIBaseURL == "" {
			return fmt.Errorf("set API_BASE_URL")
		}
		if err := validateAuthConfig(cfg); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		d := &deps{config: cfg, logger: logrus.StandardLogger()}

		client, err := d.foodClient(nil)
		if err != nil {
			return err
		}

		provider, err := d.provider(ctx)
		if err != nil {
			return err
		}

		sess, err := provider.SignInEmail(ctx, c.String("email"), c.String("password"))
		if err != nil {
			return fmt.Errorf("failed to sign in seed account: %w", err)
		}

		logrus.WithField("email", sess.User.Email).Info("Signed in seed account")

		return seed.SeedFoods(ctx, client, sess, seed.Options{
			Count: c.Int("count"),
			Reset: c.Bool("reset"),
			Out:   os.Stdout,
		})
	},
}
