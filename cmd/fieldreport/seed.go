package main

import (
	"context"
	"fmt"

	"fieldreport/internal/db"
	"fieldreport/internal/seed"
	"fieldreport/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Create the administrator account",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "email",
			Usage:    "Admin email address",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "name",
			Usage:    "Admin display name",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "password",
			Usage:    "Admin password",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		adminRepo := store.NewAdminRepository(pool)

		if err := seed.SeedAdmin(ctx, adminRepo, c.String("email"), c.String("name"), c.String("password")); err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}

		logrus.WithField("email", c.String("email")).Info("Admin account created")

		return nil
	},
}
