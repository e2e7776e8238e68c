package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"civreg/internal/migration"
	"civreg/internal/platform/logger"
)

func main() {
	app := &cli.App{
		Name:  "civreg-migrate",
		Usage: "Apply or roll back reporting database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Usage:    "PostgreSQL database URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			slog.SetDefault(logger.New(logger.ParseLevel(c.String("log-level"))))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(c *cli.Context) error {
					pool, err := migration.Connect(c.Context, c.String("database-url"))
					if err != nil {
						return err
					}
					defer pool.Close()
					return migration.Up(c.Context, pool)
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the most recent migration",
				Action: func(c *cli.Context) error {
					pool, err := migration.Connect(c.Context, c.String("database-url"))
					if err != nil {
						return err
					}
					defer pool.Close()
					return migration.Down(c.Context, pool)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}
