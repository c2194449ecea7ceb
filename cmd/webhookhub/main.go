package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/webhookhub/webhookhub/internal/app"
	"github.com/webhookhub/webhookhub/internal/config"
	"github.com/webhookhub/webhookhub/internal/migrator"
	"github.com/webhookhub/webhookhub/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:    "webhookhub",
		Usage:   "WebhookHub - webhook relay",
		Version: version.Version(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("CONFIG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return cli.ShowAppHelp(c)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the WebhookHub server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "service",
				Aliases: []string{"s"},
				Usage:   "Service role to run: 'api', 'delivery', or empty for all",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Parse(config.Flags{
				Config:  c.String("config"),
				Service: c.String("service"),
			})
			if err != nil {
				return err
			}
			return app.New(cfg).Run(ctx)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage database schema migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL URL with credentials (bypasses config parsing)",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withMigrator(c, func(m *migrator.Migrator) error {
						version, applied, err := m.Up(ctx, -1)
						if err != nil {
							return err
						}
						if applied > 0 {
							fmt.Printf("applied %d migration(s), now at version %d\n", applied, version)
						} else {
							fmt.Printf("up to date at version %d\n", version)
						}
						return nil
					})
				},
			},
			{
				Name:  "down",
				Usage: "Roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of migrations to roll back",
						Value: 1,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withMigrator(c, func(m *migrator.Migrator) error {
						version, rolledBack, err := m.Down(ctx, int(c.Int("steps")))
						if err != nil {
							return err
						}
						fmt.Printf("rolled back %d migration(s), now at version %d\n", rolledBack, version)
						return nil
					})
				},
			},
			{
				Name:  "version",
				Usage: "Print the current schema version",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withMigrator(c, func(m *migrator.Migrator) error {
						version, err := m.Version(ctx)
						if err != nil {
							return err
						}
						fmt.Printf("version %d\n", version)
						return nil
					})
				},
			},
		},
	}
}

func withMigrator(c *cli.Command, fn func(m *migrator.Migrator) error) error {
	opts, err := migratorOpts(c)
	if err != nil {
		return err
	}
	m, err := migrator.New(opts)
	if err != nil {
		return err
	}
	defer m.Close(context.Background())
	return fn(m)
}

func migratorOpts(c *cli.Command) (migrator.Opts, error) {
	if dbURL := c.String("database-url"); dbURL != "" {
		return migrator.Opts{DatabaseURL: dbURL}, nil
	}
	cfg, err := config.Parse(config.Flags{Config: c.String("config")})
	if err != nil {
		return migrator.Opts{}, err
	}
	return migrator.Opts{DatabaseURL: cfg.Postgres.ConnString()}, nil
}
