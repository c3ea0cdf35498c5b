// Command tsc-migrate applies the schema migrations and optionally installs
// the seed dataset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/tiger/traffic-signal-controller/internal/seed"
	"github.com/tiger/traffic-signal-controller/internal/store"
	"github.com/tiger/traffic-signal-controller/migrations"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tsc-migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("tsc-migrate", flag.ContinueOnError)
	withSeed := flags.Bool("seed", false, "install the demonstration dataset after migrating")
	if err := flags.Parse(args); err != nil {
		return err
	}

	databaseURL := os.Getenv("TSC_DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("TSC_DATABASE_URL is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if *withSeed {
		if err := seed.Apply(ctx, store.New(db)); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
