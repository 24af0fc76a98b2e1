package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/stkpush-service/internal/adapters/postgres"
)

var (
	flags   = flag.NewFlagSet("migrate", flag.ExitOnError)
	dbURL   = flags.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	timeout = flags.Duration("timeout", 30*time.Second, "overall timeout")
)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		os.Exit(2)
	}
	if *dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL or -database-url is required")
		os.Exit(2)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, args[0], logger); err != nil {
		logger.Fatal("migrate failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(ctx context.Context, command string, logger *zap.Logger) error {
	db, err := postgres.Open(ctx, postgres.DefaultConfig(*dbURL), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.Info("Schema is up to date")
		return nil

	case "status":
		var count int64
		if err := db.Pool().QueryRow(ctx, `SELECT count(*) FROM payment_records`).Scan(&count); err != nil {
			return fmt.Errorf("schema not applied, run 'migrate up': %w", err)
		}
		logger.Info("Schema present", zap.Int64("payment_records", count))
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: migrate [flags] <command>

Commands:
  up       create the payment_records table and indexes if missing
  status   report whether the schema exists and how many records it holds

Flags:
`)
	flags.PrintDefaults()
}
