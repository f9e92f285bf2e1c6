package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrations only concern the postgres record store backend: every
// collection is one row of record_collections.
func main() {
	var (
		migrationDir string
		databaseURL  string
		all          bool
	)
	flag.StringVar(&migrationDir, "path", "migrations", "Path to migration files")
	flag.StringVar(&databaseURL, "database", "", "Database URL (defaults to DATABASE_URL)")
	flag.BoolVar(&all, "all", false, "With down: roll back every migration")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if databaseURL == "" {
		databaseURL = cfg.DatabaseURL
	}
	if databaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}
	if cfg.StoreDriver != "postgres" {
		log.Warn().Str("store", cfg.StoreDriver).Msg("STORE_DRIVER is not postgres, the server will not use this schema")
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return
	}

	m, err := migrate.New("file://"+migrationDir, databaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed to initialize")
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if n, ok := steps(args); ok {
			err = m.Steps(n)
		} else {
			err = m.Up()
		}
	case "down":
		// Rolling back drops every stored collection, so it must be explicit.
		switch n, ok := steps(args); {
		case ok:
			err = m.Steps(-n)
		case all:
			err = m.Down()
		default:
			log.Fatal().Msg("down needs a step count or -all")
		}
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied")
			return
		}
		if verr != nil {
			log.Fatal().Err(verr).Msg("Version failed")
		}
		fmt.Printf("Version: %d, Dirty: %t\n", version, dirty)
		return
	case "force":
		n, ok := steps(args)
		if !ok {
			log.Fatal().Msg("force requires a version argument")
		}
		err = m.Force(n)
	default:
		printUsage()
		return
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Str("command", args[0]).Msg("Migration failed")
	}
	log.Info().Str("command", args[0]).Bool("changed", err == nil).Msg("Migration complete")
}

// steps parses the optional numeric argument after the command.
func steps(args []string) (int, bool) {
	if len(args) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func printUsage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println("Commands: up [N], down N, version, force <version> (use -all down to roll back everything)")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
