package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/internal/migration"
)

// =============================================================================
// Database Migration Commands
// =============================================================================

// migrateAction 在已打开的迁移器上执行一个子命令
type migrateAction func(ctx context.Context, cli *migration.CLI, args []string) error

var migrateActions = map[string]migrateAction{
	"up": func(ctx context.Context, cli *migration.CLI, _ []string) error {
		return cli.RunUp(ctx)
	},
	"down": func(ctx context.Context, cli *migration.CLI, _ []string) error {
		return cli.RunSteps(ctx, -1)
	},
	"reset": func(ctx context.Context, cli *migration.CLI, _ []string) error {
		return cli.RunDownAll(ctx)
	},
	"status": func(ctx context.Context, cli *migration.CLI, _ []string) error {
		return cli.RunStatus(ctx)
	},
	"version": func(ctx context.Context, cli *migration.CLI, _ []string) error {
		return cli.RunVersion(ctx)
	},
	"goto": func(ctx context.Context, cli *migration.CLI, args []string) error {
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		return cli.RunGoto(ctx, uint(v))
	},
	"force": func(ctx context.Context, cli *migration.CLI, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf("usage: researchflow migrate force <version>")
		}
		v, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number: %s", args[0])
		}
		return cli.RunForce(ctx, int(v))
	},
}

// positional 子命令在 flag 之前接受一个版本号
var positional = map[string]bool{"goto": true, "force": true}

// runMigrate handles the migrate command and its subcommands
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	sub := args[0]
	if sub == "help" || sub == "-h" || sub == "--help" {
		printMigrateUsage()
		return
	}
	action, ok := migrateActions[sub]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", sub)
		printMigrateUsage()
		os.Exit(1)
	}

	rest := args[1:]
	var pos []string
	if positional[sub] && len(rest) > 0 {
		pos, rest = rest[:1], rest[1:]
	}

	fs := flag.NewFlagSet("migrate "+sub, flag.ExitOnError)
	migrator, logger, err := createMigrator(fs, rest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	err = action(context.Background(), migration.NewCLI(migrator), pos)
	if closeErr := migrator.Close(); closeErr != nil {
		logger.Warn("failed to close migrator", zap.Error(closeErr))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", sub, err)
		os.Exit(1)
	}
}

// createMigrator creates a migrator from --db-type/--db-url or the config file
func createMigrator(fs *flag.FlagSet, args []string) (*migration.DefaultMigrator, *zap.Logger, error) {
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if *dbType != "" && *dbURL != "" {
		logger, _ := zap.NewProduction()
		m, err := migration.NewMigratorFromURL(*dbType, *dbURL, logger)
		return m, logger, err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return nil, nil, err
	}
	if *dbType != "" {
		cfg.Database.Driver = *dbType
	}
	logger := initLogger(cfg.Log)
	m, err := migration.NewMigratorFromDatabaseConfig(cfg.Database, logger)
	return m, logger, err
}

func versionArg(args []string) (uint64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("usage: researchflow migrate goto <version>")
	}
	v, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid version number: %s", args[0])
	}
	return v, nil
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage() {
	fmt.Println(`Database Migration Commands

Usage:
  researchflow migrate <subcommand> [options]

Subcommands:
  up            Apply all pending migrations
  down          Rollback the last migration
  status        Show migration status
  version       Show current migration version
  goto <v>      Migrate to a specific version
  force <v>     Force set migration version (use with caution)
  reset         Rollback all migrations
  help          Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  researchflow migrate up
  researchflow migrate up --db-type sqlite --db-url ./researchflow.db
  researchflow migrate status --config /etc/researchflow/config.yaml
  researchflow migrate goto 1
  researchflow migrate force 0`)
}
