package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/erp/production/internal/infrastructure/config"
	"github.com/erp/production/internal/infrastructure/logger"
	"github.com/erp/production/internal/infrastructure/migration"
	"github.com/erp/production/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// command is one migrate subcommand. Commands with a nil run work on files
// only and never open a database connection.
type command struct {
	usage   string
	minArgs int
	offline func(log *zap.Logger, dir string, args []string) error
	run     func(m *migration.Migrator, log *zap.Logger, args []string) error
}

var commands = map[string]command{
	"up": {
		usage: "up                    Apply all pending migrations",
		run:   func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Up() },
	},
	"down": {
		usage: "down                  Roll back all migrations",
		run:   func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Down() },
	},
	"step": {
		usage:   "step <n>              Apply n migrations (negative n rolls back)",
		minArgs: 1,
		run: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return m.Steps(n)
		},
	},
	"goto": {
		usage:   "goto <version>        Migrate up or down to a version",
		minArgs: 1,
		run: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.GoTo(uint(v))
		},
	},
	"version": {
		usage: "version               Show the applied version",
		run: func(m *migration.Migrator, log *zap.Logger, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			log.Info("Schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
			return nil
		},
	},
	"force": {
		usage:   "force <version>       Mark a version applied and clean after a failed run",
		minArgs: 1,
		run: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.Force(v)
		},
	},
	"create": {
		usage:   "create <name> [desc]  Write an empty up/down pair (needs -path)",
		minArgs: 1,
		offline: func(log *zap.Logger, dir string, args []string) error {
			if dir == "" {
				return fmt.Errorf("create needs -path pointing at the migrations directory")
			}
			desc := ""
			if len(args) > 1 {
				desc = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], desc)
			if err != nil {
				return err
			}
			log.Info("Migration created", zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
			return nil
		},
	},
	"list": {
		usage: "list                  List available migrations",
		offline: func(log *zap.Logger, dir string, _ []string) error {
			names, err := migration.ListMigrations(source(dir))
			if err != nil {
				return err
			}
			log.Info("Available migrations", zap.Int("count", len(names)))
			for _, name := range names {
				fmt.Println("  -", name)
			}
			return nil
		},
	},
}

var commandOrder = []string{"up", "down", "step", "goto", "version", "force", "create", "list"}

func main() {
	dir := flag.String("path", "", "Migrations directory (default: the migrations built into this binary)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	cmd, ok := commands[args[0]]
	if !ok || len(args)-1 < cmd.minArgs {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *dir != "" {
		if *dir, err = filepath.Abs(*dir); err != nil {
			log.Fatal("Failed to resolve migrations path", zap.Error(err))
		}
	}
	log = log.With(zap.String("command", args[0]), zap.String("source", sourceName(*dir)))

	if cmd.offline != nil {
		if err := cmd.offline(log, *dir, args[1:]); err != nil {
			log.Fatal("Migration command failed", zap.Error(err))
		}
		return
	}

	if err := runOnline(cmd, log, *dir, args[1:]); err != nil {
		log.Fatal("Migration command failed", zap.Error(err))
	}
}

func runOnline(cmd command, log *zap.Logger, dir string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("SQL migrations target postgres, got driver %q; sqlite schemas are created by the server", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.NewFromFS(db, source(dir), log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()
	return cmd.run(m, log, args)
}

func source(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func sourceName(dir string) string {
	if dir == "" {
		return "embedded"
	}
	return dir
}

func printUsage() {
	fmt.Println("Production ledger migration tool\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range commandOrder {
		fmt.Println("  " + commands[name].usage)
	}
	fmt.Println(`
Flags:
  -path string          Migrations directory (default: embedded migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Database settings come from config.toml or ERP_DATABASE_* variables.`)
}
