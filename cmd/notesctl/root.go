package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/notekeeper/internal/config"
	sqliteRepo "github.com/sakif/notekeeper/internal/repository/sqlite"
)

// app is the state shared by all subcommands for one invocation.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "notesctl",
		Short: "Inspect and restore archived notekeeper accounts",
		Long: `notesctl works directly on the notekeeper database.
Deleted accounts are kept as archive records; this tool lists them and
restores them through the same rules as the public restore endpoint, but
matching on name as well as email.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a TOML config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config and DB_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newRestoreCmd(a), newArchivesCmd(a))
	return root
}

func (a *app) open() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	if a.verbose {
		level = slog.LevelDebug
	} else if level < slog.LevelWarn {
		// Keep service chatter off the terminal unless asked for.
		level = slog.LevelWarn
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	a.cfg, a.db = cfg, db
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
