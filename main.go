package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sadopc/somnus/internal/config"
	"github.com/sadopc/somnus/internal/logs"
	"github.com/sadopc/somnus/internal/sleep"
	"github.com/sadopc/somnus/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// flags holds the persistent flags shared by every command. Empty values
// leave the loaded config untouched.
type flags struct {
	configPath string
	dbPath     string
	logFile    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "somnus",
		Short:         "Sleep session tracker and analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTUI(f)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/somnus/config.yaml)")
	root.PersistentFlags().StringVar(&f.dbPath, "db", "", "database path")
	root.PersistentFlags().StringVar(&f.logFile, "log-file", "", `log file ("-" for stderr)`)
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error")

	root.AddCommand(newTUICmd(f))
	root.AddCommand(newStartCmd(f))
	root.AddCommand(newEndCmd(f))
	root.AddCommand(newStatusCmd(f))
	root.AddCommand(newReportCmd(f))
	root.AddCommand(newExportCmd(f))
	root.AddCommand(newServeCmd(f))
	return root
}

// app is everything a command needs, opened from config.
type app struct {
	cfg    config.Config
	log    *logs.Logger
	store  *store.Store
	engine *sleep.Engine
}

func (f *flags) load() (config.Config, error) {
	path := f.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}
	return config.LoadWith(path, config.Config{
		DBPath:   f.dbPath,
		LogFile:  f.logFile,
		LogLevel: f.logLevel,
	})
}

// openApp loads config and opens the logger, store and engine. With
// memFallback a database that cannot be opened is replaced by an in-memory
// store and the engine runs degraded; otherwise the error is returned.
func openApp(f *flags, memFallback bool) (*app, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}

	l, err := logs.New(logs.Options{File: cfg.LogFile, Level: cfg.LogLevel, Journal: true})
	if err != nil {
		return nil, err
	}

	var engineStore sleep.Store
	s, err := store.New(cfg.DBPath)
	switch {
	case err == nil:
		engineStore = s
	case memFallback:
		l.Error("database unavailable, running in memory", "path", cfg.DBPath, "error", err)
		mem, merr := store.NewMemory()
		if merr != nil {
			l.Close()
			return nil, fmt.Errorf("open database: %w", errors.Join(err, merr))
		}
		s = mem
		engineStore = sleep.Unavailable(fmt.Errorf("open database: %w", err))
	default:
		l.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	e := sleep.New(engineStore, sleep.WithLogger(l.With("component", "engine")))
	if err := e.Degraded(); err != nil {
		l.Warn("running without persistence", "error", err)
	}
	return &app{cfg: cfg, log: l, store: s, engine: e}, nil
}

// checkSaved returns the engine's store failure, if any, so a one-shot
// command that changed state exits non-zero.
func (a *app) checkSaved() error {
	if err := a.engine.Degraded(); err != nil {
		return fmt.Errorf("%w (the change only lasted for this run)", err)
	}
	return nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if cerr := a.log.Close(); err == nil {
		err = cerr
	}
	return err
}
