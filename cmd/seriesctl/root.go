package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kitanda/internal/bootstrap"
	"kitanda/internal/config"
	"kitanda/pkg/logger"
)

var version = "dev"

// app carries what every command needs. Tests replace open.
type app struct {
	out       io.Writer
	configDir string
	cfg       *config.Config
	open      func(ctx context.Context, cfg *config.Config) (*bootstrap.Deps, error)
}

func newApp(out io.Writer) *app {
	return &app{
		out: out,
		open: func(ctx context.Context, cfg *config.Config) (*bootstrap.Deps, error) {
			return bootstrap.Open(ctx, cfg, nil)
		},
	}
}

// config loads configuration once per process.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	var paths []string
	if a.configDir != "" {
		paths = append(paths, a.configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// withDeps wires the services for the duration of fn.
func (a *app) withDeps(ctx context.Context, fn func(d *bootstrap.Deps) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	d, err := a.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "seriesctl",
		Short: "Administer kitanda numbering series",
		Long: `seriesctl manages the fiscal numbering series and the database schema
of a kitanda installation. It reads the same kitanda.yml and KITANDA_*
environment variables as the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			log, err := logger.New(logger.Config{Level: level, Development: true})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger.SetDefault(log)
			return nil
		},
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "directory holding kitanda.yml")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(newMigrateCmd(a), newSeriesCmd(a), newTokenCmd(a))
	return root
}
