// Root command for the salesdb CLI.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/maruel/salesdb/internal/storage"
	"github.com/maruel/salesdb/internal/storage/git"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Commits of the data file are signed with this identity.
const (
	historyName  = "salesdb"
	historyEmail = "salesdb@localhost"
)

// skipConfigAnnotation marks commands that run without reading the config
// file.
const skipConfigAnnotation = "skip-config"

// app carries the state shared by the subcommands.
type app struct {
	v          *viper.Viper
	ll         *slog.LevelVar
	configFile string
	format     string
	cfg        settings
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper(), ll: &slog.LevelVar{}}
	root := &cobra.Command{
		Use:   "salesdb",
		Short: "CSV backed sales record store",
		Long: `salesdb stores sales records in a single CSV file and offers cleaning
(deduplication, missing value fill, type coercion) and analysis (summary,
sales per product line, sales over time) from the command line or over HTTP.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.preRun,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: ./salesdb.yaml when present)")
	pf.String("data-file", "", "CSV data file (default ./data/sales.csv)")
	pf.String("log-level", "", "log level: debug, info, warn, error (default info)")
	pf.Bool("git-history", false, "commit the data file to a git repository in its directory after every change")
	pf.StringVar(&a.format, "format", formatJSON, "output format: json or yaml")
	bindFlags(a.v, pf, map[string]string{
		"data-file":   cfgKeyDataFile,
		"log-level":   cfgKeyLogLevel,
		"git-history": cfgKeyGitHistory,
	})

	root.AddCommand(
		a.serveCmd(),
		a.analyzeCmd(),
		a.rowsCmd(),
		a.cleanCmd(),
		a.chartCmd(),
		a.schemaCmd(),
		a.tokenCmd(),
		a.historyCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	if a.format != formatJSON && a.format != formatYAML {
		return fmt.Errorf("unknown format %q, want %s or %s", a.format, formatJSON, formatYAML)
	}
	if cmd.Annotations[skipConfigAnnotation] == "" {
		if err := readConfig(a.v, a.configFile); err != nil {
			return err
		}
	}
	a.cfg = loadSettings(a.v)
	if err := setLevel(a.ll, a.cfg.LogLevel); err != nil {
		return err
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), a.ll))
	return nil
}

// openService opens the data file, wiring git history when enabled.
func (a *app) openService(ctx context.Context) (*storage.RecordService, error) {
	var opts []storage.Option
	if a.cfg.GitHistory {
		repo, err := a.openHistory(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithHistory(repo))
	}
	svc, err := storage.NewRecordService(a.cfg.DataFile, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	return svc, nil
}

// openHistory opens the repository holding the data file.
func (a *app) openHistory(ctx context.Context) (*git.Repo, error) {
	abs, err := filepath.Abs(a.cfg.DataFile)
	if err != nil {
		return nil, err
	}
	repo, err := git.Open(ctx, filepath.Dir(abs), historyName, historyEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return repo, nil
}

// print writes v in the selected format.
func (a *app) print(cmd *cobra.Command, v any) error {
	return printResult(cmd.OutOrStdout(), a.format, v)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, goVersion, revision, dirty := getBuildInfo()
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "salesdb %s\n", version)
			_, _ = fmt.Fprintf(w, "  Go version: %s\n", goVersion)
			_, _ = fmt.Fprintf(w, "  Revision:   %s\n", revision)
			if dirty {
				_, _ = fmt.Fprintf(w, "  Modified:   true\n")
			}
			return nil
		},
	}
}
