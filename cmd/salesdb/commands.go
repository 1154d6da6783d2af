// Data commands: inspection, cleaning, charts and tokens.

package main

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/maruel/salesdb/internal/csvdb"
	"github.com/maruel/salesdb/internal/server"
	"github.com/maruel/salesdb/internal/server/dto"
	"github.com/maruel/salesdb/internal/storage/git"
	"github.com/spf13/cobra"
)

func (a *app) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Print the row count, column types, missing counts and numeric statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
}

func (a *app) rowsCmd() *cobra.Command {
	var (
		limit     int
		position  string
		sortBy    string
		ascending bool
	)
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Print the first or last rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := dto.ListRowsRequest{Position: position, Limit: &limit, SortBy: sortBy, Ascending: &ascending}
			if err := req.Validate(); err != nil {
				return err
			}
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			asc := req.IsAscending()
			if req.Bottom() {
				asc = !asc
			}
			rows, err := svc.ListRows(cmd.Context(), req.RowLimit(), req.SortBy, asc)
			if err != nil {
				return err
			}
			if req.Bottom() {
				slices.Reverse(rows)
			}
			return a.print(cmd, rows)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", dto.DefaultRowLimit, "number of rows, 1 to 100")
	f.StringVar(&position, "position", "top", "top or bottom")
	f.StringVar(&sortBy, "sort-by", "", "column to sort on (default id)")
	f.BoolVar(&ascending, "ascending", true, "sort ascending")
	return cmd
}

func (a *app) cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the data file",
	}
	var dedupeColumns, dupColumns string
	dedupe := &cobra.Command{
		Use:   "dedupe",
		Short: "Remove rows repeating an earlier row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			req := dto.DropDuplicatesRequest{Columns: dedupeColumns}
			n, err := svc.DropDuplicates(cmd.Context(), req.Subset())
			if err != nil {
				return err
			}
			return a.print(cmd, dto.RemovedResponse{Removed: n})
		},
	}
	dedupe.Flags().StringVar(&dedupeColumns, "columns", "", "comma separated columns to compare (default all)")

	duplicates := &cobra.Command{
		Use:   "duplicates",
		Short: "Print every row of every duplicate group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			req := dto.DuplicatesRequest{Columns: dupColumns}
			rows, err := svc.FindDuplicates(cmd.Context(), req.Subset())
			if err != nil {
				return err
			}
			if rows == nil {
				rows = []csvdb.RenderedRow{}
			}
			return a.print(cmd, dto.DuplicatesResponse{Duplicates: rows})
		},
	}
	duplicates.Flags().StringVar(&dupColumns, "columns", "", "comma separated columns to compare (default all)")

	fill := &cobra.Command{
		Use:   "fill COLUMN VALUE",
		Short: "Fill the missing cells of a column",
		Long:  "Fill the missing cells of a column. VALUE is stored as an integer or a number when it parses as one.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			n, err := svc.FillMissing(cmd.Context(), args[0], parseValue(args[1]))
			if err != nil {
				return err
			}
			return a.print(cmd, dto.FilledResponse{Filled: n})
		},
	}

	coerce := &cobra.Command{
		Use:   "coerce COLUMN DTYPE",
		Short: "Convert a column to another type",
		Long: `Convert a column to another type.

Lenient types turn unconvertible cells into missing values: int, float,
datetime, date. Strict types fail without changing anything: int64, int32,
Int64, float64, float32, bool, boolean, str.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := svc.CoerceColumnType(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if err := a.print(cmd, dto.OKResponse{OK: ok}); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("cannot convert %s to %s", args[0], args[1])
			}
			return nil
		},
	}
	cmd.AddCommand(dedupe, duplicates, fill, coerce)
	return cmd
}

func (a *app) chartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Print chart series",
	}
	productLine := &cobra.Command{
		Use:   "productline",
		Short: "Total sales per product line, largest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svc.AggregateByProductLine(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, s)
		},
	}
	var freq, column string
	overTime := &cobra.Command{
		Use:   "time",
		Short: "Total sales per period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := csvdb.ParseFreq(freq)
			if err != nil {
				return err
			}
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svc.SalesOverTime(cmd.Context(), column, f)
			if err != nil {
				return err
			}
			return a.print(cmd, s)
		},
	}
	overTime.Flags().StringVar(&freq, "freq", "M", "period: D, W, M or Y")
	overTime.Flags().StringVar(&column, "column", "", "date column (default ORDERDATE)")
	cmd.AddCommand(productLine, overTime)
	return cmd
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a sales record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.print(cmd, dto.RecordSchema())
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	var ttl string
	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Mint a bearer token for mutating requests",
		Long:  "Mint an HS256 token signed with api_secret. Send it as \"Authorization: Bearer <token>\" or in the \"token\" cookie.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.APISecret == "" {
				return errors.New("api_secret is not set")
			}
			s := a.cfg
			if ttl != "" {
				s.TokenTTL = ttl
			}
			d, err := s.tokenTTL()
			if err != nil {
				return err
			}
			tok, err := server.NewToken([]byte(a.cfg.APISecret), args[0], d)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&ttl, "ttl", "", "validity (default token_ttl)")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent commits of the data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(a.cfg.DataFile)
			if err != nil {
				return err
			}
			commits, err := repo.History(cmd.Context(), abs, n)
			if err != nil {
				return err
			}
			if commits == nil {
				commits = []*git.Commit{}
			}
			return a.print(cmd, commits)
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 10, "number of commits")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a default salesdb.yaml",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.configFile
			if path == "" {
				path = configFileExt
			}
			if err := writeDefaultConfig(path, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

// parseValue reads a command line value as an integer, a number or text.
func parseValue(s string) csvdb.Value {
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return csvdb.Int(i)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return csvdb.Float(f)
	}
	return csvdb.String(s)
}
