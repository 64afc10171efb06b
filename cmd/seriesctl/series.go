package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"kitanda/internal/bootstrap"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/series"
)

// seriesRef identifies a series and a counter by operator-facing names.
type seriesRef struct {
	code    string
	year    int
	docType string
}

func (r *seriesRef) bind(cmd *cobra.Command, withType bool) {
	cmd.Flags().StringVar(&r.code, "series", "", "series code")
	cmd.Flags().IntVar(&r.year, "year", time.Now().Year(), "fiscal year")
	_ = cmd.MarkFlagRequired("series")
	if withType {
		cmd.Flags().StringVar(&r.docType, "type", "", "document type (FT, FR, NC, RC...)")
		_ = cmd.MarkFlagRequired("type")
	}
}

func (r *seriesRef) resolve(ctx context.Context, d *bootstrap.Deps) (*series.Series, error) {
	r.docType = strings.ToUpper(strings.TrimSpace(r.docType))
	return d.Series.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(r.code)), r.year)
}

func newSeriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Manage numbering series",
	}
	cmd.AddCommand(
		newSeriesCreateCmd(a),
		newSeriesListCmd(a),
		newSeriesSetNextCmd(a),
		newSeriesAllocateCmd(a),
		newSeriesVerifyCmd(a),
	)
	return cmd
}

func newSeriesCreateCmd(a *app) *cobra.Command {
	var (
		name     string
		year     int
		manual   bool
		padWidth int
	)
	cmd := &cobra.Command{
		Use:     "create CODE",
		Short:   "Create a numbering series",
		Example: `  seriesctl series create A --name "Main shop" --year 2026 --pad-width 4`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDeps(cmd.Context(), func(d *bootstrap.Deps) error {
				s := series.NewSeries(args[0], name, year)
				s.Manual = manual
				s.PadWidth = padWidth
				if s.Name == "" {
					s.Name = s.Code
				}
				if err := d.Series.Create(cmd.Context(), s); err != nil {
					return err
				}
				a.printf("created series %s/%d (%s)\n", s.Code, s.Year, s.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the code)")
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "fiscal year")
	cmd.Flags().BoolVar(&manual, "manual", false, "numbers are entered by hand")
	cmd.Flags().IntVar(&padWidth, "pad-width", 0, "zero-pad sequences to this width")
	return cmd
}

func newSeriesListCmd(a *app) *cobra.Command {
	var (
		year       int
		activeOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDeps(cmd.Context(), func(d *bootstrap.Deps) error {
				list, err := d.Series.List(cmd.Context(), series.ListFilter{Year: year, ActiveOnly: activeOnly})
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "CODE\tYEAR\tACTIVE\tMANUAL\tNAME\n")
				for _, s := range list {
					fmt.Fprintf(w, "%s\t%d\t%t\t%t\t%s\n", s.Code, s.Year, s.IsActive, s.Manual, s.Name)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "only this fiscal year")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active series")
	return cmd
}

func newSeriesSetNextCmd(a *app) *cobra.Command {
	var (
		ref   seriesRef
		value int64
	)
	cmd := &cobra.Command{
		Use:     "set-next",
		Short:   "Move a counter so the next number is --value",
		Example: `  seriesctl series set-next --series A --type FT --value 120`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDeps(cmd.Context(), func(d *bootstrap.Deps) error {
				s, err := ref.resolve(cmd.Context(), d)
				if err != nil {
					return err
				}
				next, err := d.Allocator.SetNext(cmd.Context(), s.ID, ref.docType, ref.year, value)
				if err != nil {
					return err
				}
				a.printf("%s %s/%d next number %d\n", ref.docType, s.Code, ref.year, next)
				return nil
			})
		},
	}
	ref.bind(cmd, true)
	cmd.Flags().Int64Var(&value, "value", 1, "next sequence value")
	return cmd
}

func newSeriesAllocateCmd(a *app) *cobra.Command {
	var (
		ref    seriesRef
		manual int64
	)
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Reserve the next number of a counter",
		Long: `allocate reserves a number outside the document workflow, for example
to account for a paper document. With --manual the number is recorded on a
manual series instead of drawn from the counter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDeps(cmd.Context(), func(d *bootstrap.Deps) error {
				s, err := ref.resolve(cmd.Context(), d)
				if err != nil {
					return err
				}
				var alloc series.Allocation
				if manual > 0 {
					alloc, err = d.Allocator.RecordManual(cmd.Context(), s.ID, ref.docType, ref.year, manual)
				} else {
					alloc, err = d.Allocator.Allocate(cmd.Context(), s.ID, ref.docType, ref.year)
				}
				if err != nil {
					return err
				}
				a.printf("%s\n", alloc.Formatted)
				return nil
			})
		},
	}
	ref.bind(cmd, true)
	cmd.Flags().Int64Var(&manual, "manual", 0, "record this number on a manual series")
	return cmd
}

func newSeriesVerifyCmd(a *app) *cobra.Command {
	var ref seriesRef
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute the certification hash chain of a document type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDeps(cmd.Context(), func(d *bootstrap.Deps) error {
				s, err := ref.resolve(cmd.Context(), d)
				if err != nil {
					return err
				}
				checked, err := d.Documents.VerifyChain(cmd.Context(), s.ID, documents.DocType(ref.docType))
				if err != nil {
					return err
				}
				a.printf("%s %s chain ok (%d documents)\n", ref.docType, s.Code, checked)
				return nil
			})
		},
	}
	ref.bind(cmd, true)
	return cmd
}
