package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fixtrack/internal/client/records"
	"fixtrack/internal/timeutil"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Financial summary of the shop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx); err != nil {
				return err
			}
			s, err := a.client.Summary(ctx)
			if err != nil {
				return a.apiErr(ctx, err, "could not load summary")
			}
			printSummary(a.out, s)
			return nil
		},
	}
}

func newAnalysisCmd(a *app) *cobra.Command {
	var from, to, quick string

	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Service analysis over a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx); err != nil {
				return err
			}
			if quick != "" {
				start, end, ok, err := records.Bounds(quick, timeutil.Now())
				if err != nil {
					return err
				}
				if ok {
					from, to = start, end
				}
			}
			for _, d := range []string{from, to} {
				if d == "" {
					continue
				}
				if _, err := timeutil.ParseDate(d); err != nil {
					return fmt.Errorf("date %q must be YYYY-MM-DD", d)
				}
			}

			res, err := a.client.Analysis(ctx, from, to)
			if err != nil {
				return a.apiErr(ctx, err, "could not load analysis")
			}
			printAnalysis(a.out, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&quick, "range", "", "quick range instead of --from/--to")
	return cmd
}
