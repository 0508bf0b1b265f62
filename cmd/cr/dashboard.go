package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cutroom/internal/app"
	"cutroom/internal/domain"
	"cutroom/internal/stats"
)

func dashboardCmd() *cobra.Command {
	dash := &cobra.Command{Use: "dashboard", Short: "Production metrics"}
	dash.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Active, overdue, revision and turnaround figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				sum, err := c.Stats.Summary(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sum)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRows([]table.Row{
					{"Active projects", sum.ActiveProjects},
					{"Overdue", sum.OverdueProjects},
					{"Open revisions", sum.OpenRevisions},
					{"Avg turnaround (days)", stats.FormatAverage(sum.AvgTurnaround)},
					{"Avg revisions", stats.FormatAverage(sum.AvgRevisions)},
				})
				tw.AppendSeparator()
				for _, s := range domain.Statuses {
					tw.AppendRow(table.Row{string(s), sum.ProjectsByStatus[s]})
				}
				tw.Render()
				return nil
			})
		},
	})
	dash.AddCommand(&cobra.Command{
		Use:   "overdue",
		Short: "Open projects past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				items, err := c.Stats.Overdue(ctx)
				if err != nil {
					return err
				}
				return printProjects(items)
			})
		},
	})
	dash.AddCommand(&cobra.Command{
		Use:   "workload",
		Short: "Assigned open work per editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				w, err := c.Stats.Workload(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(w)
				}
				printWorkload(w)
				return nil
			})
		},
	})
	return dash
}

func printWorkload(w stats.Workload) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	header := table.Row{"Editor"}
	for _, s := range domain.ActiveStatuses {
		header = append(header, string(s))
	}
	header = append(header, "Total", "")
	tw.AppendHeader(header)
	const barWidth = 20
	for _, row := range w.Rows {
		r := table.Row{row.Editor.FullName}
		for _, s := range domain.ActiveStatuses {
			r = append(r, row.Counts[s])
		}
		bar := strings.Repeat("#", row.Total*barWidth/w.Max)
		r = append(r, row.Total, fmt.Sprintf("%-*s", barWidth, bar))
		tw.AppendRow(r)
	}
	tw.Render()
}
