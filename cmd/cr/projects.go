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
	"cutroom/internal/engine"
	"cutroom/internal/engine/auth"
	"cutroom/internal/stats"
)

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectBoardCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectAssignCmd())
	prj.AddCommand(projectEditCmd())
	prj.AddCommand(projectWorkCmd())
	prj.AddCommand(projectQCCmd())
	prj.AddCommand(projectDeleteCmd())
	prj.AddCommand(projectQueueCmd())
	prj.AddCommand(projectClientsCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var in engine.CreateProjectInput
	var priority string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project from intake details",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Priority = domain.Priority(priority)
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				p, err := c.Engine.CreateProject(ctx, actor, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "project title")
	cmd.Flags().StringVar(&in.ClientName, "client", "", "client name (created if new)")
	cmd.Flags().StringVar(&in.Type, "type", "", "project type")
	cmd.Flags().StringVar(&in.DueAt, "due", "", "due date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&in.RawFootageURL, "raw-url", "", "raw footage link")
	cmd.Flags().StringVar(&in.Deliverables, "deliverables", "", "deliverables, comma or newline separated")
	cmd.Flags().StringVar(&in.Address, "address", "", "property address")
	cmd.Flags().StringVar(&priority, "priority", "normal", "normal or rush")
	cmd.Flags().StringVar(&in.BrandAssetsURL, "brand-url", "", "brand assets link")
	cmd.Flags().StringVar(&in.MusicAssetsURL, "music-url", "", "music assets link")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "intake notes")
	cmd.Flags().BoolVar(&in.NeedsInfo, "needs-info", false, "waiting on client info (excluded from SLA)")
	return cmd
}

func projectListCmd() *cobra.Command {
	var q stats.ProjectQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects by due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				items, err := c.Stats.Projects(ctx, q)
				if err != nil {
					return err
				}
				return printProjects(items)
			})
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&q.EditorID, "editor", "", "assigned editor id")
	cmd.Flags().StringVar(&q.Priority, "priority", "", "normal or rush")
	cmd.Flags().StringVar(&q.Due, "due", "", "all, overdue, 3d or 7d")
	return cmd
}

func projectBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Projects grouped by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				cols, err := c.Stats.Board(ctx, stats.ProjectQuery{})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cols)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Count", "Projects"})
				for _, col := range cols {
					titles := make([]string, 0, len(col.Projects))
					for _, p := range col.Projects {
						titles = append(titles, p.Title)
					}
					tw.AppendRow(table.Row{col.Status, len(col.Projects), strings.Join(titles, "\n")})
					tw.AppendSeparator()
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <project id>",
		Short: "Show a project with deliverables, revisions, activity and chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				detail, err := c.Engine.ProjectDetail(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(detail)
			})
		},
	}
	return cmd
}

func projectAssignCmd() *cobra.Command {
	var editor, due string
	cmd := &cobra.Command{
		Use:   "assign <project id>",
		Short: "Set the editor and due date (empty value clears)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				in := engine.AssignInput{}
				if cmd.Flags().Changed("editor") {
					id := editor
					if strings.Contains(editor, "@") {
						ed, err := c.Engine.Auth.ActorByEmailOrID(ctx, editor)
						if err != nil {
							return fmt.Errorf("editor %s: %w", editor, err)
						}
						id = ed.ID
					}
					in.EditorID = &id
				}
				if cmd.Flags().Changed("due") {
					in.DueAt = &due
				}
				if err := c.Engine.AssignProject(ctx, actor, args[0], in); err != nil {
					return err
				}
				return showProject(ctx, c, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&editor, "editor", "", "editor profile id or email")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD or RFC3339)")
	return cmd
}

func projectEditCmd() *cobra.Command {
	var in engine.DetailsInput
	var needsInfo bool
	var add, complete []string
	cmd := &cobra.Command{
		Use:   "edit <project id>",
		Short: "Edit details (admin or creator)",
		Long: `Edit project details. Blank title, type, priority and raw footage link keep
the stored value; the other fields are cleared when left blank.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("needs-info") {
				in.NeedsInfo = &needsInfo
			}
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				var rows []engine.DeliverableInput
				if len(complete) > 0 {
					current, err := c.Repo().ListDeliverables(ctx, args[0])
					if err != nil {
						return err
					}
					byID := map[string]domain.Deliverable{}
					for _, d := range current {
						byID[d.ID] = d
					}
					for _, id := range complete {
						d, ok := byID[id]
						if !ok {
							return fmt.Errorf("deliverable %s not in project %s", id, args[0])
						}
						rows = append(rows, engine.DeliverableInput{ID: d.ID, Label: d.Label, Specs: deref(d.Specs), Completed: true})
					}
				}
				for _, label := range add {
					rows = append(rows, engine.DeliverableInput{Label: label})
				}
				if err := c.Engine.UpdateProjectDetails(ctx, actor, args[0], in, rows); err != nil {
					return err
				}
				return showProject(ctx, c, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Address, "address", "", "address")
	cmd.Flags().StringVar(&in.Type, "type", "", "type")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "normal or rush")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
	cmd.Flags().StringVar(&in.RawFootageURL, "raw-url", "", "raw footage link")
	cmd.Flags().StringVar(&in.BrandAssetsURL, "brand-url", "", "brand assets link")
	cmd.Flags().StringVar(&in.MusicAssetsURL, "music-url", "", "music assets link")
	cmd.Flags().StringVar(&in.PreviewURL, "preview-url", "", "preview link")
	cmd.Flags().StringVar(&in.FinalDeliveryURL, "final-url", "", "final delivery link")
	cmd.Flags().BoolVar(&needsInfo, "needs-info", false, "waiting on client info")
	cmd.Flags().StringArrayVar(&add, "add-deliverable", nil, "add a deliverable (repeatable)")
	cmd.Flags().StringArrayVar(&complete, "complete", nil, "mark a deliverable id completed (repeatable)")
	return cmd
}

func projectWorkCmd() *cobra.Command {
	var status, preview, final string
	cmd := &cobra.Command{
		Use:   "work <project id>",
		Short: "Assigned editor reports status and links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.EditorUpdateInput{}
			if status != "" {
				st, ok := domain.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				in.Status = &st
			}
			if cmd.Flags().Changed("preview-url") {
				in.PreviewURL = &preview
			}
			if cmd.Flags().Changed("final-url") {
				in.FinalURL = &final
			}
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				if err := c.Engine.UpdateEditorWork(ctx, actor, args[0], in); err != nil {
					return err
				}
				return showProject(ctx, c, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "ASSIGNED, EDITING, QC or REVISION_REQUESTED")
	cmd.Flags().StringVar(&preview, "preview-url", "", "preview link")
	cmd.Flags().StringVar(&final, "final-url", "", "final delivery link")
	return cmd
}

func projectQCCmd() *cobra.Command {
	var in engine.QCDecisionInput
	cmd := &cobra.Command{
		Use:   "qc <project id>",
		Short: "Record a QC decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				if err := c.Engine.QCDecision(ctx, actor, args[0], in); err != nil {
					return err
				}
				return showProject(ctx, c, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&in.Decision, "decision", "", "ready, delivered or request_revision")
	cmd.Flags().StringSliceVar(&in.Tags, "tag", nil, "revision reason tag (repeatable or comma separated)")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "revision notes")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <project id>",
		Short: "Delete a project and everything attached to it (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				if err := c.Engine.DeleteProject(ctx, actor, args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted project %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func projectQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Open projects assigned to the acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				items, err := c.Engine.Queue(ctx, actor)
				if err != nil {
					return err
				}
				return printProjects(items)
			})
		},
	}
	return cmd
}

func projectClientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Known clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				items, err := c.Engine.Clients(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, cl := range items {
					tw.AppendRow(table.Row{cl.ID, cl.Name, shortTime(cl.CreatedAt)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func showProject(ctx context.Context, c *app.Context, id string) error {
	p, err := c.Engine.GetProject(ctx, id)
	if err != nil {
		return err
	}
	return printJSONOrTable(p)
}

func printProjects(items []domain.Project) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Client", "Status", "Priority", "Due", "Editor", "Revisions"})
	for _, p := range items {
		due := deref(p.DueAt)
		if len(due) >= 10 {
			due = due[:10]
		}
		tw.AppendRow(table.Row{p.ID, p.Title, p.ClientName, p.Status, p.Priority, due, deref(p.AssignedEditorID), p.RevisionCount})
	}
	tw.Render()
	return nil
}
