package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cutroom/internal/app"
	"cutroom/internal/domain"
	"cutroom/internal/engine"
	"cutroom/internal/engine/auth"
)

func userCmd() *cobra.Command {
	usr := &cobra.Command{Use: "user", Short: "Manage profiles"}
	usr.AddCommand(userInviteCmd())
	usr.AddCommand(userRoleCmd())
	usr.AddCommand(userListCmd())
	usr.AddCommand(userPasswdCmd())
	return usr
}

func userInviteCmd() *cobra.Command {
	var in engine.InviteInput
	var role string
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Create a profile (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Role = domain.Role(role)
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				p, err := c.Engine.InviteUser(ctx, actor, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&in.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password (min 8 chars)")
	cmd.Flags().StringVar(&role, "role", "editor", "admin, qc or editor")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role <user id or email> <role>",
		Short: "Change a user's role (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				target, err := c.Engine.Auth.ActorByEmailOrID(ctx, args[0])
				if err != nil {
					return fmt.Errorf("user %s: %w", args[0], err)
				}
				if err := c.Engine.UpdateUserRole(ctx, actor, target.ID, domain.Role(args[1])); err != nil {
					return err
				}
				p, err := c.Repo().GetProfile(ctx, target.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func userListCmd() *cobra.Command {
	var editorsOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				var items []domain.Profile
				var err error
				if editorsOnly {
					items, err = c.Engine.Editors(ctx)
				} else {
					var actor auth.Actor
					actor, err = c.Engine.Auth.ActorByEmailOrID(ctx, viper.GetString("actor"))
					if err != nil {
						return fmt.Errorf("--actor is required to list all users: %w", err)
					}
					items, err = c.Engine.ListUsers(ctx, actor)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.FullName, p.Email, p.Role})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&editorsOnly, "editors", false, "only editors, ordered by name")
	return cmd
}

func userPasswdCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the acting user's email or password",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.AccountInput{Email: optionalString(email), Password: optionalString(password)}
			if in.Email == nil && in.Password == nil {
				return fmt.Errorf("nothing to change: pass --email or --password")
			}
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				p, err := c.Engine.UpdateAccount(ctx, actor, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	return cmd
}
