package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"cutroom/internal/app"
	"cutroom/internal/config"
	"cutroom/internal/db"
	"cutroom/internal/engine/auth"
	"cutroom/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "cr",
	Short: "Cutroom CLI",
	Long: `Cutroom tracks video editing work from intake to delivery.
- Projects move NEW -> ASSIGNED -> EDITING/QC/REVISION_REQUESTED -> READY -> DELIVERED.
- Admins and QC create and assign projects; the assigned editor reports progress.
- QC approves, delivers or requests a revision with reason tags and notes.
- Every project has a chat; unread counts come from a per-user last-seen watermark.
- Dashboards show overdue work, editor workload and turnaround averages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	// A missing .env is fine.
	_ = godotenv.Load()
	viper.SetEnvPrefix("CUTROOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor", "", "profile id or email to act as")
	rootCmd.PersistentFlags().String("config", "", "config file (default <workspace>/cutroom.yml)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(messageCmd())
	rootCmd.AddCommand(inboxCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())
}

func initCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the workspace, config file and first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", path)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if email != "" {
				cfg.Bootstrap.AdminEmail = email
				cfg.Bootstrap.AdminPassword = password
				cfg.Bootstrap.AdminName = name
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			c, err := app.Open(cmd.Context(), workspace, cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer c.Close()
			n, err := c.Repo().CountProfiles(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Workspace ready at %s (%d profiles)\n", db.Dir(workspace), n)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "admin-email", "", "email of the first admin")
	cmd.Flags().StringVar(&password, "admin-password", "", "password of the first admin")
	cmd.Flags().StringVar(&name, "admin-name", "Admin", "name of the first admin")
	return cmd
}

// --- helpers ---

// loadConfig reads the workspace config and layers CUTROOM_* overrides on top.
func loadConfig() (*config.Config, error) {
	workspace := viper.GetString("workspace")
	var cfg *config.Config
	var err error
	if path := viper.GetString("config"); path != "" {
		cfg, err = config.FromFile(path)
	} else {
		cfg, err = config.Load(workspace)
	}
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("jwt_secret"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := viper.GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if viper.IsSet("demo_mode") {
		cfg.DemoMode = viper.GetBool("demo_mode")
	}
	if v := viper.GetString("redis_addr"); v != "" {
		cfg.Unread.Store = "redis"
		cfg.Unread.Redis.Addr = v
	}
	if v := viper.GetString("redis_password"); v != "" {
		cfg.Unread.Redis.Password = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.Log.Level = v
	}
	if v := viper.GetString("admin_email"); v != "" {
		cfg.Bootstrap.AdminEmail = v
		cfg.Bootstrap.AdminPassword = viper.GetString("admin_password")
	}
	return cfg, cfg.Validate()
}

func withApp(ctx context.Context, fn func(context.Context, *app.Context) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()
	c, err := app.Open(ctx, viper.GetString("workspace"), cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

// withActor is withApp plus the profile named by --actor (or CUTROOM_ACTOR).
func withActor(ctx context.Context, fn func(context.Context, *app.Context, auth.Actor) error) error {
	return withApp(ctx, func(ctx context.Context, c *app.Context) error {
		ident := strings.TrimSpace(viper.GetString("actor"))
		if ident == "" {
			return fmt.Errorf("--actor is required (profile id or email)")
		}
		actor, err := c.Engine.Auth.ActorByEmailOrID(ctx, ident)
		if err != nil {
			return fmt.Errorf("actor %s: %w", ident, err)
		}
		return fn(ctx, c, actor)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
