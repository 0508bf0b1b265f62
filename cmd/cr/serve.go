package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cutroom/internal/app"
	"cutroom/internal/digest"
	"cutroom/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, webhook dispatcher and digest schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				cfg := c.Config
				if addr != "" {
					cfg.Server.Addr = addr
				}
				if basePath != "" {
					cfg.Server.BasePath = basePath
				}
				if cfg.Server.JWTSecret == "" {
					return fmt.Errorf("CUTROOM_JWT_SECRET (or server.jwt_secret) is required for bearer auth")
				}
				handler, err := server.New(server.Config{
					Engine:    c.Engine,
					Stats:     c.Stats,
					Messaging: c.Messaging,
					BasePath:  cfg.Server.BasePath,
					Auth:      server.AuthConfig{JWTSecret: cfg.Server.JWTSecret, TokenTTL: cfg.Server.TokenTTL},
					DemoMode:  cfg.DemoMode,
					Log:       c.Log.Named("http"),
				})
				if err != nil {
					return err
				}

				dispatcher := server.NewDispatcher(c.Repo(), cfg.Webhooks, c.Log.Named("webhooks"))
				go func() {
					if err := dispatcher.Run(ctx); err != nil {
						c.Log.Warn("webhook dispatcher stopped", zap.Error(err))
					}
				}()
				if cfg.Digest.Enabled {
					sched := digest.Scheduler{Source: c.Stats, Publisher: dispatcher, Schedule: cfg.Digest.Schedule, Log: c.Log.Named("digest")}
					go func() {
						if err := sched.Start(ctx); err != nil {
							c.Log.Error("digest schedule", zap.Error(err))
						}
					}()
				}

				srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				c.Log.Info("serving", zap.String("addr", cfg.Server.Addr), zap.String("base_path", cfg.Server.BasePath), zap.Bool("demo_mode", cfg.DemoMode))
				fmt.Printf("Serving Cutroom API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}
