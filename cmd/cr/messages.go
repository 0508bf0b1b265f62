package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cutroom/internal/app"
	"cutroom/internal/domain"
	"cutroom/internal/engine/auth"
	"cutroom/internal/messaging"
	cutroomsdk "cutroom/sdk/go"
)

func messageCmd() *cobra.Command {
	msg := &cobra.Command{Use: "message", Short: "Project chat"}
	msg.AddCommand(messageSendCmd())
	msg.AddCommand(messageListCmd())
	msg.AddCommand(messageReadCmd())
	return msg
}

func messageSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <project id> <text>",
		Short: "Post a chat message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				m, err := c.Engine.SendMessage(ctx, actor, args[0], text)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	return cmd
}

func messageListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <project id>",
		Short: "Show the latest chat window, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, c *app.Context) error {
				msgs, err := c.Engine.Messages(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(msgs)
				}
				printChat(msgs)
				return nil
			})
		},
	}
	return cmd
}

func messageReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <project id>",
		Short: "Mark a project's chat as read for the acting user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				if _, err := c.Engine.GetProject(ctx, args[0]); err != nil {
					return err
				}
				seen, err := c.Messaging.MarkRead(ctx, actor.ID, args[0])
				if err != nil {
					return err
				}
				if seen == "" {
					fmt.Println("No messages yet")
					return nil
				}
				fmt.Printf("Read up to %s\n", seen)
				return nil
			})
		},
	}
	return cmd
}

func inboxCmd() *cobra.Command {
	var countOnly bool
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Latest message per project with unread counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, c *app.Context, actor auth.Actor) error {
				if countOnly {
					n, err := c.Messaging.Unread(ctx, actor.ID)
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(map[string]int{"count": n})
					}
					fmt.Println(n)
					return nil
				}
				threads, err := c.Messaging.Inbox(ctx, actor.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(threads)
				}
				printThreads(threads)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&countOnly, "count", false, "only print the unread total")
	return cmd
}

// watchCmd polls a running server the way the web client does.
func watchCmd() *cobra.Command {
	var baseURL, email, password string
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Poll a running server for chat or inbox changes",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = viper.GetString("email")
			}
			if password == "" {
				password = viper.GetString("password")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or CUTROOM_EMAIL/CUTROOM_PASSWORD) are required")
			}
			return nil
		},
	}
	watch.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	watch.PersistentFlags().StringVar(&email, "email", "", "login email")
	watch.PersistentFlags().StringVar(&password, "password", "", "login password")

	login := func(ctx context.Context) (*cutroomsdk.Client, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		client := cutroomsdk.New(baseURL)
		client.BasePath = cfg.Server.BasePath
		if _, err := client.Login(ctx, email, password); err != nil {
			return nil, err
		}
		return client, nil
	}

	watch.AddCommand(&cobra.Command{
		Use:   "chat <project id>",
		Short: "Print new chat messages as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := login(ctx)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			seen := map[string]bool{}
			err = messaging.Poll(ctx, cfg.Polling.Chat, func(ctx context.Context) {
				msgs, err := client.Messages(ctx, args[0])
				if err != nil {
					fmt.Fprintln(os.Stderr, "poll:", err)
					return
				}
				fresh := false
				for _, m := range msgs {
					if seen[m.ID] {
						continue
					}
					seen[m.ID] = true
					fresh = true
					fmt.Printf("%s  %-8s %s\n", shortTime(m.CreatedAt), senderLabel(m.SenderID, m.MessageType), m.Body)
				}
				if fresh {
					if _, err := client.MarkRead(ctx, args[0]); err != nil {
						fmt.Fprintln(os.Stderr, "mark read:", err)
					}
				}
			})
			return ignoreCancel(err)
		},
	})

	watch.AddCommand(&cobra.Command{
		Use:   "inbox",
		Short: "Print the unread total and inbox when they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := login(ctx)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			last := -1
			err = messaging.Poll(ctx, cfg.Polling.Unread, func(ctx context.Context) {
				n, err := client.Unread(ctx)
				if err != nil {
					fmt.Fprintln(os.Stderr, "poll:", err)
					return
				}
				if n == last {
					return
				}
				last = n
				fmt.Printf("%s  unread: %d\n", time.Now().Format(time.Kitchen), n)
				threads, err := client.Inbox(ctx)
				if err != nil {
					fmt.Fprintln(os.Stderr, "inbox:", err)
					return
				}
				for _, th := range threads {
					if th.Unread > 0 {
						fmt.Printf("  %-30s %3d  %s\n", th.ProjectTitle, th.Unread, th.Latest.Body)
					}
				}
			})
			return ignoreCancel(err)
		},
	})
	return watch
}

func printChat(msgs []domain.Message) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Time", "From", "Message"})
	for _, m := range msgs {
		tw.AppendRow(table.Row{shortTime(m.CreatedAt), senderLabel(m.SenderID, m.MessageType), m.Body})
	}
	tw.Render()
}

func printThreads(threads []messaging.Thread) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Project", "Title", "Unread", "Latest", "At"})
	for _, th := range threads {
		tw.AppendRow(table.Row{th.ProjectID, th.ProjectTitle, th.Unread, th.Latest.Body, shortTime(th.Latest.CreatedAt)})
	}
	tw.Render()
}

func senderLabel(senderID *string, messageType string) string {
	if messageType == domain.MessageTypeSystem || senderID == nil {
		return "system"
	}
	id := *senderID
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

func shortTime(ts string) string {
	t, err := domain.ParseTime(ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("Jan 2 15:04")
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
