package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudclip-dev/cloudclip/pkg/client"
	"github.com/cloudclip-dev/cloudclip/pkg/clipboard"
)

// app carries the wiring shared by all subcommands.
type app struct {
	serverURL string
	apiKey    string
	statePath string

	client *client.Client
	clip   *clipboard.Adapter
	state  *client.State
	host   string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "clip",
		Short:         "Share clipboard content between machines",
		Long:          "clip shares clipboard text through a session on a cloudclip server.\nStart a session on one machine, join it from another with the 6-digit code,\nthen send and get clipboard content from either side.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.serverURL, "server", envOr("CLIP_SERVER", "http://localhost:8080"), "Server base URL")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", os.Getenv("CLIP_API_KEY"), "API key for the server")
	root.PersistentFlags().StringVar(&a.statePath, "state", "", "State file path (default: per-user config dir)")

	root.AddCommand(
		a.startCmd(),
		a.joinCmd(),
		a.sendCmd(),
		a.getCmd(),
		a.historyCmd(),
		a.endCmd(),
		a.sessionsCmd(),
		a.statusCmd(),
	)

	return root
}

func (a *app) init() error {
	if a.apiKey == "" {
		return errors.New("API key required: set --api-key or CLIP_API_KEY")
	}

	if a.statePath == "" {
		path, err := client.DefaultStatePath()
		if err != nil {
			return err
		}
		a.statePath = path
	}

	state, err := client.LoadState(a.statePath)
	if err != nil {
		return err
	}
	a.state = state

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	a.host = host

	a.client = client.New(a.serverURL, a.apiKey)
	a.clip = clipboard.New()
	return nil
}

// requireSession fails commands that need an active session.
func (a *app) requireSession() error {
	if a.state.SessionID == "" {
		return errors.New("no session active: run 'clip start' or 'clip join <code>'")
	}
	return nil
}

func (a *app) saveSession(id string) error {
	a.state.SessionID = id
	return client.SaveState(a.state, a.statePath)
}

func (a *app) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new sharing session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.client.StartSession(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.saveSession(code); err != nil {
				return err
			}
			cmd.Printf("Session %s started\n", code)
			cmd.Println("Share this code with the other machine")
			return nil
		},
	}
}

func (a *app) joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join an existing session by its 6-digit code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
			if !validSessionCode(code) {
				return errors.New("invalid session code (must be 6 digits)")
			}
			if err := a.client.Join(cmd.Context(), code); err != nil {
				return err
			}
			if err := a.saveSession(code); err != nil {
				return err
			}
			cmd.Printf("Joined session %s\n", code)
			return nil
		},
	}
}

func (a *app) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Send the local clipboard to the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}

			content, err := a.clip.Read()
			if err != nil {
				return err
			}

			item, err := a.client.Send(cmd.Context(), a.state.SessionID, content, a.host)
			if err != nil {
				return err
			}
			cmd.Printf("Sent %d chars as %s\n", len(item.Content), item.ID)
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Pull the latest session item into the local clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}

			item, err := a.client.Latest(cmd.Context(), a.state.SessionID, a.host)
			if errors.Is(err, client.ErrNotFound) {
				return errors.New("no clipboard items in session")
			}
			if err != nil {
				return err
			}

			if err := a.clip.Write(item.Content); err != nil {
				return err
			}
			cmd.Printf("Got %d chars from %s\n", len(item.Content), item.Hostname)
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the session's recent items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}

			items, err := a.client.History(cmd.Context(), a.state.SessionID, a.host)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				cmd.Println("No items in session")
				return nil
			}
			for _, item := range items {
				cmd.Printf("%s  %-12s  %s\n",
					item.Timestamp.Local().Format("15:04:05"),
					item.Hostname,
					truncate(item.Content, 60))
			}
			return nil
		},
	}
}

func (a *app) endCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the session and clear its data on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}

			id := a.state.SessionID
			if err := a.client.EndSession(cmd.Context(), id); err != nil && !errors.Is(err, client.ErrNotFound) {
				return err
			}
			if err := a.saveSession(""); err != nil {
				return err
			}
			cmd.Printf("Session %s ended\n", id)
			return nil
		},
	}
}

func (a *app) sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List active sessions on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := a.client.ActiveSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				cmd.Println("No active sessions")
				return nil
			}
			for _, s := range summaries {
				hosts := "no hosts"
				if len(s.Hostnames) > 0 {
					hosts = fmt.Sprintf("%v", s.Hostnames)
				}
				cmd.Printf("%s  %2d items  %s\n", s.SessionID, s.ItemCount, hosts)
			}
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session and hostname",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.state.SessionID == "" {
				cmd.Println("No active session")
			} else {
				cmd.Printf("Session: %s\n", a.state.SessionID)
			}
			cmd.Printf("Hostname: %s\n", a.host)
			cmd.Printf("Server: %s\n", a.serverURL)
			return nil
		},
	}
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func validSessionCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
