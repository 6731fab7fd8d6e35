package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// rootOptions are shared by every session subcommand.
type rootOptions struct {
	server    string
	session   string
	publicKey string
}

func defaultSessionPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pushctl", "session.json")
	}
	return "pushctl-session.json"
}

// NewRootCmd creates the root command for the pushctl CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pushctl",
		Short: "pushctl - Web Push operator tool",
		Long: `pushctl manages VAPID keys and drives a headless push subscription
session against a pushboard server.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8080", "dispatch server base URL")
	cmd.PersistentFlags().StringVar(&opts.session, "session", defaultSessionPath(), "session file path")
	cmd.PersistentFlags().StringVar(&opts.publicKey, "public-key", "", "VAPID public key (default: WEB_PUSH_PUBLIC_KEY, then the server)")

	cmd.AddCommand(NewVapidCmd())
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newSubscribeCmd(opts))
	cmd.AddCommand(newUnsubscribeCmd(opts))
	cmd.AddCommand(newSendCmd(opts))

	return cmd
}
