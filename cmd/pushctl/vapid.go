package main

import (
	"fmt"
	"time"

	"pushboard-backend/pkg/config"
	"pushboard-backend/pkg/vapid"

	"github.com/spf13/cobra"
)

// NewVapidCmd creates the vapid subcommand group.
func NewVapidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vapid",
		Short: "Generate and check VAPID keys",
	}
	cmd.AddCommand(newVapidGenerateCmd())
	cmd.AddCommand(newVapidCheckCmd())
	return cmd
}

func newVapidGenerateCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new VAPID key pair",
		Long:  `Generate a new VAPID key pair and print it as environment variable lines.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := vapid.GenerateKeys(email)
			if err != nil {
				return err
			}
			// Printed to stdout so the output can be appended to .env.
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "WEB_PUSH_PUBLIC_KEY=%s\n", identity.PublicKey)
			fmt.Fprintf(out, "WEB_PUSH_PRIVATE_KEY=%s\n", identity.PrivateKey)
			if identity.ContactURI != "" {
				fmt.Fprintf(out, "WEB_PUSH_EMAIL=%s\n", identity.Subscriber())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "contact e-mail for WEB_PUSH_EMAIL")
	return cmd
}

func newVapidCheckCmd() *cobra.Command {
	var audience string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the configured VAPID identity",
		Long: `Load WEB_PUSH_* from the environment (or .env), verify the keys form a
pair and print a signed assertion for the given audience.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if err := cfg.Vapid.Verify(); err != nil {
				return err
			}

			token, err := cfg.Vapid.Assertion(audience, time.Now().Add(12*time.Hour))
			if err != nil {
				return err
			}
			cmd.Println("VAPID identity OK")
			cmd.Printf("contact:   %s\n", cfg.Vapid.ContactURI)
			cmd.Printf("audience:  %s\n", audience)
			cmd.Printf("assertion: %s\n", token)
			return nil
		},
	}

	cmd.Flags().StringVar(&audience, "audience", "https://fcm.googleapis.com", "push service origin to sign for")
	return cmd
}
