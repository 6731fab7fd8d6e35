package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"pushboard-backend/internal/dispatch/client"
	dispatchdomain "pushboard-backend/internal/dispatch/domain"
	"pushboard-backend/internal/push/capability"
	"pushboard-backend/internal/push/platform"
	"pushboard-backend/internal/push/repository"
	"pushboard-backend/internal/push/usecase"
	"pushboard-backend/pkg/vapid"

	"github.com/spf13/cobra"
)

// cliSession is one resolved subscription session.
type cliSession struct {
	manager usecase.SubscriptionManager
	device  *platform.File
}

// openSession builds a subscription manager over the file platform and
// resolves the session against it.
func openSession(cmd *cobra.Command, opts *rootOptions, descriptor string) (*cliSession, error) {
	dispatch := client.New(opts.server)

	publicKey := opts.publicKey
	if publicKey == "" {
		publicKey = os.Getenv("WEB_PUSH_PUBLIC_KEY")
	}
	if publicKey == "" {
		key, err := dispatch.FetchPublicKey(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("no VAPID public key given and the server did not provide one: %w", err)
		}
		publicKey = key
	}

	device := platform.NewFile(opts.session, descriptor, cmd.InOrStdin(), cmd.ErrOrStderr())
	manager, err := usecase.NewSubscriptionManager(
		capability.NewNegotiator(device),
		device,
		repository.NewSessionStore(),
		dispatch,
		vapid.NewIdentity("", publicKey, ""),
	)
	if err != nil {
		return nil, err
	}

	if _, err := manager.Check(cmd.Context()); err != nil {
		return nil, err
	}
	return &cliSession{manager: manager, device: device}, nil
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session's subscription state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd, opts, "")
			if err != nil {
				return err
			}
			printState(cmd, sess.manager)
			return nil
		},
	}
}

func newSubscribeCmd(opts *rootOptions) *cobra.Command {
	var descriptor string

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe the session for push notifications",
		Long: `Ask for notification permission if needed and register the subscription
descriptor exported from a browser (PushSubscription.toJSON()).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd, opts, descriptor)
			if err != nil {
				return err
			}
			if sess.manager.State() != usecase.StateSubscribed {
				if _, err := sess.manager.Subscribe(cmd.Context()); err != nil {
					return err
				}
			}
			printState(cmd, sess.manager)
			return nil
		},
	}

	cmd.Flags().StringVar(&descriptor, "descriptor", "", "path to a PushSubscription JSON file")
	_ = cmd.MarkFlagRequired("descriptor")
	return cmd
}

func newUnsubscribeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe",
		Short: "Remove the session's subscription",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd, opts, "")
			if err != nil {
				return err
			}
			if err := sess.manager.Unsubscribe(cmd.Context()); err != nil {
				return err
			}
			printState(cmd, sess.manager)
			return nil
		},
	}
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send MESSAGE",
		Short: "Send a push notification to the session's subscription",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, opts, "")
			if err != nil {
				return err
			}
			sub, _ := sess.manager.Subscription()

			ack, err := sess.manager.Send(cmd.Context(), strings.Join(args, " "))
			var pushErr *dispatchdomain.PushServiceError
			if errors.As(err, &pushErr) {
				cmd.Printf("push service rejected the message: %d %s\n", pushErr.StatusCode, string(pushErr.Body))
				if pushErr.Gone() && sub != nil {
					if err := sess.device.Unsubscribe(cmd.Context(), sub); err != nil {
						cmd.Printf("failed to clear session: %v\n", err)
					}
					cmd.Println("subscription discarded, run subscribe again")
				}
				return err
			}
			if err != nil {
				return err
			}
			cmd.Printf("delivered: %d\n", ack.StatusCode)
			return nil
		},
	}
}

func printState(cmd *cobra.Command, manager usecase.SubscriptionManager) {
	cmd.Printf("state: %s\n", manager.State())
	if sub, ok := manager.Subscription(); ok {
		host := "unknown"
		if u, err := url.Parse(sub.Endpoint); err == nil && u.Host != "" {
			host = u.Host
		}
		cmd.Printf("push service: %s\n", host)
		if expiresAt, ok := sub.ExpiresAt(); ok {
			cmd.Printf("expires: %s\n", expiresAt.Format("2006-01-02 15:04:05"))
		}
	}
}
