package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/validation"
)

var errTokenRejected = errors.New("token rejected")

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and check order validation tokens",
	}
	cmd.AddCommand(tokenIssueCmd())
	cmd.AddCommand(tokenVerifyCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue <orderID>",
		Short: "Issue a token and print the confirm and cancel links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPayments()
			if err != nil {
				return err
			}
			store, err := validation.OpenStore(cmd.Context(), cfg.Tokens)
			if err != nil {
				return err
			}
			svc := validation.NewService(store, cfg.Tokens.TTL, cfg.Tokens.FailOpen)
			defer svc.Close()

			token, err := svc.Issue(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token:   %s\n", token.Value)
			fmt.Fprintf(out, "Expires: %s\n", token.ExpiresAt.UTC().Format(time.RFC3339))
			fmt.Fprintf(out, "Confirm: %s\n", validation.BuildActionLink(cfg.BaseURL, token.OrderID, token.Value, validation.ActionConfirm))
			fmt.Fprintf(out, "Cancel:  %s\n", validation.BuildActionLink(cfg.BaseURL, token.OrderID, token.Value, validation.ActionCancel))
			return nil
		},
	}
}

// verify reads the store directly so an unreachable store is reported
// instead of being accepted by the fail-open policy.
func tokenVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <orderID> <token>",
		Short: "Check a token without consuming it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPayments()
			if err != nil {
				return err
			}
			store, err := validation.OpenStore(cmd.Context(), cfg.Tokens)
			if err != nil {
				return err
			}
			defer store.Close()

			ok, err := store.Verify(cmd.Context(), args[0], args[1], time.Now())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w for order %s", errTokenRejected, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token valid for order %s\n", args[0])
			return nil
		},
	}
}
