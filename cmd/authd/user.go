// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"encoding/json"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/knpvt5/auth/internal/auth"
)

// adminSession is the opened store and account service for admin commands.
type adminSession struct {
	accounts *auth.AccountService
	tokens   *auth.TokenService
	logger   *slog.Logger
	close    func()
}

// storeOpenerForCLI is swapped in tests.
var storeOpenerForCLI StoreOpener = openStore

func openAdminSession(cmd *cobra.Command) (*adminSession, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	st, closeStore, err := storeOpenerForCLI(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, oops.With("operation", "open credential store").Wrap(err)
	}
	accounts, tokens, err := newAccountService(cfg, st, logger)
	if err != nil {
		closeStore()
		return nil, err
	}
	return &adminSession{accounts: accounts, tokens: tokens, logger: logger, close: closeStore}, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.With("operation", "write output").Wrap(err)
	}
	return nil
}

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserShowCmd())
	cmd.AddCommand(newUserResetPasswordCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var (
		in            auth.RegisterInput
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, "Password: ", passwordStdin)
			if err != nil {
				return err
			}
			in.Password = password

			s, err := openAdminSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			user, err := s.accounts.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd, user)
		},
	}
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name (required)")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address (required)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("first-name") //nolint:errcheck // flag is defined above
	_ = cmd.MarkFlagRequired("email")      //nolint:errcheck // flag is defined above
	return cmd
}

func newUserShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show EMAIL",
		Short: "Show an account's public summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openAdminSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			summary, err := s.accounts.FindByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
}

func newUserResetPasswordCmd() *cobra.Command {
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "reset-password EMAIL",
		Short: "Replace an account's password",
		Long: `Replace the password of the account registered under EMAIL. The
current password is not asked for; the caller is trusted to have verified the
account holder.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, "New password: ", passwordStdin)
			if err != nil {
				return err
			}

			s, err := openAdminSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.accounts.ResetPassword(cmd.Context(), args[0], password); err != nil {
				return err
			}
			cmd.Println("Password reset successfully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the new password from stdin")
	return cmd
}
