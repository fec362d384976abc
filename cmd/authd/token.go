// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/knpvt5/auth/internal/auth"
)

// NewTokenCmd creates the token subcommand.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect session tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	cmd.AddCommand(newTokenVerifyCmd())
	return cmd
}

type verifiedToken struct {
	User      *auth.PublicUser `json:"user"`
	IssuedAt  time.Time        `json:"issuedAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

type issuedToken struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func newTokenIssueCmd() *cobra.Command {
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "issue EMAIL",
		Short: "Log in as an account and print its session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, "Password: ", passwordStdin)
			if err != nil {
				return err
			}

			s, err := openAdminSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			session, err := s.accounts.Authenticate(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			return printJSON(cmd, issuedToken{AccessToken: session.Token, ExpiresAt: session.ExpiresAt})
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newTokenVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Resolve a session token to its account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openAdminSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			user, err := s.accounts.ResolveSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			claims, err := s.tokens.Verify(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, verifiedToken{User: user, IssuedAt: claims.IssuedAt, ExpiresAt: claims.ExpiresAt})
		},
	}
}
