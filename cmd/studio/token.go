package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GyroZepelix/mithril-studio/internal/auth"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		subject string
		email   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}
			if err := a.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = a.cfg.TokenTTL
			}

			token, err := auth.CreateAccessToken(subject, email, a.cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, recorded on snapshots (required)")
	cmd.Flags().StringVar(&email, "email", "", "optional email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default STUDIO_TOKEN_TTL)")
	return cmd
}
