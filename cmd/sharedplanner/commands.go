package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shared-planner/internal/auth"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Materialize the horizon for every active template once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), jobTimeout)
			defer cancel()
			created, err := a.svc.Generation.Sweep(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "tasks created: %d\n", created)
			return err
		},
	}
}

func tokenCmd() *cobra.Command {
	var userID uint
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			user, err := a.svc.Users.FindByID(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}

			token, expires, err := auth.NewTokens(a.cfg.JWTSecret, ttl).Issue(user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "user %d (%s), expires %s\n", user.ID, user.DisplayName(), expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().UintVar(&userID, "user", 0, "User id the token is issued for")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
