package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	appctx "kitanda/internal/core/context"
	"kitanda/internal/domain/auth"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		user  appctx.UserContext
		ttl   time.Duration
		perms []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API access token",
		Example: `  seriesctl token --user cashier-1 --perm documents:read --perm documents:write --perm documents:issue
  seriesctl token --user ops --admin --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			if user.UserID == "" {
				return errors.New("--user is required")
			}

			jwtCfg := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
			jwtCfg.Issuer = cfg.Auth.Issuer
			if ttl > 0 {
				jwtCfg.AccessTokenTTL = ttl
			}
			user.Permissions = perms

			token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(user)
			if err != nil {
				return err
			}
			a.printf("%s\n", token)
			cmd.PrintErrf("expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&user.UserID, "user", "", "user id carried in the token")
	cmd.Flags().StringVar(&user.Email, "email", "", "user email")
	cmd.Flags().BoolVar(&user.IsAdmin, "admin", false, "grant every permission")
	cmd.Flags().StringSliceVar(&user.Roles, "role", nil, "role, repeatable")
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "permission, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default 8h)")
	return cmd
}
