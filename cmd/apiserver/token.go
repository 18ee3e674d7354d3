package main

import (
	"errors"
	"fmt"

	"github.com/amoylab/atelier/internal/auth/jwt"
	"github.com/amoylab/atelier/internal/common/config"
	"github.com/spf13/cobra"
)

// newTokenCmd issues session tokens for local development. It only works
// in jwt session mode since supabase tokens are minted by GoTrue.
func newTokenCmd(configPath *string) *cobra.Command {
	var userID, email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.LoadConfig[config.APIServerConfig](*configPath)
			if err != nil {
				return err
			}
			if cfg.Session.Mode != "jwt" {
				return errors.New("tokens can only be issued in jwt session mode")
			}
			svc, err := jwt.NewService(jwt.Config{
				SecretKey: cfg.Session.JWT.SecretKey,
				Duration:  cfg.Session.JWT.Duration,
				Issuer:    cfg.Session.JWT.Issuer,
				Audience:  cfg.Session.JWT.Audience,
			})
			if err != nil {
				return err
			}
			tok, err := svc.GenerateToken(userID, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
