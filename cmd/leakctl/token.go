package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/privashield/leakwatch/internal/auth"
	"github.com/privashield/leakwatch/internal/models"
)

var (
	tokenEmail string
	tokenRole  string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed bearer token for local testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		role := models.Role(tokenRole)
		if role != models.RoleAdmin && role != models.RoleUser {
			return fmt.Errorf("role must be %q or %q", models.RoleAdmin, models.RoleUser)
		}

		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}

		v := auth.NewJWTVerifier(auth.Config{JWTSecret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer})
		tok, err := v.IssueToken(tokenEmail, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Identity the token is issued to")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(models.RoleUser), "Role claim (user or admin)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
	_ = tokenCmd.MarkFlagRequired("email")
}
