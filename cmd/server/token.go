package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/studygroup/groupchat-server/internal/auth"
	"github.com/studygroup/groupchat-server/internal/core"
)

func newTokenCommand(root *rootOptions) *cobra.Command {
	var (
		userID   int64
		userType string
		userName string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed handshake token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user-id must be positive")
			}
			if !core.Role(userType).Valid() {
				return fmt.Errorf("--user-type must be %q or %q", core.RoleStudent, core.RoleFaculty)
			}

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if !cfg.JWTEnabled() {
				return fmt.Errorf("jwt_secret is not configured")
			}
			if ttl <= 0 {
				ttl = cfg.JWTTTL
			}

			token, err := auth.GenerateToken(&auth.JWTConfig{
				Secret:   []byte(cfg.JWTSecret),
				Issuer:   cfg.JWTIssuer,
				Audience: cfg.JWTAudience,
				TTL:      ttl,
			}, userID, userType, userName)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "user id")
	cmd.Flags().StringVar(&userType, "user-type", string(core.RoleStudent), "student or faculty")
	cmd.Flags().StringVar(&userName, "user-name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: jwt_ttl)")
	return cmd
}
