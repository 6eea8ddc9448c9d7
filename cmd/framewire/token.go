package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"framewire/internal/core/domain"
	"framewire/internal/core/services"
	"framewire/pkg/validation"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	subject string
	role    string
	refresh bool
	output  string
}

type tokenResponse struct {
	UserID       domain.UserID `json:"user_id"`
	Subject      string        `json:"subject"`
	Role         string        `json:"role"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	ExpiresIn    int           `json:"expires_in"`
}

func newTokenCommand(root *rootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the control API",
		Example: `  framewire token --subject grafana --role viewer
  framewire token --subject ops --role operator --refresh --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set")
			}
			if err := validation.ValidateSubject(opts.subject); err != nil {
				return err
			}
			role := domain.UserRole(opts.role)
			if role != domain.RoleViewer && role != domain.RoleOperator {
				return fmt.Errorf("role must be viewer or operator, got %q", opts.role)
			}

			authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
			userID := domain.UserID(uuid.NewString())

			resp := tokenResponse{
				UserID:    userID,
				Subject:   opts.subject,
				Role:      opts.role,
				ExpiresIn: int(authService.AccessTokenTTL().Seconds()),
			}
			if resp.AccessToken, err = authService.GenerateToken(userID, opts.subject, role); err != nil {
				return err
			}
			if opts.refresh {
				if resp.RefreshToken, err = authService.GenerateRefreshToken(userID, opts.subject, role); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if opts.output == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Fprintln(out, resp.AccessToken)
			if resp.RefreshToken != "" {
				fmt.Fprintln(out, resp.RefreshToken)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.subject, "subject", "", "Name recorded in the token")
	flags.StringVar(&opts.role, "role", string(domain.RoleViewer), "Role granted: viewer or operator")
	flags.BoolVar(&opts.refresh, "refresh", false, "Also issue a refresh token")
	flags.StringVar(&opts.output, "output", "text", "Output format (json or text)")
	_ = cmd.MarkFlagRequired("subject")

	cmd.RegisterFlagCompletionFunc("role", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(domain.RoleViewer), string(domain.RoleOperator)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
