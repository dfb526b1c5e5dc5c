package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Registration, login and logout",
	}

	cmd.AddCommand(newAuthRegisterCmd())
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthRegisterAdminCmd())

	return cmd
}

func credentialFlags(cmd *cobra.Command, user, pass *string) {
	cmd.Flags().StringVar(user, "user", "", "Username (required)")
	cmd.Flags().StringVar(pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")
}

func newAuthRegisterCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new player account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RegisterResult
			if err := client.Post(cmd.Context(), "/api/auth/register", credentials(user, pass), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
	credentialFlags(cmd, &user, &pass)

	return cmd
}

func newAuthRegisterAdminCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "register-admin",
		Short: "Register a new admin account (requires an admin token)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MessageResult
			if err := client.Post(cmd.Context(), "/api/auth/admin/register", credentials(user, pass), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
	credentialFlags(cmd, &user, &pass)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result LoginResult
			if err := client.Post(cmd.Context(), "/api/auth/login", credentials(user, pass), &result); err != nil {
				return err
			}

			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
	credentialFlags(cmd, &user, &pass)

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("not logged in")
			}

			var result LogoutResult
			if err := client.Post(cmd.Context(), "/api/auth/logout", map[string]string{"token": cfg.Token}, &result); err != nil {
				return err
			}

			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func credentials(user, pass string) map[string]string {
	return map[string]string{
		"username": user,
		"password": pass,
	}
}
