package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlayersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Rankings and player administration",
	}

	cmd.AddCommand(newPlayersRankingsCmd())
	cmd.AddCommand(newPlayersGetCmd())
	cmd.AddCommand(newPlayersBlockCmd())
	cmd.AddCommand(newPlayersUpdateCmd())
	cmd.AddCommand(newPlayersDeleteCmd())

	return cmd
}

func newPlayersRankingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rankings",
		Short: "List players by click count",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Rankings
			if err := client.Get(cmd.Context(), "/api/players/rankings", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newPlayersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result User
			if err := client.Get(cmd.Context(), "/api/players/user/"+args[0], &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newPlayersBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <id>",
		Short: "Toggle a player's blocked status (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result User
			if err := client.Patch(cmd.Context(), "/api/players/"+args[0]+"/block", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newPlayersUpdateCmd() *cobra.Command {
	var username, password string
	var clicks int64

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a player's username, click count or password (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{}
			if cmd.Flags().Changed("username") {
				req["username"] = username
			}
			if cmd.Flags().Changed("clicks") {
				req["clickCount"] = clicks
			}
			if cmd.Flags().Changed("password") {
				req["password"] = password
			}
			if len(req) == 0 {
				return fmt.Errorf("at least one of --username, --clicks, --password is required")
			}

			var result UpdateResult
			if err := client.Put(cmd.Context(), "/api/players/"+args[0], req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "New username")
	cmd.Flags().Int64Var(&clicks, "clicks", 0, "New click count")
	cmd.Flags().StringVar(&password, "password", "", "New password")

	return cmd
}

func newPlayersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a player (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MessageResult
			if err := client.Delete(cmd.Context(), "/api/players/"+args[0], &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}
