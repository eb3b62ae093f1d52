package admin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create and list user accounts",
	}

	cmd.AddCommand(UserCreateCmd())
	cmd.AddCommand(UserListCmd())

	return cmd
}

func UserCreateCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a user account",
		Long:  "Create a user account. The password is read from --password or MSASSIST_NEW_USER_PASSWORD.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("MSASSIST_NEW_USER_PASSWORD")
			}
			if strings.TrimSpace(password) == "" {
				return fmt.Errorf("a password is required (--password or MSASSIST_NEW_USER_PASSWORD)")
			}
			outputFormat, _ := cmd.Flags().GetString("output")

			ctx, rt, err := newRuntime(context.Background())
			if err != nil {
				return err
			}
			defer rt.Close()

			user, err := newAuthService(rt).Register(ctx, args[0], password, password)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			if outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"id":         user.ID,
					"email":      user.Email,
					"created_at": user.CreatedAt,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User created: %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password for the new account")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func UserListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")

			ctx, rt, err := newRuntime(context.Background())
			if err != nil {
				return err
			}
			defer rt.Close()

			users, err := newAuthService(rt).ListUsers(ctx)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputFormat == "json" {
				items := make([]map[string]any, len(users))
				for i, u := range users {
					items[i] = map[string]any{"id": u.ID, "email": u.Email, "created_at": u.CreatedAt}
				}
				return printJSON(out, map[string]any{"items": items})
			}

			if len(users) == 0 {
				fmt.Fprintln(out, "No users found")
				return nil
			}
			fmt.Fprintln(out, "Users:")
			for _, u := range users {
				fmt.Fprintf(out, "  %s: %s (created: %s)\n", u.ID, u.Email, u.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}
