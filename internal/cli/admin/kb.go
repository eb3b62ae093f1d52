package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/msassist/internal/repository"
	"github.com/spf13/cobra"
)

func KBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
	}

	cmd.AddCommand(KBResetCmd())

	return cmd
}

func KBResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every document and chunk",
		Long:  "Delete every indexed document and chunk. Users and chat history are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}

			ctx, rt, err := newRuntime(context.Background())
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := repository.NewChunkRepository(rt.pool).Reset(ctx)
			if err != nil {
				return fmt.Errorf("failed to reset knowledge base: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Knowledge base reset: %d chunks deleted\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")

	return cmd
}
