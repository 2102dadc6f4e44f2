package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func resetCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("reset deletes every saved node, edge and interaction; pass --force to continue")
			}
			ctx := cmd.Context()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.close(ctx)

			if err := sess.store.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "Saved graph deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion")
	return cmd
}
