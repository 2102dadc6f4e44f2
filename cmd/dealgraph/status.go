package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dealgraph/internal/store/neo4j"
)

func statusCmd() *cobra.Command {
	var withNeo4j bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the snapshot store holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.close(ctx)

			stats, err := sess.store.Stats(ctx)
			if err != nil {
				return err
			}
			if stats.Empty() {
				fmt.Fprintln(os.Stdout, "No graph saved yet.")
			} else {
				fmt.Fprintf(os.Stdout, "Saved graph (%s):\n", stats.SavedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(os.Stdout, "  Nodes:        %d\n", stats.Nodes)
				fmt.Fprintf(os.Stdout, "  Edges:        %d\n", stats.Edges)
				fmt.Fprintf(os.Stdout, "  Interactions: %d\n", stats.Interactions)
			}

			if !withNeo4j {
				return nil
			}
			client, err := neo4j.NewClient(ctx, sess.cfg.Neo4j)
			if err != nil {
				return err
			}
			defer client.Close(ctx)
			counts, err := neo4j.NewExporter(client, logger).Counts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Neo4j export: %d nodes, %d relationships\n", counts.Nodes, counts.Relationships)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withNeo4j, "neo4j", false, "Also count what the last export left in Neo4j")
	return cmd
}
