package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dealgraph/internal/graph"
)

func queryPathCmd() *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find the warmest introduction path between two contacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			ids := sess.graph.ShortestPath(args[0], args[1], maxDepth)
			if ids == nil {
				fmt.Fprintf(os.Stdout, "No path from %s to %s within %d hops.\n", args[0], args[1], maxDepth)
				return nil
			}
			names := make([]string, 0, len(ids))
			for _, id := range ids {
				if n, ok := sess.graph.FindNode(id); ok {
					names = append(names, fmt.Sprintf("%s (%s)", n.Name, id))
				}
			}
			fmt.Fprintln(os.Stdout, strings.Join(names, " -> "))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", graph.DefaultMaxDepth, "Maximum number of hops")
	return cmd
}
