package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"dealgraph/internal/graph"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the graph from the CLI",
	}
	cmd.AddCommand(queryGraphCmd())
	cmd.AddCommand(queryContactsCmd())
	cmd.AddCommand(queryRelationsCmd())
	cmd.AddCommand(queryPathCmd())
	cmd.AddCommand(queryOrgChartCmd())
	cmd.AddCommand(queryInfluenceCmd())
	cmd.AddCommand(queryRecommendCmd())
	cmd.AddCommand(queryHealthCmd())
	return cmd
}

func queryGraphCmd() *cobra.Command {
	var filter graph.Filter
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print nodes and edges as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())
			return printJSON(sess.graph.Subgraph(filter))
		},
	}
	cmd.Flags().StringVar(&filter.AccountID, "account", "", "Only contacts at this account")
	cmd.Flags().StringVar(&filter.DealID, "deal", "", "Only contacts holding a role on this deal")
	cmd.Flags().IntVar(&filter.MinInfluence, "min-influence", 0, "Minimum contact influence score")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
