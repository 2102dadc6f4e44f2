package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func queryInfluenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "influence <contact>",
		Short: "Explain a contact's influence score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			b, err := sess.graph.Influence(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Influence of %s: %d\n", b.ContactID, b.Total)
			fmt.Fprintf(os.Stdout, "  Role:       %5.1f\n", b.Role)
			fmt.Fprintf(os.Stdout, "  Deals:      %5.1f\n", b.Deals)
			fmt.Fprintf(os.Stdout, "  Strength:   %5.1f\n", b.Strength)
			fmt.Fprintf(os.Stdout, "  Recency:    %5.1f\n", b.Recency)
			fmt.Fprintf(os.Stdout, "  Centrality: %5.1f\n", b.Centrality)
			return nil
		},
	}
}

func queryRecommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <deal>",
		Short: "Rank who to engage on a deal and how",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			recs, err := sess.graph.InfluenceRecommendations(args[0])
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintf(os.Stdout, "No stakeholders found for %s.\n", args[0])
				return nil
			}
			for _, r := range recs {
				fmt.Fprintf(os.Stdout, "%3d  %-24s %-18s %s\n", r.InfluenceScore, r.Name, r.Action, r.Reason)
				if len(r.Path) > 0 {
					fmt.Fprintf(os.Stdout, "     via %s\n", strings.Join(r.Path, " -> "))
				}
			}
			return nil
		},
	}
}
