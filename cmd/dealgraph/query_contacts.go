package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dealgraph/internal/graph"
)

func queryContactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts <account>",
		Short: "List the contacts at an account by influence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			contacts, err := sess.graph.AccountContacts(args[0])
			if err != nil {
				return err
			}
			if len(contacts) == 0 {
				fmt.Fprintf(os.Stdout, "No contacts at %s.\n", args[0])
				return nil
			}
			for _, c := range contacts {
				fmt.Fprintf(os.Stdout, "%3d  %-24s %-28s %s\n", c.Contact.InfluenceScore, c.Name, c.Contact.Title, c.ID)
			}
			return nil
		},
	}
}

func queryRelationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relations <contact>",
		Short: "List every relationship a contact has",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			rels, err := sess.graph.ContactRelationships(args[0])
			if err != nil {
				return err
			}
			if len(rels) == 0 {
				fmt.Fprintf(os.Stdout, "No relationships found for %q.\n", args[0])
				return nil
			}
			for _, rel := range rels {
				arrow := "->"
				if rel.Edge.Target == args[0] {
					arrow = "<-"
				}
				confirmed := ""
				if !rel.Edge.Confirmed {
					confirmed = " (unconfirmed)"
				}
				fmt.Fprintf(os.Stdout, "  %s %s %s [%s] strength %.2f%s\n",
					rel.Edge.Type, arrow, rel.Other.Name, rel.Other.ID, rel.Edge.Strength, confirmed)
			}
			return nil
		},
	}
}

func queryOrgChartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "org-chart <account>",
		Short: "Print the reporting structure of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			entries, err := sess.graph.OrgChart(args[0])
			if err != nil {
				return err
			}
			printOrgChart(entries)
			return nil
		},
	}
}

func printOrgChart(entries []graph.OrgEntry) {
	byID := make(map[string]graph.OrgEntry, len(entries))
	for _, e := range entries {
		byID[e.ContactID] = e
	}
	printed := make(map[string]bool, len(entries))
	var walk func(e graph.OrgEntry, depth int)
	walk = func(e graph.OrgEntry, depth int) {
		if printed[e.ContactID] {
			return
		}
		printed[e.ContactID] = true
		line := fmt.Sprintf("%s%s", strings.Repeat("  ", depth), e.Name)
		if e.Title != "" {
			line += ", " + e.Title
		}
		if e.InCycle {
			line += " (reporting cycle)"
		}
		fmt.Fprintln(os.Stdout, line)
		for _, id := range e.Manages {
			if report, ok := byID[id]; ok {
				walk(report, depth+1)
			}
		}
	}
	for _, e := range entries {
		if e.Level == 0 || e.InCycle {
			walk(e, 0)
		}
	}
	for _, e := range entries {
		walk(e, 0)
	}
}
