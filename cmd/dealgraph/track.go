package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dealgraph/internal/graph"
)

func trackCmd() *cobra.Command {
	var (
		date      string
		duration  int
		subject   string
		notes     string
		dealID    string
		scheduled bool
	)
	cmd := &cobra.Command{
		Use:   "track <contact> <call|email|meeting|note|task>",
		Short: "Record an interaction with a contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := graph.TrackOptions{
				Duration: duration,
				Subject:  subject,
				Notes:    notes,
				DealID:   dealID,
			}
			if date != "" {
				t, err := time.Parse(time.RFC3339, date)
				if err != nil {
					return fmt.Errorf("parsing --date: %w", err)
				}
				opts.Date = t
			}
			if scheduled {
				completed := false
				opts.Completed = &completed
			}
			return runTrack(cmd, args[0], graph.InteractionType(strings.ToLower(args[1])), opts)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "RFC3339 timestamp, defaults to now")
	cmd.Flags().IntVar(&duration, "duration", 0, "Duration in minutes")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject line")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-text notes")
	cmd.Flags().StringVar(&dealID, "deal", "", "Deal the interaction relates to")
	cmd.Flags().BoolVar(&scheduled, "scheduled", false, "The interaction is planned, not yet completed")
	return cmd
}

func runTrack(cmd *cobra.Command, contactID string, kind graph.InteractionType, opts graph.TrackOptions) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	rec, err := sess.graph.TrackInteraction(contactID, kind, opts)
	if err != nil {
		return err
	}
	if err := sess.save(ctx); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Recorded %s %s with %s.\n", rec.Type, rec.ID, contactID)
	if n, ok := sess.graph.FindNode(contactID); ok {
		fmt.Fprintf(os.Stdout, "Influence score: %d\n", n.Contact.InfluenceScore)
	}
	return nil
}
