package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func queryHealthCmd() *cobra.Command {
	var telemetryPath string
	cmd := &cobra.Command{
		Use:   "health <deal>",
		Short: "Show the health signals of one deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := loadTelemetry(telemetryPath)
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			h, err := newOrchestrator(sess.graph, sess.cfg, source).Assess(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s (%s, $%.0f, %d%%)\n", h.Name, h.Stage, h.Value, h.Probability)
			fmt.Fprintf(os.Stdout, "  Days in stage: %.1f\n", h.DaysInStage)
			fmt.Fprintf(os.Stdout, "  Hot: %t  Stalling: %t  Ghosting: %t\n", h.Hot, h.Stalling, h.Ghosting)
			fmt.Fprintf(os.Stdout, "  Urgency: %d\n", h.Urgency)
			if h.Champion != "" {
				fmt.Fprintf(os.Stdout, "  Champion: %s\n", h.Champion)
			}
			if len(h.Stakeholders) > 0 {
				fmt.Fprintf(os.Stdout, "  Stakeholders: %s\n", strings.Join(h.Stakeholders, ", "))
			}
			for _, s := range h.Signals {
				fmt.Fprintf(os.Stdout, "  - %s\n", s)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&telemetryPath, "telemetry", "", "Newline-delimited JSON engagement events")
	return cmd
}
