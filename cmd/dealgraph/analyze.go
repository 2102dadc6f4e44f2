package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dealgraph/internal/config"
	"dealgraph/internal/graph"
	"dealgraph/internal/health"
	"dealgraph/internal/telemetry"
)

func analyzeCmd() *cobra.Command {
	var asJSON bool
	var telemetryPath string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report hot leads, at-risk deals and suggested next actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := healthReport(cmd.Context(), telemetryPath)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(report)
			}
			printHealthReport(report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().StringVar(&telemetryPath, "telemetry", "", "Newline-delimited JSON engagement events")
	return cmd
}

func healthReport(ctx context.Context, telemetryPath string) (health.Report, error) {
	source, err := loadTelemetry(telemetryPath)
	if err != nil {
		return health.Report{}, err
	}
	sess, err := openSession(ctx)
	if err != nil {
		return health.Report{}, err
	}
	defer sess.close(ctx)
	return newOrchestrator(sess.graph, sess.cfg, source).Analyze(), nil
}

func loadTelemetry(path string) (telemetry.Source, error) {
	if path == "" {
		return nil, nil
	}
	events, err := telemetry.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("telemetry loaded", "path", path, "events", events.Len())
	return events, nil
}

func newOrchestrator(g *graph.Graph, cfg *config.ProjectConfig, source telemetry.Source) *health.Orchestrator {
	opts := health.Options{
		MaxHotLeads:       cfg.Health.MaxHotLeads,
		MaxRisks:          cfg.Health.MaxRisks,
		MaxActions:        cfg.Health.MaxActions,
		MaxActionsPerDeal: cfg.Health.MaxActionsPerDeal,
		Telemetry:         source,
		Logger:            logger,
	}
	return health.New(g, opts)
}

func printHealthReport(report health.Report) {
	fmt.Fprintf(os.Stdout, "Hot leads (%d):\n", len(report.HotLeads))
	printDeals(report.HotLeads)
	fmt.Fprintf(os.Stdout, "\nAt risk (%d):\n", len(report.Risks))
	printDeals(report.Risks)
	fmt.Fprintf(os.Stdout, "\nNext actions (%d):\n", len(report.SmartActions))
	for _, a := range report.SmartActions {
		who := ""
		if a.ContactID != "" {
			who = " with " + a.ContactID
		}
		fmt.Fprintf(os.Stdout, "  [%d] %s on %s%s: %s\n", a.Urgency, a.Kind, a.DealName, who, a.Reason)
	}
}

func printDeals(deals []health.DealHealth) {
	if len(deals) == 0 {
		fmt.Fprintln(os.Stdout, "  none")
		return
	}
	for _, h := range deals {
		fmt.Fprintf(os.Stdout, "  [%d] %s (%s, $%.0f, %d%%): %s\n",
			h.Urgency, h.Name, h.Stage, h.Value, h.Probability, strings.Join(h.Signals, "; "))
	}
}
