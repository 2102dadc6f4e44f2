package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dealgraph/internal/enrich"
	"dealgraph/internal/ingest"
)

var (
	ingestFixtures bool
	ingestEnrich   bool
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import CRM export files into the graph",
		RunE:  runIngest,
	}
	cmd.Flags().BoolVar(&ingestFixtures, "fixtures", false, "Import the built-in demo accounts first")
	cmd.Flags().BoolVar(&ingestEnrich, "enrich", false, "Run the profile enrichment pass after importing")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mapping, err := loadMapping()
	if err != nil {
		return err
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	result, err := ingest.Run(ctx, sess.cfg, mapping, sess.graph, ingest.Options{Fixtures: ingestFixtures, Logger: logger})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Ingestion complete.")
	fmt.Fprintf(os.Stdout, "  Nodes upserted:     %d\n", result.NodesUpserted)
	fmt.Fprintf(os.Stdout, "  Edges upserted:     %d\n", result.EdgesUpserted)
	fmt.Fprintf(os.Stdout, "  Interactions added: %d\n", result.InteractionsAdded)
	fmt.Fprintf(os.Stdout, "  Records dropped:    %d\n", result.Dropped)
	fmt.Fprintf(os.Stdout, "  Files processed:    %d\n", result.FilesProcessed)
	fmt.Fprintf(os.Stdout, "  Files skipped:      %d\n", result.FilesSkipped)

	if ingestEnrich {
		if !sess.cfg.Enrichment.Enabled() {
			return fmt.Errorf("--enrich needs enrichment.endpoint in %s", configPath)
		}
		client, err := enrich.NewHTTPClient(sess.cfg.Enrichment, enrich.WithClientLogger(logger))
		if err != nil {
			return err
		}
		enricher := enrich.NewEnricher(client,
			enrich.WithLogger(logger),
			enrich.WithConcurrency(sess.cfg.Enrichment.Concurrency),
		)
		report, err := enricher.Run(ctx, sess.graph)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "\nEnrichment complete.")
		fmt.Fprintf(os.Stdout, "  Contacts:        %d\n", report.Contacts)
		fmt.Fprintf(os.Stdout, "  Profiles merged: %d\n", report.ProfilesMerged)
		fmt.Fprintf(os.Stdout, "  Edges added:     %d\n", report.EdgesAdded)
		fmt.Fprintf(os.Stdout, "  Duplicates:      %d\n", report.Duplicates)
		fmt.Fprintf(os.Stdout, "  Failed lookups:  %d\n", report.Failed)
	}

	if err := sess.save(ctx); err != nil {
		return err
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("ingestion completed with errors")
	}

	return nil
}
