package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dealgraph/internal/validate"
)

func validateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the saved graph for structural problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print issues as JSON")
	return cmd
}

func runValidate(cmd *cobra.Command, asJSON bool) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	report, err := validate.Run(sess.graph.Snapshot())
	if err != nil {
		return err
	}

	if asJSON {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printReport(os.Stdout, report)
	}

	if n := report.Errors(); n > 0 {
		return fmt.Errorf("validation found %d errors", n)
	}
	return nil
}

func printReport(out io.Writer, report *validate.Report) {
	if len(report.Issues) == 0 {
		fmt.Fprintln(out, "Graph is consistent.")
		return
	}
	sections := []struct {
		title    string
		severity validate.Severity
		count    int
	}{
		{"Errors", validate.SeverityError, report.Errors()},
		{"Warnings", validate.SeverityWarn, report.Warnings()},
	}
	for i, sec := range sections {
		if sec.count == 0 {
			continue
		}
		if i > 0 && report.Errors() > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s (%d):\n", sec.title, sec.count)
		for _, issue := range report.Issues {
			if issue.Severity != sec.severity {
				continue
			}
			subject := issue.Node
			if issue.Edge != "" {
				subject = "edge " + issue.Edge
			}
			fmt.Fprintf(out, "  - %s: %s [%s]\n", subject, issue.Message, issue.Code)
		}
	}
}
