package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"dealgraph/internal/graph"
	"dealgraph/internal/mcp"
	"dealgraph/internal/telemetry"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

var refreshEvery time.Duration

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	cmd.Flags().DurationVar(&refreshEvery, "refresh", time.Hour, "How often to recompute influence and recency scores, 0 disables")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	var source telemetry.Source
	if url := sess.cfg.Telemetry.NATSURL; url != "" {
		nc, err := nats.Connect(url, nats.Name("dealgraph"))
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer nc.Drain()

		events := telemetry.NewLog()
		if _, err := telemetry.Subscribe(ctx, nc, sess.cfg.Telemetry.Subject, events, logger); err != nil {
			return err
		}
		source = events
	}

	if refreshEvery > 0 {
		go refreshScores(ctx, sess.graph, refreshEvery)
	}

	server := mcp.NewServer(sess.graph, newOrchestrator(sess.graph, sess.cfg, source), version,
		mcp.WithPersist(sess.save),
		mcp.WithLogger(logger),
	)
	return server.Run(ctx, &sdk.StdioTransport{})
}

// refreshScores recomputes derived scores so recency decay advances while
// the server runs without new writes.
func refreshScores(ctx context.Context, g *graph.Graph, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Recompute()
			logger.Debug("scores recomputed")
		}
	}
}
