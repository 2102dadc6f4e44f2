package neo4j

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"dealgraph/internal/graph"
)

type ExportResult struct {
	Nodes         int
	Relationships int
}

// Exporter writes graph snapshots into Neo4j for visualization. Every
// exported node carries the DealGraph label so a re-export can replace it.
type Exporter struct {
	client *Client
	logger *log.Logger
}

func NewExporter(client *Client, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Default()
	}
	return &Exporter{client: client, logger: logger}
}

// Export replaces the previously exported graph with snap in one write
// transaction.
func (e *Exporter) Export(ctx context.Context, snap *graph.Snapshot) (ExportResult, error) {
	nodes, err := nodeRows(snap.Nodes)
	if err != nil {
		return ExportResult{}, fmt.Errorf("exporting graph: %w", err)
	}
	edges, err := edgeRows(snap.Edges)
	if err != nil {
		return ExportResult{}, fmt.Errorf("exporting graph: %w", err)
	}

	session := e.client.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: e.client.database})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var res ExportResult
		if _, err := tx.Run(ctx, `MATCH (n:DealGraph) DETACH DELETE n`, nil); err != nil {
			return nil, err
		}

		for _, label := range sortedKeys(nodes) {
			query := fmt.Sprintf(`
UNWIND $rows AS row
MERGE (n:DealGraph {id: row.id})
SET n += row.props, n:%s
`, label)
			if _, err := tx.Run(ctx, query, map[string]any{"rows": nodes[label]}); err != nil {
				return nil, fmt.Errorf("writing %s nodes: %w", label, err)
			}
			res.Nodes += len(nodes[label])
		}

		for _, relType := range sortedKeys(edges) {
			query := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (a:DealGraph {id: row.source})
MATCH (b:DealGraph {id: row.target})
MERGE (a)-[r:%s {id: row.props.id}]->(b)
SET r += row.props
`, relType)
			if _, err := tx.Run(ctx, query, map[string]any{"rows": edges[relType]}); err != nil {
				return nil, fmt.Errorf("writing %s relationships: %w", relType, err)
			}
			res.Relationships += len(edges[relType])
		}
		return res, nil
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("exporting graph: %w", err)
	}

	res := result.(ExportResult)
	e.logger.Info("exported graph to neo4j", "nodes", res.Nodes, "relationships", res.Relationships)
	return res, nil
}

// Counts reports how many exported nodes and relationships Neo4j holds.
func (e *Exporter) Counts(ctx context.Context) (ExportResult, error) {
	session := e.client.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: e.client.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (n:DealGraph)
OPTIONAL MATCH (n)-[r]->(:DealGraph)
RETURN count(DISTINCT n) AS nodes, count(r) AS relationships`, nil)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		nodes, _ := record.Get("nodes")
		rels, _ := record.Get("relationships")
		return ExportResult{Nodes: int(nodes.(int64)), Relationships: int(rels.(int64))}, nil
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("counting exported graph: %w", err)
	}
	return result.(ExportResult), nil
}
