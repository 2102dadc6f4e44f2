package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"dealgraph/internal/config"
)

type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewClient(ctx context.Context, cfg config.Neo4jConfig) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("creating neo4j driver: uri is required")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	return &Client{driver: driver, database: cfg.Database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

func (c *Client) EnsureIndexes(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT dealgraph_node_id IF NOT EXISTS
FOR (n:DealGraph) REQUIRE n.id IS UNIQUE`,
		`CREATE INDEX dealgraph_contact_company IF NOT EXISTS FOR (n:Contact) ON (n.company_id)`,
		`CREATE INDEX dealgraph_deal_stage IF NOT EXISTS FOR (n:Deal) ON (n.stage)`,
	}

	for _, stmt := range statements {
		if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		}); err != nil {
			return fmt.Errorf("ensuring indexes: %w", err)
		}
	}
	return nil
}
