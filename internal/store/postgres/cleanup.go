package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Clear removes the saved snapshot. The schema is kept.
func (c *Client) Clear(ctx context.Context) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := clearTables(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM snapshot_meta"); err != nil {
		return fmt.Errorf("clearing snapshot metadata: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}
	return nil
}

func clearTables(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, "TRUNCATE interactions, edges, nodes"); err != nil {
		return fmt.Errorf("clearing snapshot tables: %w", err)
	}
	return nil
}
