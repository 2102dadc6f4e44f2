package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Clear removes the saved snapshot. The schema is kept.
func (c *Client) Clear(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_meta"); err != nil {
		return fmt.Errorf("clearing snapshot metadata: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}
	return nil
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"interactions", "edges", "nodes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}
