package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema runs the DDL as one multi-statement call, which PostgreSQL
// executes in an implicit transaction.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS nodes (
    id       TEXT PRIMARY KEY,
    kind     TEXT NOT NULL,
    name     TEXT NOT NULL DEFAULT '',
    payload  JSONB NOT NULL,
    position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
    id        TEXT PRIMARY KEY,
    src_id    TEXT NOT NULL,
    dst_id    TEXT NOT NULL,
    rel_type  TEXT NOT NULL,
    strength  DOUBLE PRECISION NOT NULL,
    confirmed BOOLEAN NOT NULL DEFAULT FALSE,
    payload   JSONB NOT NULL,
    position  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS interactions (
    id          TEXT PRIMARY KEY,
    contact_id  TEXT NOT NULL,
    deal_id     TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    payload     JSONB NOT NULL,
    position    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_meta (
    key      TEXT PRIMARY KEY,
    saved_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes (kind);
CREATE INDEX IF NOT EXISTS idx_edges_src ON edges (src_id);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges (dst_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges (rel_type);
CREATE INDEX IF NOT EXISTS idx_interactions_contact ON interactions (contact_id);
CREATE INDEX IF NOT EXISTS idx_interactions_deal ON interactions (deal_id);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
