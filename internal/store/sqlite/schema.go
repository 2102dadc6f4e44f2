package sqlite

import (
	"context"
	"fmt"
	"strings"
)

const ddl = `
CREATE TABLE IF NOT EXISTS nodes (
	id       TEXT PRIMARY KEY,
	kind     TEXT NOT NULL,
	name     TEXT NOT NULL DEFAULT '',
	payload  TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
	id        TEXT PRIMARY KEY,
	src_id    TEXT NOT NULL,
	dst_id    TEXT NOT NULL,
	rel_type  TEXT NOT NULL,
	strength  REAL NOT NULL,
	confirmed INTEGER NOT NULL DEFAULT 0,
	payload   TEXT NOT NULL,
	position  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS interactions (
	id          TEXT PRIMARY KEY,
	contact_id  TEXT NOT NULL,
	deal_id     TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	occurred_at TEXT NOT NULL,
	payload     TEXT NOT NULL,
	position    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes (kind);
CREATE INDEX IF NOT EXISTS idx_edges_src ON edges (src_id);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges (dst_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges (rel_type);
CREATE INDEX IF NOT EXISTS idx_interactions_contact ON interactions (contact_id);
CREATE INDEX IF NOT EXISTS idx_interactions_deal ON interactions (deal_id);
`

func (c *Client) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
