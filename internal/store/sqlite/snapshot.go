package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dealgraph/internal/graph"
	"dealgraph/internal/store"
)

func (c *Client) SaveSnapshot(ctx context.Context, snap *graph.Snapshot) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	for i, n := range snap.Nodes {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encoding node %s: %w", n.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO nodes (id, kind, name, payload, position) VALUES (?, ?, ?, ?, ?)",
			n.ID, string(n.Kind), n.Name, string(payload), i,
		); err != nil {
			return fmt.Errorf("saving node %s: %w", n.ID, err)
		}
	}

	for i, e := range snap.Edges {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding edge %s: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (id, src_id, dst_id, rel_type, strength, confirmed, payload, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Source, e.Target, string(e.Type), e.Strength, e.Confirmed, string(payload), i,
		); err != nil {
			return fmt.Errorf("saving edge %s: %w", e.ID, err)
		}
	}

	for i, rec := range snap.Interactions {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding interaction %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interactions (id, contact_id, deal_id, type, occurred_at, payload, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.ContactID, rec.DealID, string(rec.Type), rec.Date.UTC().Format(time.RFC3339Nano), string(payload), i,
		); err != nil {
			return fmt.Errorf("saving interaction %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshot_meta (key, value) VALUES ('saved_at', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("recording snapshot time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (c *Client) LoadSnapshot(ctx context.Context) (*graph.Snapshot, error) {
	var savedAt string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM snapshot_meta WHERE key = 'saved_at'").Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot metadata: %w", err)
	}

	snap := &graph.Snapshot{}
	if err := loadPayloads(ctx, c.db, "SELECT payload FROM nodes ORDER BY position", &snap.Nodes); err != nil {
		return nil, fmt.Errorf("loading nodes: %w", err)
	}
	if err := loadPayloads(ctx, c.db, "SELECT payload FROM edges ORDER BY position", &snap.Edges); err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	if err := loadPayloads(ctx, c.db, "SELECT payload FROM interactions ORDER BY position", &snap.Interactions); err != nil {
		return nil, fmt.Errorf("loading interactions: %w", err)
	}
	return snap, nil
}

func loadPayloads[T any](ctx context.Context, db *sql.DB, query string, out *[]T) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("scanning payload: %w", err)
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		*out = append(*out, v)
	}
	return rows.Err()
}

func (c *Client) Stats(ctx context.Context) (store.Stats, error) {
	var stats store.Stats
	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM nodes", &stats.Nodes},
		{"SELECT COUNT(*) FROM edges", &stats.Edges},
		{"SELECT COUNT(*) FROM interactions", &stats.Interactions},
	}
	for _, q := range counts {
		if err := c.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return store.Stats{}, fmt.Errorf("counting rows: %w", err)
		}
	}

	var savedAt string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM snapshot_meta WHERE key = 'saved_at'").Scan(&savedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return store.Stats{}, fmt.Errorf("reading snapshot metadata: %w", err)
	default:
		stats.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
	}
	return stats, nil
}
