package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dealgraph/internal/graph"
	"dealgraph/internal/store"
)

func (c *Client) SaveSnapshot(ctx context.Context, snap *graph.Snapshot) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, n := range snap.Nodes {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encoding node %s: %w", n.ID, err)
		}
		batch.Queue("INSERT INTO nodes (id, kind, name, payload, position) VALUES ($1, $2, $3, $4, $5)",
			n.ID, string(n.Kind), n.Name, payload, i)
	}
	for i, e := range snap.Edges {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding edge %s: %w", e.ID, err)
		}
		batch.Queue(`INSERT INTO edges (id, src_id, dst_id, rel_type, strength, confirmed, payload, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.Source, e.Target, string(e.Type), e.Strength, e.Confirmed, payload, i)
	}
	for i, rec := range snap.Interactions {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding interaction %s: %w", rec.ID, err)
		}
		batch.Queue(`INSERT INTO interactions (id, contact_id, deal_id, type, occurred_at, payload, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, rec.ContactID, rec.DealID, string(rec.Type), rec.Date, payload, i)
	}
	batch.Queue(`INSERT INTO snapshot_meta (key, saved_at) VALUES ('snapshot', now())
ON CONFLICT (key) DO UPDATE SET saved_at = EXCLUDED.saved_at`)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (c *Client) LoadSnapshot(ctx context.Context) (*graph.Snapshot, error) {
	var exists bool
	if err := c.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM snapshot_meta WHERE key = 'snapshot')").Scan(&exists); err != nil {
		return nil, fmt.Errorf("reading snapshot metadata: %w", err)
	}
	if !exists {
		return nil, store.ErrNoSnapshot
	}

	snap := &graph.Snapshot{}
	if err := loadPayloads(ctx, c, "SELECT payload FROM nodes ORDER BY position", &snap.Nodes); err != nil {
		return nil, fmt.Errorf("loading nodes: %w", err)
	}
	if err := loadPayloads(ctx, c, "SELECT payload FROM edges ORDER BY position", &snap.Edges); err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	if err := loadPayloads(ctx, c, "SELECT payload FROM interactions ORDER BY position", &snap.Interactions); err != nil {
		return nil, fmt.Errorf("loading interactions: %w", err)
	}
	return snap, nil
}

func loadPayloads[T any](ctx context.Context, c *Client, query string, out *[]T) error {
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	payloads, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return fmt.Errorf("scanning payloads: %w", err)
	}
	for _, payload := range payloads {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		*out = append(*out, v)
	}
	return nil
}

func (c *Client) Stats(ctx context.Context) (store.Stats, error) {
	var stats store.Stats
	err := c.pool.QueryRow(ctx, `
SELECT (SELECT COUNT(*) FROM nodes),
       (SELECT COUNT(*) FROM edges),
       (SELECT COUNT(*) FROM interactions)`,
	).Scan(&stats.Nodes, &stats.Edges, &stats.Interactions)
	if err != nil {
		return store.Stats{}, fmt.Errorf("counting rows: %w", err)
	}

	err = c.pool.QueryRow(ctx, "SELECT saved_at FROM snapshot_meta WHERE key = 'snapshot'").Scan(&stats.SavedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return store.Stats{}, fmt.Errorf("reading snapshot metadata: %w", err)
	}
	return stats, nil
}
