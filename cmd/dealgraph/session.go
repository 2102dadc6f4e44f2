package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"dealgraph/internal/config"
	"dealgraph/internal/graph"
	"dealgraph/internal/store"
	"dealgraph/internal/store/postgres"
	"dealgraph/internal/store/sqlite"
)

// session is a graph restored from the snapshot store for one command.
type session struct {
	cfg   *config.ProjectConfig
	store store.Store
	graph *graph.Graph
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close(ctx)
		return nil, err
	}

	g := graph.New(
		graph.WithRecencyWindow(cfg.Scoring.RecencyWindow()),
		graph.WithLogger(logger),
	)
	snap, err := st.LoadSnapshot(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		logger.Debug("no saved graph, starting empty")
	case err != nil:
		st.Close(ctx)
		return nil, err
	default:
		if err := g.Restore(snap); err != nil {
			st.Close(ctx)
			return nil, fmt.Errorf("restoring graph: %w", err)
		}
		logger.Debug("graph restored", "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	}

	return &session{cfg: cfg, store: st, graph: g}, nil
}

func (s *session) save(ctx context.Context) error {
	if err := s.store.SaveSnapshot(ctx, s.graph.Snapshot()); err != nil {
		return err
	}
	logger.Debug("graph saved")
	return nil
}

func (s *session) close(ctx context.Context) {
	if err := s.store.Close(ctx); err != nil {
		logger.Warn("closing store", "err", err)
	}
}

func openStore(ctx context.Context, dsn string) (store.Store, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		c, err := sqlite.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return c, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		c, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported database dsn %q, expected sqlite:// or postgres://", dsn)
}

func loadMapping() (*config.Mapping, error) {
	if _, err := os.Stat(mappingPath); errors.Is(err, os.ErrNotExist) {
		logger.Debug("mapping file not found, using built-in providers", "path", mappingPath)
		return config.DefaultMapping(), nil
	}
	return config.LoadMapping(mappingPath)
}
