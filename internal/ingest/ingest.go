package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"dealgraph/internal/config"
	"dealgraph/internal/graph"
	"dealgraph/internal/parser"
)

type Options struct {
	// Fixtures imports the built-in demo batch before any configured source.
	Fixtures bool
	Logger   *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

// Run imports every batch file under the configured sources. Per-file
// problems are collected in Result.Errors; configuration problems stop the
// run with an *ImportError.
func Run(ctx context.Context, cfg *config.ProjectConfig, mapping *config.Mapping, g *graph.Graph, opts Options) (*Result, error) {
	if len(cfg.Sources) == 0 && !opts.Fixtures {
		return nil, &ImportError{Err: ErrNothingToImport}
	}
	logger := opts.logger()
	result := &Result{}

	if opts.Fixtures {
		native, _ := config.DefaultMapping().ProviderByName("native")
		res, err := Import(ctx, g, native, Fixtures(g.Now()), opts)
		result.merge(res)
		if err != nil {
			return result, fmt.Errorf("importing fixtures: %w", err)
		}
		logger.Info("imported fixtures", "nodes", res.NodesUpserted, "edges", res.EdgesUpserted)
	}

	for _, src := range cfg.Sources {
		if _, ok := mapping.ProviderByName(src.Provider); !ok {
			return nil, &ImportError{Source: src.Name, Err: fmt.Errorf("%w: %q", ErrUnknownProvider, src.Provider)}
		}
		files, err := walkBatchFiles(src.Paths, cfg.Exclude)
		if err != nil {
			return nil, &ImportError{Source: src.Name, Err: fmt.Errorf("walking files: %w", err)}
		}

		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			doc, err := parser.ParseFile(path)
			if err != nil {
				if errors.Is(err, parser.ErrEmptyDocument) {
					result.FilesSkipped++
					continue
				}
				result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
				continue
			}

			batch := BatchFromDocument(doc, src.Provider)
			provider, ok := mapping.ProviderByName(batch.Provider)
			if !ok {
				result.Errors = append(result.Errors, fmt.Errorf("importing %s: %w: %q", path, ErrUnknownProvider, batch.Provider))
				continue
			}

			res, err := Import(ctx, g, provider, batch, opts)
			result.merge(res)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, fmt.Errorf("importing %s: %w", path, ctxErr)
			}
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("importing %s: %w", path, err))
				continue
			}
			result.FilesProcessed++
			logger.Debug("imported file", "path", path, "source", src.Name, "nodes", res.NodesUpserted, "dropped", res.Dropped)
		}
	}

	return result, nil
}

func walkBatchFiles(roots []string, excludes []string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && isExcluded(path, excluded) {
				return filepath.SkipDir
			}
			if d.IsDir() {
				return nil
			}
			if !parser.Supported(d.Name()) {
				return nil
			}
			if isExcluded(path, excluded) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// isExcluded matches a path against exclude entries, either as a directory
// prefix or as a glob on the path or its base name.
func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
		if ok, _ := filepath.Match(exclude, clean); ok {
			return true
		}
		if ok, _ := filepath.Match(exclude, filepath.Base(clean)); ok {
			return true
		}
	}
	return false
}
