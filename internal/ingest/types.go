package ingest

import (
	"errors"
	"fmt"

	"dealgraph/internal/config"
	"dealgraph/internal/parser"
)

// ExternalRecord is one CRM record with provider-native field names.
type ExternalRecord struct {
	Kind     config.RecordKind
	Provider string
	Fields   map[string]any
}

// Batch groups the records of one import. Reporting lines are only resolved
// between contacts of the same batch.
type Batch struct {
	Provider     string
	Companies    []ExternalRecord
	Contacts     []ExternalRecord
	Deals        []ExternalRecord
	Interactions []ExternalRecord
}

func (b Batch) Len() int {
	return len(b.Companies) + len(b.Contacts) + len(b.Deals) + len(b.Interactions)
}

// BatchFromDocument wraps a parsed export file. The document's own provider
// wins over the fallback named by the source configuration.
func BatchFromDocument(doc *parser.Document, fallbackProvider string) Batch {
	provider := doc.Provider
	if provider == "" {
		provider = fallbackProvider
	}
	wrap := func(kind config.RecordKind, rows []map[string]any) []ExternalRecord {
		out := make([]ExternalRecord, 0, len(rows))
		for _, row := range rows {
			out = append(out, ExternalRecord{Kind: kind, Provider: provider, Fields: row})
		}
		return out
	}
	return Batch{
		Provider:     provider,
		Companies:    wrap(config.RecordCompany, doc.Companies),
		Contacts:     wrap(config.RecordContact, doc.Contacts),
		Deals:        wrap(config.RecordDeal, doc.Deals),
		Interactions: wrap(config.RecordInteraction, doc.Interactions),
	}
}

type Result struct {
	NodesUpserted     int
	EdgesUpserted     int
	InteractionsAdded int
	Dropped           int
	FilesProcessed    int
	FilesSkipped      int
	Errors            []error
}

func (r *Result) merge(other *Result) {
	if other == nil {
		return
	}
	r.NodesUpserted += other.NodesUpserted
	r.EdgesUpserted += other.EdgesUpserted
	r.InteractionsAdded += other.InteractionsAdded
	r.Dropped += other.Dropped
	r.FilesProcessed += other.FilesProcessed
	r.FilesSkipped += other.FilesSkipped
	r.Errors = append(r.Errors, other.Errors...)
}

var (
	ErrNothingToImport = errors.New("no sources configured and fixtures not requested")
	ErrUnknownProvider = errors.New("unknown provider")
)

// ImportError reports a configuration problem that stops an import before
// any record is read.
type ImportError struct {
	Source string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("import: %v", e.Err)
	}
	return fmt.Sprintf("import source %s: %v", e.Source, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
