package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is one CRM export file: record lists keyed by section, with
// provider-native field names left untouched.
type Document struct {
	Provider     string
	Companies    []map[string]any
	Contacts     []map[string]any
	Deals        []map[string]any
	Interactions []map[string]any
	SourceFile   string
}

func (d *Document) Len() int {
	return len(d.Companies) + len(d.Contacts) + len(d.Deals) + len(d.Interactions)
}

var (
	ErrEmptyDocument     = errors.New("document has no records")
	ErrInvalidYAML       = errors.New("invalid YAML document")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

var sections = []string{"companies", "contacts", "deals", "interactions"}

// Supported reports whether ParseFile accepts the file's extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func ParseFile(path string) (*Document, error) {
	if !Supported(path) {
		return nil, ErrUnsupportedFormat
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.SourceFile = path
	return doc, nil
}

// Parse decodes a YAML or JSON export. JSON input is accepted as the YAML
// subset it is.
func Parse(content []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(content, "\ufeff\n\r\t ")
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}

	var raw map[string]any
	if err := yaml.Unmarshal(trimmed, &raw); err != nil {
		return nil, ErrInvalidYAML
	}

	doc := &Document{}
	if v, ok := raw["provider"]; ok {
		provider, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("provider must be a string")
		}
		doc.Provider = strings.TrimSpace(provider)
	}

	for _, section := range sections {
		records, err := parseRecords(section, raw[section])
		if err != nil {
			return nil, err
		}
		switch section {
		case "companies":
			doc.Companies = records
		case "contacts":
			doc.Contacts = records
		case "deals":
			doc.Deals = records
		case "interactions":
			doc.Interactions = records
		}
	}

	if doc.Len() == 0 {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

func parseRecords(section string, value any) ([]map[string]any, error) {
	if value == nil {
		return nil, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list", section)
	}
	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s record %d must be a map", section, i)
		}
		records = append(records, record)
	}
	return records, nil
}
