package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Load appends newline-delimited JSON events read from r and returns how
// many were added. Blank lines are skipped; the first bad line stops the
// load.
func (l *Log) Load(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	n, line := 0, 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		if err := l.Ingest(data); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading events: %w", err)
	}
	return n, nil
}

func LoadFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry file: %w", err)
	}
	defer f.Close()

	l := NewLog()
	if _, err := l.Load(f); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return l, nil
}

// WriteEvent appends e to w as one JSON line.
func WriteEvent(w io.Writer, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}
