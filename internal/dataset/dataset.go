// Package dataset is a JSONL-backed gepa.DataLoader: records are read once
// at construction, keyed by a stable id field (or their line index when
// absent), and held ready for repeated ID-ordered or random-access fetch
// during a run.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/longregen/gepa/internal/gepa"
)

// Record is one line of the JSONL dataset file: an input to complete, the
// output it is scored against, and whether it is a positive (wanted) or
// negative (to-avoid) example.
type Record struct {
	ID       string `json:"id,omitempty"`
	Input    string `json:"input"`
	Output   string `json:"output"`
	Positive bool   `json:"positive"`
}

// Loader is an in-memory, JSONL-backed gepa.DataLoader.
type Loader struct {
	ids     []string
	records map[string]Record
}

// Load reads every line of path as a JSON Record. A record without an id
// field is assigned its 0-based line index as a stable string ID.
func Load(path string) (*Loader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	l := &Loader{records: make(map[string]Record)}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			line++
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("dataset: %s line %d: %w", path, line, err)
		}
		if rec.ID == "" {
			rec.ID = strconv.Itoa(line)
		}
		if _, exists := l.records[rec.ID]; exists {
			return nil, fmt.Errorf("dataset: %s line %d: duplicate id %q", path, line, rec.ID)
		}
		l.ids = append(l.ids, rec.ID)
		l.records[rec.ID] = rec
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
	}

	return l, nil
}

// AllIDs returns every record's ID in file order.
func (l *Loader) AllIDs() []string {
	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out
}

// Fetch returns the Instance for each requested ID, in the order given.
func (l *Loader) Fetch(ids []string) ([]gepa.Instance, error) {
	out := make([]gepa.Instance, len(ids))
	for i, id := range ids {
		rec, ok := l.records[id]
		if !ok {
			return nil, fmt.Errorf("dataset: unknown id %q", id)
		}
		out[i] = gepa.Instance{ID: id, Value: rec}
	}
	return out, nil
}

// Size returns the number of records loaded.
func (l *Loader) Size() int {
	return len(l.ids)
}

var _ gepa.DataLoader = (*Loader)(nil)
