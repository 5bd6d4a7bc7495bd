package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSONL converts records into the JSONL file Load reads, one JSON
// object per line. Records are written as given: one with an empty ID is
// written without an "id" field, and Load assigns it an ID from its line
// position when reading.
func WriteJSONL(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("dataset: encode record %q: %w", rec.ID, err)
		}
	}
	return w.Flush()
}
