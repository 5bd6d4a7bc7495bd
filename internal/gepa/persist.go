package gepa

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// stateSchemaVersion guards against decoding a state file written by an
// incompatible earlier layout. Bump it whenever persistedState's shape
// changes in a way an old decoder can't read forward-compatibly.
const stateSchemaVersion = 2

const stateFileName = "gepa_state.msgpack"

// persistedState is the on-disk projection of State. It's a separate type
// (rather than encoding State directly) so the wire schema can diverge
// from the in-memory representation without forcing a migration every
// time an in-memory field is renamed.
type persistedState struct {
	SchemaVersion int                        `msgpack:"schema_version"`
	Programs      []Candidate                `msgpack:"programs"`
	Parents       map[int][]int              `msgpack:"parents"`
	ValSubscores  map[int]map[string]float64 `msgpack:"val_subscores"`
	ParetoScore   map[string]float64         `msgpack:"pareto_score"`
	ParetoSet     ParetoSet                  `msgpack:"pareto_set"`
	ComponentNames []string                  `msgpack:"component_names"`
	NextComponentFor map[int]int             `msgpack:"next_component_for"`
	I             int                        `msgpack:"i"`
	TotalEvals    int                        `msgpack:"total_evals"`
	FullValRuns   int                        `msgpack:"full_val_runs"`
}

func toPersisted(s *State) persistedState {
	return persistedState{
		SchemaVersion:    stateSchemaVersion,
		Programs:         s.Programs,
		Parents:          s.Parents,
		ValSubscores:     s.ValSubscores,
		ParetoScore:      s.ParetoScore,
		ParetoSet:        s.ParetoSet,
		ComponentNames:   s.ComponentNames,
		NextComponentFor: s.NextComponentFor,
		I:                s.I,
		TotalEvals:       s.TotalEvals,
		FullValRuns:      s.FullValRuns,
	}
}

func fromPersisted(p persistedState) *State {
	return &State{
		Programs:         p.Programs,
		Parents:          p.Parents,
		ValSubscores:     p.ValSubscores,
		ParetoScore:      p.ParetoScore,
		ParetoSet:        p.ParetoSet,
		ComponentNames:   p.ComponentNames,
		NextComponentFor: p.NextComponentFor,
		I:                p.I,
		TotalEvals:       p.TotalEvals,
		FullValRuns:      p.FullValRuns,
	}
}

// EncodeState serializes s into the same msgpack-encoded, schema-versioned
// wire format the file-based store uses. Alternative run-stores (e.g. the
// Postgres store) use this instead of duplicating the encoding.
func EncodeState(s *State) ([]byte, error) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(toPersisted(s)); err != nil {
		return nil, NewRunError(ErrPersistSave, err.Error())
	}
	return buf.Bytes(), nil
}

// DecodeState parses data written by EncodeState, rejecting an unknown
// schema version the same way the file-based loader does.
func DecodeState(data []byte) (*State, error) {
	var p persistedState
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, NewRunError(ErrPersistLoad, err.Error())
	}
	if p.SchemaVersion != stateSchemaVersion {
		return nil, NewRunError(ErrUnknownSchemaVersion, "persisted state schema version mismatch")
	}
	return fromPersisted(p), nil
}

// saveState writes s to runDir/gepa_state.msgpack, replacing any existing
// file atomically (write to a temp file, then rename).
func saveState(runDir string, s *State) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return NewRunError(ErrPersistSave, err.Error())
	}

	data, err := EncodeState(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(runDir, stateFileName+".tmp-*")
	if err != nil {
		return NewRunError(ErrPersistSave, err.Error())
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return NewRunError(ErrPersistSave, err.Error())
	}
	if err := tmp.Close(); err != nil {
		return NewRunError(ErrPersistSave, err.Error())
	}

	target := filepath.Join(runDir, stateFileName)
	if err := os.Rename(tmpPath, target); err != nil {
		return NewRunError(ErrPersistSave, err.Error())
	}
	return nil
}

// loadState reads runDir/gepa_state.msgpack. Returns an error satisfying
// os.IsNotExist when no run has been persisted there yet, so callers can
// distinguish "fresh run" from "corrupt/incompatible state".
func loadState(runDir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(runDir, stateFileName))
	if err != nil {
		return nil, err
	}
	return DecodeState(data)
}
