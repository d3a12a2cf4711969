package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ParseLegacy reads progress exported from the browser app. It accepts the
// raw localStorage value (a JSON array) or an object keyed by storage key
// whose value is the array or its JSON-encoded string.
func ParseLegacy(r io.Reader, namespace string) ([]Record, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy data: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty input", ErrCorrupt)
	}

	var recs []Record
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &recs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return validLegacy(recs), nil
	}

	var dump map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &dump); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	raw, ok := dump[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: key %q not found", ErrNotFound, namespace)
	}

	// localStorage values are strings holding JSON.
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return validLegacy(recs), nil
}

func validLegacy(recs []Record) []Record {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if rec.PuzzleID == "" {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Import saves records into the store and returns how many were written.
func (s *Store) Import(recs []Record) int {
	n := 0
	for _, rec := range recs {
		if s.Save(rec) {
			n++
		}
	}
	s.log.Info("Imported puzzle progress", "records", n, "skipped", len(recs)-n)
	return n
}
