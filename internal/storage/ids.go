package storage

import (
	"encoding/json"

	"github.com/google/uuid"
)

// newID generates a new random identifier for store-assigned primary keys
// (Payment, RequestLog) when the caller leaves ID unset.
func newID() string {
	return uuid.NewString()
}

// jsonBytesOrNil converts a JSON-encoded byte slice into a string for JSONB
// columns; lib/pq sends []byte as bytea, which a jsonb column rejects.
func jsonBytesOrNil(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

// jsonUnmarshalMap decodes a JSONB column into a string map, treating a nil
// or empty payload as an empty (not nil) map.
func jsonUnmarshalMap(data []byte, out *map[string]string) error {
	if len(data) == 0 {
		*out = map[string]string{}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		m = map[string]string{}
	}
	*out = m
	return nil
}
