package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NullableUUID is an optional foreign key in a partial update.
// Valid=false means the key was absent, Valid=true with a nil Value means "unlink".
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

// SetUUID links the field to id.
func SetUUID(id uuid.UUID) NullableUUID {
	return NullableUUID{Valid: true, Value: &id}
}

// NullUUID clears the field.
func NullUUID() NullableUUID {
	return NullableUUID{Valid: true}
}

// Clears reports whether the update unlinks the reference.
func (n NullableUUID) Clears() bool {
	return n.Valid && n.Value == nil
}

// Target returns the id being linked, if any.
func (n NullableUUID) Target() (uuid.UUID, bool) {
	if !n.Valid || n.Value == nil {
		return uuid.Nil, false
	}
	return *n.Value, true
}

func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return nil
	case bytes.Equal(data, []byte("null")):
		*n = NullUUID()
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("reference id must be a string or null: %w", err)
	}
	// the UI sends "" for an emptied select box
	if raw == "" {
		*n = NullUUID()
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("reference id %q: %w", raw, err)
	}
	*n = SetUUID(id)
	return nil
}

func (n NullableUUID) MarshalJSON() ([]byte, error) {
	if id, ok := n.Target(); ok {
		return json.Marshal(id.String())
	}
	return []byte("null"), nil
}
