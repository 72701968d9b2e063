package catalog

import (
	"bytes"
	"encoding/json"
)

// Extra holds members not declared by a resource type, keyed by JSON name.
// Values are kept as raw JSON so they round-trip unchanged.
type Extra map[string]json.RawMessage

// marshalOpen encodes known (an alias type without custom marshalers) and
// merges extra members. Declared members win over extras of the same name,
// and null extras are omitted.
func marshalOpen(known any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, declared := members[k]; !declared && !isNull(v) {
			members[k] = v
		}
	}
	return json.Marshal(members)
}

// unmarshalOpen decodes data into known and returns every non-null member
// whose name is not in declared.
func unmarshalOpen(data []byte, known any, declared []string) (Extra, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	for _, k := range declared {
		delete(members, k)
	}
	for k, v := range members {
		if isNull(v) {
			delete(members, k)
		}
	}
	if len(members) == 0 {
		return nil, nil
	}
	return Extra(members), nil
}

func isNull(v json.RawMessage) bool {
	return v == nil || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
