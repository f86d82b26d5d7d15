package util

import (
	"encoding/json"
	"fmt"
)

// UnmarshalWithKind decodes data into target, first checking that the
// document's "kind" field equals expectedKind. target must be a pointer.
func UnmarshalWithKind(data []byte, target any, expectedKind string) error {
	var probe struct {
		Kind string `json:"kind"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if probe.Kind != expectedKind {
		return fmt.Errorf("cannot decode kind '%s' as kind '%s'", probe.Kind, expectedKind)
	}

	return json.Unmarshal(data, target)
}
