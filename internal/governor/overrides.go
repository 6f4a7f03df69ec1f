package governor

import (
	"encoding/json"
	"fmt"
)

// Overrides decodes raw over a deep copy of base. Keys missing from raw keep
// base's values; unknown keys are ignored so one override object can feed
// several components.
func Overrides[T any](base T, raw json.RawMessage) (T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}
	data, err := json.Marshal(base)
	if err != nil {
		return base, fmt.Errorf("copy config: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return base, fmt.Errorf("copy config: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("%w: config override: %v", ErrInvalidRequest, err)
	}
	return out, nil
}
