package jsonutil

import (
	"encoding/json"
	"fmt"
)

// FlexibleString decodes a JSON value that should be a string but may arrive
// as a number or boolean. JSON null and empty input yield nil so callers can
// keep "no value" distinct from "".
func FlexibleString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n == float64(int64(n)) {
			s = fmt.Sprintf("%d", int64(n))
		} else {
			s = fmt.Sprintf("%g", n)
		}
		return &s
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		s = fmt.Sprintf("%t", b)
		return &s
	}

	s = string(raw)
	return &s
}

// FlexibleStringValue is FlexibleString with nil collapsed to "".
func FlexibleStringValue(raw json.RawMessage) string {
	if s := FlexibleString(raw); s != nil {
		return *s
	}
	return ""
}
