package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// dateLayouts are tried in order when decoding a due date.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

// dueDate decodes an optional date field. A present null clears the date,
// an absent field leaves it alone.
type dueDate struct {
	set   bool
	value *time.Time
}

func (d *dueDate) UnmarshalJSON(data []byte) error {
	d.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dueDate: %w", err)
	}
	if raw == "" {
		d.value = nil
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			d.value = &t
			return nil
		}
	}
	return fmt.Errorf("dueDate: %q is not a date", raw)
}

// clears reports whether the request explicitly removed the date.
func (d dueDate) clears() bool {
	return d.set && d.value == nil
}
