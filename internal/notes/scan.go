package notes

import (
	"fmt"
	"time"
)

// SQLite hands back text for columns it cannot attach a declared type to,
// RETURNING columns included.
var textTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// scanTime scans a timestamp column into t, normalised to UTC.
type scanTime struct {
	t *time.Time
}

func (s scanTime) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*s.t = x.UTC()
		return nil
	case string:
		return s.parse(x)
	case []byte:
		return s.parse(string(x))
	default:
		return fmt.Errorf("notes: cannot scan %T into time.Time", v)
	}
}

func (s scanTime) parse(v string) error {
	for _, layout := range textTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			*s.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("notes: unrecognised timestamp %q", v)
}
