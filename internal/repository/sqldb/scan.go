package sqldb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// timeLayouts are the text encodings a timestamp can come back in from SQLite.
// Plain columns are parsed by the driver, but aggregates such as MAX(created_at)
// have no declared type and arrive as TEXT.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// nullTime scans a nullable timestamp from either driver.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (nt *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	case time.Time:
		nt.Time, nt.Valid = v.UTC(), true
		return nil
	case string:
		return nt.parse(v)
	case []byte:
		return nt.parse(string(v))
	default:
		return fmt.Errorf("sqldb: cannot scan %T into timestamp", src)
	}
}

func (nt *nullTime) parse(s string) error {
	s = strings.TrimSpace(s)
	// time.Time.String() appends a monotonic clock reading; drop it.
	if i := strings.Index(s, " m="); i >= 0 {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			nt.Time, nt.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("sqldb: unrecognised timestamp %q", s)
}

// ptr returns nil for NULL.
func (nt nullTime) ptr() *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// timestamp is the canonical "now" written to the store: UTC, truncated to the
// microsecond resolution Postgres keeps, so values round-trip exactly.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// nextTimestamp returns a timestamp strictly after prev.
func nextTimestamp(prev time.Time) time.Time {
	now := timestamp()
	if !now.After(prev) {
		now = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}
