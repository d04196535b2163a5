package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/odyssey-erp/ledger/internal/shared"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, shared.Validation("Invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// OptionalDate parses an optional YYYY-MM-DD value.
func OptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// QueryDate reads an optional date query parameter.
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	return OptionalDate(r.URL.Query().Get(name))
}

// QueryBool reads a boolean query parameter, false when absent or malformed.
func QueryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// QueryInt reads an integer query parameter, def when absent or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
