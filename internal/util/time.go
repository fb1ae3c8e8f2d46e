package util

import (
	"fmt"
	"strings"
	"time"
)

// ISODate is the canonical calendar form of release dates.
const ISODate = "2006-01-02"

// IsISODate reports whether s is already in YYYY-MM-DD form.
func IsISODate(s string) bool {
	if len(s) != len(ISODate) {
		return false
	}
	_, err := time.Parse(ISODate, s)
	return err == nil
}

// CanonicalDate parses value with the first matching layout and formats it
// as YYYY-MM-DD. An ISO value is returned unchanged.
func CanonicalDate(value string, layouts []string) (string, error) {
	value = strings.TrimSpace(value)
	if IsISODate(value) {
		return value, nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(ISODate), nil
		}
	}
	return "", fmt.Errorf("no layout matches %q", value)
}
