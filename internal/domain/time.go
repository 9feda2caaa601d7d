package domain

import (
	"strings"
	"time"
)

// ISOLayout matches the millisecond UTC layout providers and the cache use.
const ISOLayout = "2006-01-02T15:04:05.000Z"

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
}

// ParseTime is the single comparable representation for CreatedAt and
// ExpireAt. Empty or unparsable values return the zero time, which sorts
// before every real date.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// FormatTime renders t in ISOLayout.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISOLayout)
}

// FormatUnix renders a unix timestamp in seconds in ISOLayout.
func FormatUnix(sec int64) string {
	return FormatTime(time.Unix(sec, 0))
}
