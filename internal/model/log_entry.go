package model

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// LogEntry describes one intercepted request. It lives for a single
// request/response cycle and is never stored.
type LogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	ClientIP     string    `json:"ip"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	URL          string    `json:"url"`
	Status       int       `json:"status"`
	ResponseTime string    `json:"responseTime"`
	UserAgent    string    `json:"userAgent"`
	Referer      string    `json:"referer"`
}

// FormattedTimestamp returns the entry timestamp in TimestampLayout.
func (e *LogEntry) FormattedTimestamp() string {
	return e.Timestamp.UTC().Format(TimestampLayout)
}

// MarshalZerologObject writes the nine record fields flat onto the event.
func (e *LogEntry) MarshalZerologObject(enc *zerolog.Event) {
	enc.Str("timestamp", e.FormattedTimestamp()).
		Str("ip", e.ClientIP).
		Str("method", e.Method).
		Str("path", e.Path).
		Str("url", e.URL).
		Int("status", e.Status).
		Str("responseTime", e.ResponseTime).
		Str("userAgent", e.UserAgent).
		Str("referer", e.Referer)
}

// Line is the single-line human-readable form used outside production.
func (e *LogEntry) Line() string {
	return fmt.Sprintf("[%s] %s %s %s %d %s",
		e.FormattedTimestamp(), e.ClientIP, e.Method, e.Path, e.Status, e.ResponseTime)
}
