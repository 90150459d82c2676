package cda

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// TimestampLayout renders YYYYMMDDHHMMSS followed by the UTC offset.
	TimestampLayout = "20060102150405-0700"
	// DefaultDate stands in for a missing clinical date.
	DefaultDate = "19000101"
)

// Clock returns the current instant.
type Clock func() time.Time

// IDSource returns a fresh document identifier.
type IDSource func() string

// Synthesizer produces the values a document needs that no input supplies:
// identifiers and timestamps. It is safe for concurrent use as long as its
// clock and id source are.
type Synthesizer struct {
	now   Clock
	newID IDSource
}

// NewSynthesizer creates a synthesizer. Nil arguments select the wall clock
// and random version-4 UUIDs.
func NewSynthesizer(now Clock, newID IDSource) *Synthesizer {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	return &Synthesizer{now: now, newID: newID}
}

// GenerateDocumentID returns a new unique document identifier.
func (s *Synthesizer) GenerateDocumentID() string {
	return s.newID()
}

// Now reads the clock once.
func (s *Synthesizer) Now() time.Time {
	return s.now()
}

// CurrentTimestamp formats the current local time. An empty layout selects
// TimestampLayout.
func (s *Synthesizer) CurrentTimestamp(layout string) string {
	return FormatTimestamp(s.now(), layout)
}

// FormatTimestamp formats t in its own location. An empty layout selects
// TimestampLayout.
func FormatTimestamp(t time.Time, layout string) string {
	if layout == "" {
		layout = TimestampLayout
	}
	return t.Format(layout)
}

// CompositeDateTime joins a study date and time into a point in time with
// at least 14 digits. A missing date becomes DefaultDate.
func CompositeDateTime(date, clock string) string {
	return NormalizeDate(date, DefaultDate) + NormalizeTime(clock)
}

// NormalizeDate reduces raw to exactly eight digits (YYYYMMDD). Separators
// are dropped, a bare year or year-month is padded with "01", and anything
// with fewer than four digits becomes fallback.
func NormalizeDate(raw, fallback string) string {
	d := digits(raw)
	switch {
	case len(d) < 4:
		return fallback
	case len(d) < 6:
		return d[:4] + "0101"
	case len(d) < 8:
		return d[:6] + "01"
	default:
		return d[:8]
	}
}

// NormalizeTime reduces raw to exactly six digits (HHMMSS). Fractional
// seconds are discarded, HHMM gains "00" seconds, and anything shorter
// becomes midnight.
func NormalizeTime(raw string) string {
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}
	d := digits(raw)
	switch {
	case len(d) >= 6:
		return d[:6]
	case len(d) >= 4:
		return d[:4] + "00"
	default:
		return "000000"
	}
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
