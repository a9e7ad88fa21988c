// Package timewindow resolves requested time bounds into the upstream
// query window: granularity, filter semantics, and the CDN dataset that
// serves each granularity.
package timewindow

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Granularity selects the time bucketing of an upstream query.
type Granularity int

const (
	Hourly Granularity = iota
	Daily
)

func (g Granularity) String() string {
	if g == Daily {
		return "daily"
	}
	return "hourly"
}

// longTermThreshold is the window age beyond which queries switch to
// day-grouped datasets and date-only filter bounds.
const longTermThreshold = 72 * time.Hour

// defaultSpan is the window used when a bound is missing or malformed.
const defaultSpan = 24 * time.Hour

// acceptedLayouts are the formats a caller may supply bounds in.
var acceptedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Window is the resolved query window for one request.
type Window struct {
	Start       time.Time
	End         time.Time
	Granularity Granularity
	LongTerm    bool
}

// Resolver turns raw request bounds into a Window. The clock is
// injectable so that the now-relative rules are testable.
type Resolver struct {
	clock clockwork.Clock
}

// NewResolver creates a resolver on the given clock. A nil clock uses
// the real one.
func NewResolver(clock clockwork.Clock) *Resolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Resolver{clock: clock}
}

// Resolve computes the window for the requested bounds. Malformed or
// missing bounds are defaulted (end=now, start=now-24h), never rejected,
// and an inverted window is clamped back to the default span.
//
// LongTerm is measured from now against the parsed start, not against
// the resolved end; a stale start with a stale end is still long-term.
func (r *Resolver) Resolve(startRaw, endRaw string) Window {
	now := r.clock.Now().UTC()

	end, ok := parseBound(endRaw)
	if !ok {
		end = now
	}
	start, ok := parseBound(startRaw)
	if !ok {
		start = now.Add(-defaultSpan)
	}
	if !start.Before(end) {
		start = end.Add(-defaultSpan)
	}

	w := Window{Start: start, End: end, Granularity: Hourly}
	if now.Sub(start) > longTermThreshold {
		w.LongTerm = true
		w.Granularity = Daily
		w.Start = truncateToDate(start)
		w.End = truncateToDate(end)
	}
	return w
}

func parseBound(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dataset returns the CDN dataset name grouped at this window's
// granularity.
func (w Window) Dataset() string {
	if w.Granularity == Daily {
		return "httpRequests1dGroups"
	}
	return "httpRequests1hGroups"
}

// TimeDimension returns the grouping dimension of the window's dataset.
func (w Window) TimeDimension() string {
	if w.Granularity == Daily {
		return "date"
	}
	return "datetime"
}

// OrderBy returns the ascending sort key for the window's dataset.
func (w Window) OrderBy() string {
	return w.TimeDimension() + "_ASC"
}

// FilterKeys returns the inclusive lower/upper filter argument names for
// the window's granularity.
func (w Window) FilterKeys() (geq, leq string) {
	dim := w.TimeDimension()
	return dim + "_geq", dim + "_leq"
}

// FormatBound renders t at the window's filter precision: a date-only
// string for long-term windows, full second precision otherwise.
func (w Window) FormatBound(t time.Time) string {
	if w.LongTerm {
		return t.UTC().Format("2006-01-02")
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// FormatInstant always renders full second precision, regardless of the
// window's granularity. Function metrics query hour-grouped datasets even
// under long-term windows and need instant bounds.
func (w Window) FormatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
