// Package clock renders wall-clock timestamps for status lines and
// notifications in a fixed display zone, whatever the host zone is.
package clock

import (
	"fmt"
	"time"
	_ "time/tzdata" // fixed zones must resolve on hosts without zoneinfo
)

const DefaultLayout = "2006-01-02 15:04:05"

type Formatter struct {
	loc    *time.Location
	layout string
	now    func() time.Time
}

// NewFormatter loads zone by IANA name. An empty zone means UTC, an empty
// layout means DefaultLayout.
func NewFormatter(zone, layout string) (*Formatter, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("display timezone %q: %w", zone, err)
	}
	if layout == "" {
		layout = DefaultLayout
	}
	return &Formatter{loc: loc, layout: layout, now: time.Now}, nil
}

// WithNow returns a copy reading time from now. Used by tests.
func (f *Formatter) WithNow(now func() time.Time) *Formatter {
	cp := *f
	cp.now = now
	return &cp
}

func (f *Formatter) Location() *time.Location { return f.loc }

// Format renders t in the display zone.
func (f *Formatter) Format(t time.Time) string {
	return t.In(f.loc).Format(f.layout)
}

// Label is Format(now).
func (f *Formatter) Label() string {
	return f.Format(f.now())
}

// Parse is the inverse of Format.
func (f *Formatter) Parse(s string) (time.Time, error) {
	return time.ParseInLocation(f.layout, s, f.loc)
}
