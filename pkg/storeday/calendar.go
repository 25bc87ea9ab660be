// Package storeday maps instants onto the store-local business calendar.
package storeday

import (
	"fmt"
	"strings"
	"time"
)

const (
	// KeyLayout is the persisted business-date form.
	KeyLayout = "2006-01-02"
	// CompactLayout prefixes sale numbers.
	CompactLayout = "20060102"
)

// Calendar resolves business days in a single store timezone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, now: time.Now}
}

// WithClock returns a copy of the calendar reading time from now.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	cp := *c
	if now != nil {
		cp.now = now
	}
	return &cp
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the store timezone.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the business day containing the current instant.
func (c *Calendar) Today() Day {
	return c.DayOf(c.now())
}

// DayOf returns the business day containing t.
func (c *Calendar) DayOf(t time.Time) Day {
	local := t.In(c.loc)
	return Day{year: local.Year(), month: local.Month(), day: local.Day(), loc: c.loc}
}

// Parse reads a YYYY-MM-DD business date.
func (c *Calendar) Parse(value string) (Day, error) {
	parsed, err := time.ParseInLocation(KeyLayout, strings.TrimSpace(value), c.loc)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return c.DayOf(parsed), nil
}

// Day is a calendar day in the store timezone.
type Day struct {
	year  int
	month time.Month
	day   int
	loc   *time.Location
}

func (d Day) IsZero() bool {
	return d.year == 0
}

// Key is the YYYY-MM-DD form.
func (d Day) Key() string {
	return d.Start().Format(KeyLayout)
}

// Compact is the YYYYMMDD form.
func (d Day) Compact() string {
	return d.Start().Format(CompactLayout)
}

// Start is local midnight.
func (d Day) Start() time.Time {
	loc := d.loc
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

// End is the exclusive upper bound: the next day's local midnight.
func (d Day) End() time.Time {
	return d.Start().AddDate(0, 0, 1)
}

func (d Day) Before(other Day) bool {
	return d.Start().Before(other.Start())
}

func (d Day) String() string {
	return d.Key()
}

// Range is an inclusive span of business days.
type Range struct {
	From Day
	To   Day
}

// Keys returns the inclusive business-date bounds in persisted form.
func (r Range) Keys() (string, string) {
	return r.From.Key(), r.To.Key()
}

// ParseRange reads optional start/end dates. Both empty yields ok=false. A missing
// bound defaults to the other one.
func (c *Calendar) ParseRange(start, end string) (Range, bool, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return Range{}, false, nil
	}
	if start == "" {
		start = end
	}
	if end == "" {
		end = start
	}
	from, err := c.Parse(start)
	if err != nil {
		return Range{}, false, err
	}
	to, err := c.Parse(end)
	if err != nil {
		return Range{}, false, err
	}
	if to.Before(from) {
		return Range{}, false, fmt.Errorf("end date %s is before start date %s", to.Key(), from.Key())
	}
	return Range{From: from, To: to}, true, nil
}
