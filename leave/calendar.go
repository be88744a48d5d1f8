/*
calendar.go - Holiday calendar and working-day counting

PURPOSE:

	The calendar holds the organization's non-working dates, bucketed by
	year. WorkingDays is the pure day-counting function everything else
	charges quota with: calendar days in an inclusive range that are
	neither weekend days nor holidays.

YEAR BOUNDARIES:

	A range spanning New Year consults both years' holiday sets; the
	calendar indexes holidays by exact date so this falls out naturally.

SEE ALSO:
  - workflow.go: rejects zero-working-day submissions
*/
package leave

import (
	"sort"
	"sync"
	"time"
)

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Calendar is the ordered set of non-working dates. Safe for concurrent
// use; reads vastly outnumber writes.
type Calendar struct {
	mu    sync.RWMutex
	dates map[time.Time]Holiday // keyed by midnight-UTC date
}

func NewCalendar() *Calendar {
	return &Calendar{dates: make(map[time.Time]Holiday)}
}

// Add registers a holiday, replacing any holiday on the same date.
func (c *Calendar) Add(h Holiday) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h.Date = DateOf(h.Date)
	c.dates[h.Date] = h
}

// Remove drops the holiday with the given id. Reports whether one was
// removed.
func (c *Calendar) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for d, h := range c.dates {
		if h.ID == id {
			delete(c.dates, d)
			return true
		}
	}
	return false
}

// IsHoliday checks set membership for a date.
func (c *Calendar) IsHoliday(date time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.dates[DateOf(date)]
	return ok
}

// Year returns the holidays of one year, ordered by date.
func (c *Calendar) Year(year int) []Holiday {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Holiday
	for _, h := range c.dates {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// All returns every holiday, ordered by date.
func (c *Calendar) All() []Holiday {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Holiday, 0, len(c.dates))
	for _, h := range c.dates {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// =============================================================================
// WORKING-DAY CALCULATOR
// =============================================================================

// WorkingDays counts the chargeable days of an inclusive range: calendar
// days that are neither Saturday/Sunday nor holidays. Pure; a zero
// result is valid output and left to the caller to reject.
func WorkingDays(r DateRange, cal *Calendar) Days {
	count := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		if isWeekend(d) {
			continue
		}
		if cal != nil && cal.IsHoliday(d) {
			continue
		}
		count++
	}
	return DaysOf(count)
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
