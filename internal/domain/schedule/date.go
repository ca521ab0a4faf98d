package schedule

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t, nil
}

func parseClock(s string) (hour, min int, err error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("bad time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// dayStart returns local midnight of the calendar day containing t.
func dayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// civilDate is a timezone-free calendar day.
type civilDate struct {
	Year  int
	Month time.Month
	Day   int
}

func civilOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

func civilFromString(s string) (civilDate, error) {
	t, err := parseDate(s)
	if err != nil {
		return civilDate{}, err
	}
	return civilOf(t), nil
}

func (c civilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", c.Year, c.Month, c.Day)
}

// in returns local midnight of the day in the given location.
func (c civilDate) in(loc *time.Location) time.Time {
	return time.Date(c.Year, c.Month, c.Day, 0, 0, 0, 0, loc)
}

func (c civilDate) before(o civilDate) bool {
	if c.Year != o.Year {
		return c.Year < o.Year
	}
	if c.Month != o.Month {
		return c.Month < o.Month
	}
	return c.Day < o.Day
}

func (c civilDate) after(o civilDate) bool { return o.before(c) }

// addUnits steps the date forward by n calendar units. Month and year steps
// follow time.AddDate normalization, so Jan 31 + 1 month lands on Mar 2/3.
func (c civilDate) addUnits(n int, unit Unit) civilDate {
	t := c.in(time.UTC)
	switch unit {
	case UnitMonth:
		t = t.AddDate(0, n, 0)
	case UnitYear:
		t = t.AddDate(n, 0, 0)
	default:
		t = t.AddDate(0, 0, n)
	}
	return civilOf(t)
}

// unitsSince counts whole frequency units elapsed from anchor to c. Day
// units divide the day difference; month and year units count calendar
// boundaries crossed, truncated toward the anchor's day of month.
func (c civilDate) unitsSince(anchor civilDate, unit Unit) int {
	switch unit {
	case UnitMonth:
		months := (c.Year-anchor.Year)*12 + int(c.Month-anchor.Month)
		if c.Day < anchor.Day {
			months--
		}
		return months
	case UnitYear:
		years := c.Year - anchor.Year
		if c.Month < anchor.Month || (c.Month == anchor.Month && c.Day < anchor.Day) {
			years--
		}
		return years
	default:
		return daysBetween(anchor, c)
	}
}

func daysBetween(a, b civilDate) int {
	au := a.in(time.UTC)
	bu := b.in(time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

// mod is the non-negative remainder, so positions before a cycle anchor
// still map into [0, m).
func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
