package hrdesk

import (
	"sort"
	"time"
)

// MonthRange returns the first instant of t's month and the last millisecond
// of it, both in t's location.
func MonthRange(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// ShiftMonth moves t by delta months. The day is clamped to the target
// month's last day, so Jan 31 + 1 is Feb 28 (or 29).
func ShiftMonth(t time.Time, delta int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, delta, 0)
	if last := daysIn(target); d > last {
		d = last
	}
	return target.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// DateKey identifies a calendar day.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

func (k DateKey) String() string {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

func dateKeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{Year: y, Month: m, Day: d}
}

// GroupByDate lists each task under every calendar day from its start date
// through its deadline, in loc. Tasks without both dates are skipped, as are
// tasks whose deadline precedes their start.
func GroupByDate(tasks []Task, loc *time.Location) map[DateKey][]Task {
	if loc == nil {
		loc = time.Local
	}
	out := make(map[DateKey][]Task)
	for _, t := range tasks {
		if t.StartDate == nil || t.Deadline == nil {
			continue
		}
		s := t.StartDate.In(loc)
		start := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
		end := t.Deadline.In(loc)
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			k := dateKeyOf(day)
			out[k] = append(out[k], t)
		}
	}
	return out
}

// SortedDays returns the keys of groups in chronological order.
func SortedDays(groups map[DateKey][]Task) []DateKey {
	keys := make([]DateKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Day < b.Day
	})
	return keys
}
