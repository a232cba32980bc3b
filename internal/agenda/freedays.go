package agenda

import (
	"time"

	"github.com/beekhof/gcal/internal/event"
)

// DayRange returns midnight of every day touched by [start, end), using each
// instant's own wall clock. An end exactly at midnight does not touch that
// day, so a zero-length event at midnight covers no days.
func DayRange(start, end time.Time) []time.Time {
	var days []time.Time
	d := midnight(start)
	last := midnight(end)
	for dateBefore(d, last) || (sameDate(d, last) && end.After(last)) {
		days = append(days, d)
		d = d.AddDate(0, 0, 1)
	}
	return days
}

func dateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func dateBefore(a, b time.Time) bool { return dateKey(a) < dateKey(b) }

func sameDate(a, b time.Time) bool { return dateKey(a) == dateKey(b) }

// FreeDays returns the days of the window not touched by any busy event.
// Events marked free never make a day busy.
func FreeDays(events []event.Event, w Window) []time.Time {
	busy := make(map[int]bool)
	for _, e := range events {
		if !e.Busy {
			continue
		}
		for _, d := range DayRange(e.Start, e.End) {
			busy[dateKey(d)] = true
		}
	}

	var free []time.Time
	for _, d := range DayRange(w.Start, w.End) {
		if !busy[dateKey(d)] {
			free = append(free, d)
		}
	}
	return free
}
