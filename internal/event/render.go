package event

import (
	"fmt"
	"strings"
	"time"
)

// continuationIndent lines up the second and later lines of an entry.
const continuationIndent = 26

// DisplayOptions selects the optional parts of a rendered event.
type DisplayOptions struct {
	Year        bool // prefix the start date with the year
	Weekday     bool // prefix dates with the abbreviated weekday
	BusyState   bool // prefix the entry with "busy" or "free"
	Attachments bool
	Location    bool
	Notes       bool
}

// Render formats an event as a block of text with no trailing newline. The
// first line starts with a description of when the event happens; the
// others are indented to line up beneath the title.
func Render(e Event, opts DisplayOptions) string {
	lines := []string{fmt.Sprintf("%s (%s)", e.Title, e.Calendar)}

	if opts.Attachments && len(e.Attachments) > 0 {
		if len(e.Attachments) == 1 {
			a := e.Attachments[0]
			lines = append(lines, "Attachment:", fmt.Sprintf("  %s: %s", a.Title, a.URL))
		} else {
			lines = append(lines, "Attachments:")
			for i, a := range e.Attachments {
				lines = append(lines, fmt.Sprintf("  %d. %s: %s", i+1, a.Title, a.URL))
			}
		}
	}
	if opts.Location && e.Location != "" {
		lines = append(lines, "Location: "+e.Location)
	}
	if opts.Notes && e.Notes != "" {
		lines = append(lines, strings.Split(e.Notes, "\n")...)
	}

	return when(e, opts) + strings.Join(lines, "\n"+strings.Repeat(" ", continuationIndent))
}

// when builds the time-span prefix of an entry, including the trailing ": ".
func when(e Event, opts DisplayOptions) string {
	startLayout, endLayout := "01-02", "01-02"
	if opts.Year {
		startLayout = "2006-" + startLayout
	}
	if opts.Weekday {
		startLayout = "Mon " + startLayout
		endLayout = "Mon " + endLayout
	}

	start := e.Start.Format(startLayout)
	if opts.BusyState {
		if e.Busy {
			start = "busy " + start
		} else {
			start = "free " + start
		}
	}

	if e.AllDay {
		// Width of a same-day timed prefix: start, " HH:MM", " - ", " HH:MM", ": ".
		column := len(start) + 6 + 3 + 6 + 2
		last := e.End.AddDate(0, 0, -1)
		prefix := start + ": "
		if !sameDay(e.Start, last) && last.After(e.Start) {
			prefix = start + " - " + last.Format(endLayout) + ": "
		}
		return fmt.Sprintf("%-*s", column, prefix)
	}

	start += e.Start.Format(" 15:04")
	if sameDay(e.Start, e.End) {
		return start + " - " + e.End.Format(" 15:04") + ": "
	}
	return start + " - " + e.End.Format(endLayout+" 15:04") + ": "
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
