package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beekhof/gcal/internal/event"
)

// DisplayOptionNames lists the values accepted by ParseDisplayOptions.
var DisplayOptionNames = []string{"attachments", "busy", "day", "free", "location", "notes", "year"}

// ParseCSV splits one CSV row into its non-blank columns. Quoting follows
// the usual CSV rules, so a calendar name may contain a comma if quoted.
func ParseCSV(s string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(s))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", s, err)
	}

	var out []string
	for _, col := range record {
		col = strings.TrimRight(col, " \t")
		if col != "" {
			out = append(out, col)
		}
	}
	return out, nil
}

// ParseDisplayOptions maps option names to display switches. "busy" and
// "free" both turn on the busy/free marker and "day" turns on weekdays.
func ParseDisplayOptions(names []string) (event.DisplayOptions, error) {
	var opts event.DisplayOptions
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "attachments":
			opts.Attachments = true
		case "busy", "free":
			opts.BusyState = true
		case "day":
			opts.Weekday = true
		case "location":
			opts.Location = true
		case "notes":
			opts.Notes = true
		case "year":
			opts.Year = true
		default:
			return event.DisplayOptions{}, fmt.Errorf("unknown display option %q (choose from %s)", name, strings.Join(DisplayOptionNames, ", "))
		}
	}
	return opts, nil
}

var datePattern = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)

// ParseDate parses YYYY-MM-DD (or YYYY/M/D) as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid date format: %q (expected YYYY-MM-DD)", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date: %q", s)
	}
	return t, nil
}
