package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestBuildWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 17, 45, 0, 0, time.UTC)

	tests := []struct {
		name              string
		start, end        string
		firstDay, lastDay string
	}{
		{"defaults", "", "", "2025-03-10", "2025-03-17"},
		{"start only", "2025-04-01", "", "2025-04-01", "2025-04-08"},
		{"end only", "", "2025-03-12", "2025-03-10", "2025-03-12"},
		{"both", "2025-03-01", "2025-03-01", "2025-03-01", "2025-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := buildWindow(tt.start, tt.end, 7, now)
			if err != nil {
				t.Fatalf("buildWindow() returned an error: %v", err)
			}
			if got := w.Start.Format(time.DateOnly); got != tt.firstDay {
				t.Errorf("Expected first day %s, got %s", tt.firstDay, got)
			}
			if got := w.Last().Format(time.DateOnly); got != tt.lastDay {
				t.Errorf("Expected last day %s, got %s", tt.lastDay, got)
			}
		})
	}
}

func TestBuildWindow_Invalid(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, tt := range []struct{ start, end string }{
		{"03/10/2025", ""},
		{"", "someday"},
		{"2025-03-10", "2025-03-09"},
	} {
		if _, err := buildWindow(tt.start, tt.end, 7, now); err == nil {
			t.Errorf("buildWindow(%q, %q) should have failed", tt.start, tt.end)
		}
	}
}

func TestOverridesFromFlags(t *testing.T) {
	opts := &rootOptions{}
	cmd := &cobra.Command{Use: "gcal"}
	opts.addFlags(cmd)
	if err := cmd.ParseFlags([]string{"--not", `Birthdays,"Holidays, US"`, "--show", "year,day", "--notes", "--max", "3", "--debug", "--group-calendars"}); err != nil {
		t.Fatalf("ParseFlags() returned an error: %v", err)
	}

	o, err := overridesFromFlags(cmd, opts)
	if err != nil {
		t.Fatalf("overridesFromFlags() returned an error: %v", err)
	}
	if strings.Join(o.Exclude, "|") != "Birthdays|Holidays, US" {
		t.Errorf("Unexpected Exclude %q", o.Exclude)
	}
	if strings.Join(o.Show, ",") != "year,day" {
		t.Errorf("Unexpected Show %q", o.Show)
	}
	if strings.Join(o.ExtraShow, ",") != "notes" {
		t.Errorf("Unexpected ExtraShow %q", o.ExtraShow)
	}
	if o.MaxResults != 3 {
		t.Errorf("Expected MaxResults 3, got %d", o.MaxResults)
	}
	if !o.IncludeGroupCalendars {
		t.Error("Expected --group-calendars to be passed through")
	}
	if !o.RecordResponses {
		t.Error("Expected --debug to turn on response recording")
	}
}

func TestRootCmd_RejectsNonPositiveMax(t *testing.T) {
	t.Setenv("GCAL_HOME", t.TempDir())

	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--max", "0"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--max") {
		t.Errorf("Expected a --max error, got %v", err)
	}
}

func TestRootCmd_MissingCredentials(t *testing.T) {
	t.Setenv("GCAL_HOME", t.TempDir())
	t.Setenv("GCAL_CREDENTIALS_PATH", "")

	cmd := newRootCmd()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--list"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Errorf("Expected a credentials error, got %v", err)
	}
}
