package calendar

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Recorder appends raw API responses to a writer for offline debugging.
// A nil *Recorder records nothing.
type Recorder struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

// NewRecorder records to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: w}
}

// OpenRecorder truncates the file at path and records to it. The caller
// closes the returned file.
func OpenRecorder(path string) (*Recorder, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open response log: %w", err)
	}
	return NewRecorder(f), f, nil
}

// Record writes v as indented JSON under a "---- label ----" header.
func (r *Recorder) Record(label string, v any) {
	if r == nil {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if err != nil {
		r.err = fmt.Errorf("failed to encode %s response: %w", label, err)
		return
	}
	if _, err := fmt.Fprintf(r.w, "---- %s ----\n%s\n", label, data); err != nil {
		r.err = fmt.Errorf("failed to record %s response: %w", label, err)
	}
}

// Err reports the first failure to record a response.
func (r *Recorder) Err() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
