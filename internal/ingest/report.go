package ingest

import (
	"fmt"

	"github.com/google/uuid"
)

// Report summarizes one import run.
type Report struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	Format    string   `json:"format"`
	Encoding  string   `json:"encoding,omitempty"`
	Created   int      `json:"created"`
	RowErrors []string `json:"row_errors,omitempty"`
}

func newReport(source, format string) *Report {
	return &Report{ID: uuid.New().String(), Source: source, Format: format}
}

func (r *Report) addRowError(rowNum int, msg string) {
	r.RowErrors = append(r.RowErrors, fmt.Sprintf("row %d: %s", rowNum, msg))
}

// Preview returns at most max row errors, with an elision marker when more
// were collected. max <= 0 previews nothing.
func (r *Report) Preview(max int) []string {
	if max <= 0 || len(r.RowErrors) == 0 {
		return nil
	}
	if len(r.RowErrors) <= max {
		return r.RowErrors
	}
	out := make([]string, 0, max+1)
	out = append(out, r.RowErrors[:max]...)
	out = append(out, fmt.Sprintf("... and %d more", len(r.RowErrors)-max))
	return out
}
