package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ironsheep/eqregions/internal/detection"
)

// Outcome is the result of one recognition call: a region of a page, or the
// whole page when Box is nil. Exactly one of Text and Err is meaningful.
type Outcome struct {
	Page  int
	Index int
	Box   *detection.Box
	Text  string
	Err   error
}

// PageReport summarizes what happened on one page.
type PageReport struct {
	Page      int             `json:"page"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Regions   []detection.Box `json:"regions"`
	Fallback  bool            `json:"fallback"`
	Equations []string        `json:"equations"`
	Error     string          `json:"error,omitempty"`
}

// Result is the outcome of a run. Only Equations is part of the JSON output.
type Result struct {
	Equations []string     `json:"equations"`
	Pages     []PageReport `json:"-"`
}

// WriteJSON writes the result as a single {"equations": [...]} document.
// HTML characters such as < and & are left unescaped.
func (r *Result) WriteJSON(w io.Writer) error {
	out := Result{Equations: r.Equations}
	if out.Equations == nil {
		out.Equations = []string{}
	}
	return encode(w, out, false)
}

// WriteReports writes page reports as an indented JSON document.
func WriteReports(w io.Writer, reports []PageReport) error {
	if reports == nil {
		reports = []PageReport{}
	}
	return encode(w, struct {
		Pages []PageReport `json:"pages"`
	}{reports}, true)
}

func encode(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
