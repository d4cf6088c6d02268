package models

import "slices"

// Report is the result of one analysis run.
type Report struct {
	Files       int          `json:"files" yaml:"files" toon:"files"`
	Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics" toon:"diagnostics"`
	Errors      []string     `json:"errors,omitempty" yaml:"errors,omitempty" toon:"errors,omitempty"`
	Summary     Summary      `json:"summary" yaml:"summary" toon:"summary"`
}

// Summary aggregates diagnostic counts.
type Summary struct {
	Total      int              `json:"total" yaml:"total" toon:"total"`
	BySeverity map[Severity]int `json:"by_severity" yaml:"by_severity" toon:"by_severity"`
	ByRule     map[string]int   `json:"by_rule" yaml:"by_rule" toon:"by_rule"`
}

// NewReport sorts the diagnostics and computes the summary.
func NewReport(files int, diags []Diagnostic, errs []string) *Report {
	diags = slices.Clone(diags)
	SortDiagnostics(diags)
	r := &Report{
		Files:       files,
		Diagnostics: diags,
		Errors:      errs,
		Summary: Summary{
			Total:      len(diags),
			BySeverity: make(map[Severity]int),
			ByRule:     make(map[string]int),
		},
	}
	for _, d := range diags {
		r.Summary.BySeverity[d.Severity]++
		r.Summary.ByRule[d.Rule]++
	}
	return r
}

// MaxSeverity returns the most severe diagnostic's severity, or SeverityNone.
func (r *Report) MaxSeverity() Severity {
	highest := SeverityNone
	for _, d := range r.Diagnostics {
		if d.Severity.Rank() > highest.Rank() {
			highest = d.Severity
		}
	}
	return highest
}

// Rules returns the IDs of rules with at least one diagnostic, sorted.
func (r *Report) Rules() []string {
	ids := make([]string, 0, len(r.Summary.ByRule))
	for id := range r.Summary.ByRule {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
