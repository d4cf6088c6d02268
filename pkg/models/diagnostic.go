package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Severity ranks a diagnostic.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
	SeverityBlocker  Severity = "blocker"

	// SeverityNone disables a rule when set in configuration.
	SeverityNone Severity = "none"
)

// Rank orders severities: none < info < minor < major < critical < blocker.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityMinor:
		return 2
	case SeverityMajor:
		return 3
	case SeverityCritical:
		return 4
	case SeverityBlocker:
		return 5
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as o.
func (s Severity) AtLeast(o Severity) bool {
	return s.Rank() >= o.Rank()
}

// ParseSeverity parses a configured severity name.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	switch sev {
	case SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical, SeverityBlocker, SeverityNone:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Location is a source range. Lines and columns are 1-based.
type Location struct {
	File      string `json:"file" yaml:"file" toon:"file"`
	Line      int    `json:"line" yaml:"line" toon:"line"`
	Column    int    `json:"column" yaml:"column" toon:"column"`
	EndLine   int    `json:"end_line,omitempty" yaml:"end_line,omitempty" toon:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty" yaml:"end_column,omitempty" toon:"end_column,omitempty"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// SecondaryLocation points at a related position, optionally explained.
type SecondaryLocation struct {
	Location Location `json:"location" yaml:"location" toon:"location"`
	Message  string   `json:"message,omitempty" yaml:"message,omitempty" toon:"message,omitempty"`
}

// Diagnostic is one reported issue.
type Diagnostic struct {
	Rule       string              `json:"rule" yaml:"rule" toon:"rule"`
	Message    string              `json:"message" yaml:"message" toon:"message"`
	Severity   Severity            `json:"severity" yaml:"severity" toon:"severity"`
	Location   Location            `json:"location" yaml:"location" toon:"location"`
	Secondary  []SecondaryLocation `json:"secondary,omitempty" yaml:"secondary,omitempty" toon:"secondary,omitempty"`
	Properties map[string]string   `json:"properties,omitempty" yaml:"properties,omitempty" toon:"properties,omitempty"`
}

// CompareDiagnostics orders diagnostics by file, line, column, rule and message.
func CompareDiagnostics(a, b Diagnostic) int {
	return cmp.Or(
		cmp.Compare(a.Location.File, b.Location.File),
		cmp.Compare(a.Location.Line, b.Location.Line),
		cmp.Compare(a.Location.Column, b.Location.Column),
		cmp.Compare(a.Rule, b.Rule),
		cmp.Compare(a.Message, b.Message),
	)
}

// SortDiagnostics sorts in place so identical input always renders identically.
func SortDiagnostics(diags []Diagnostic) {
	slices.SortStableFunc(diags, CompareDiagnostics)
}
