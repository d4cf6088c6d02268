// Package goanalysis runs the vigil rule catalog as a go/analysis pass, so
// the Go rules can be used from singlechecker, multichecker, gopls or
// golangci-lint.
package goanalysis

import (
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
)

const (
	name = "vigil"
	doc  = `vigil reports complexity, duplication, loop, TLS and path-sensitive issues`
	url  = "https://github.com/panbanda/vigil"
)

// New creates a new instance of the vigil analyzer.
func New(opts ...Option) *analysis.Analyzer {
	r := defaultOptions()
	Options(opts).apply(r)

	a := &analysis.Analyzer{
		Name:     name,
		Doc:      doc,
		URL:      url,
		Run:      r.run,
		Requires: []*analysis.Analyzer{inspect.Analyzer},
	}

	registerFlags(&a.Flags, r)

	return a
}

// Analyzer is a pre-configured *[analysis.Analyzer] running every enabled rule.
var Analyzer = New()
