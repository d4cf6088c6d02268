// Package satd reports self-admitted technical debt: comments carrying a
// TODO or FIXME marker.
package satd

import (
	"context"
	"regexp"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/models"
)

const (
	TodoID  = "todo-tag"
	FixmeID = "fixme-tag"
)

type marker struct {
	descriptor models.Descriptor
	pattern    *regexp.Regexp
	message    string
}

// A marker is a whole word: "todos" and "TODO_LIST" do not count.
func word(w string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN_])(` + w + `)(?:[^\pL\pN_]|$)`)
}

var markers = []marker{
	{
		descriptor: models.Descriptor{
			ID:              TodoID,
			Name:            "Track uses of TODO tags",
			Description:     "Reports comments containing a TODO marker, which flags work that was left unfinished.",
			DefaultSeverity: models.SeverityInfo,
			DefaultEnabled:  false,
		},
		pattern: word("TODO"),
		message: "Complete the task associated to this 'TODO' comment.",
	},
	{
		descriptor: models.Descriptor{
			ID:              FixmeID,
			Name:            "Track uses of FIXME tags",
			Description:     "Reports comments containing a FIXME marker, which flags code known to be wrong.",
			DefaultSeverity: models.SeverityMajor,
			DefaultEnabled:  false,
		},
		pattern: word("FIXME"),
		message: "Take the required action to fix the issue indicated by this 'FIXME' comment.",
	},
}

// Rule scans comments for debt markers.
type Rule struct{}

// New creates the debt marker rule.
func New() *Rule { return &Rule{} }

var _ analyzer.Rule = (*Rule)(nil)

func (*Rule) Descriptors() []models.Descriptor {
	out := make([]models.Descriptor, len(markers))
	for i, m := range markers {
		out[i] = m.descriptor
	}
	return out
}

// Run reports each marker at most once per comment.
func (*Rule) Run(_ context.Context, pass *analyzer.Pass) error {
	var active []marker
	for _, m := range markers {
		if pass.Enabled(m.descriptor.ID) {
			active = append(active, m)
		}
	}
	if len(active) == 0 {
		return nil
	}

	src := pass.File.Source
	lines := newLineIndex(src)
	for _, c := range Comments(src, pass.File.Language.ID) {
		text := src[c.Start:c.End]
		for _, m := range active {
			loc := m.pattern.FindSubmatchIndex(text)
			if loc == nil {
				continue
			}
			start, end := c.Start+loc[2], c.Start+loc[3]
			span := ast.Span{File: pass.File.Path, StartByte: start, EndByte: end}
			span.StartLine, span.StartCol = lines.position(start)
			span.EndLine, span.EndCol = lines.position(end)
			pass.Reportf(m.descriptor.ID, span, "%s", m.message)
		}
	}
	return nil
}
