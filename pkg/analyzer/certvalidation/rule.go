package certvalidation

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/models"
)

const ID = "certificate-validation"

const message = "Enable server certificate validation on this SSL/TLS connection."

var descriptor = models.Descriptor{
	ID:              ID,
	Name:            "Server certificates should be verified during SSL/TLS connections",
	Description:     "Reports certificate validation callbacks whose every path accepts the certificate.",
	DefaultSeverity: models.SeverityCritical,
	DefaultEnabled:  true,
}

// Rule reports sinks that receive an accept-all certificate callback.
type Rule struct{}

// New creates the certificate validation rule.
func New() *Rule { return &Rule{} }

var _ analyzer.Rule = (*Rule)(nil)

func (*Rule) Descriptors() []models.Descriptor { return []models.Descriptor{descriptor} }

func (*Rule) Run(ctx context.Context, pass *analyzer.Pass) error {
	lang := pass.Lang
	if lang.CertificateSinks == nil {
		return nil
	}
	for n := range pass.File.Root.Preorder() {
		value, ok := lang.CertificateSinks(n)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		locs := NewWalker(lang, pass.Semantic).Callback(value)
		if len(locs) == 0 {
			continue
		}
		pass.Report(analyzer.Issue{
			Rule:      ID,
			Span:      value.Span,
			Message:   message,
			Secondary: secondaries(value, locs),
		})
	}
	return nil
}

// secondaries drops repeated hops and the primary location itself.
func secondaries(primary *ast.Node, locs []*ast.Node) []analyzer.Secondary {
	seen := roaring.BitmapOf(primary.ID())
	var out []analyzer.Secondary
	for _, n := range locs {
		if !seen.CheckedAdd(n.ID()) {
			continue
		}
		out = append(out, analyzer.Secondary{Span: n.Span})
	}
	return out
}
