package goanalysis

import (
	"context"
	"errors"
	"fmt"
	goast "go/ast"
	"go/token"
	"os"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/analyzer/rules"
	vast "github.com/panbanda/vigil/pkg/ast/goast"
	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

type runOptions struct {
	config    string
	rules     []string
	generated bool
}

func defaultOptions() *runOptions {
	return &runOptions{}
}

func (r *runOptions) run(pass *analysis.Pass) (any, error) {
	in, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, fmt.Errorf("%s: inspector result missing", name)
	}

	cfg := config.DefaultConfig()
	if r.config != "" {
		loaded, err := config.Load(r.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	files, sources, err := r.sources(pass, in)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	pkg := vast.New(pass.Fset, files, sources, pass.TypesInfo, pass.Pkg)
	prog := &analyzer.Program{Unit: pkg.Unit, Semantic: pkg.Semantic, Flow: pkg.Flow}
	driver := analyzer.NewDriver(cfg, rules.All(), analyzer.WithOnly(r.rules...))

	diags, err := driver.Run(context.Background(), prog)
	for _, d := range diags {
		pass.Report(diagnostic(pass.Fset, files, d))
	}
	return nil, reportRuleErrors(pass, files, err)
}

// sources collects the files to analyze with their content. Generated files
// are skipped unless requested.
func (r *runOptions) sources(pass *analysis.Pass, in *inspector.Inspector) ([]*goast.File, map[*goast.File][]byte, error) {
	var files []*goast.File
	sources := make(map[*goast.File][]byte)
	for c := range in.Root().Preorder((*goast.File)(nil)) {
		f := c.Node().(*goast.File)
		if !r.generated && goast.IsGenerated(f) {
			continue
		}
		path := pass.Fset.File(f.FileStart).Name()
		read := os.ReadFile
		if pass.ReadFile != nil {
			read = pass.ReadFile
		}
		content, err := read(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read file: %w", err)
		}
		files = append(files, f)
		sources[f] = content
	}
	return files, sources, nil
}

// reportRuleErrors turns rule failures into diagnostics at the top of the
// failing file so one broken rule does not fail the package. Other errors
// are returned.
func reportRuleErrors(pass *analysis.Pass, files []*goast.File, err error) error {
	if err == nil {
		return nil
	}
	var rest []error
	for _, e := range unjoin(err) {
		var ruleErr *analyzer.RuleError
		if !errors.As(e, &ruleErr) {
			rest = append(rest, e)
			continue
		}
		pos := position(pass.Fset, files, models.Location{File: ruleErr.File, Line: 1, Column: 1})
		pass.Report(analysis.Diagnostic{
			Pos:      pos,
			Category: ruleErr.Rule,
			Message:  "internal error: " + ruleErr.Error(),
		})
	}
	return errors.Join(rest...)
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func diagnostic(fset *token.FileSet, files []*goast.File, d models.Diagnostic) analysis.Diagnostic {
	out := analysis.Diagnostic{
		Pos:      position(fset, files, d.Location),
		Category: d.Rule,
		Message:  d.Message,
	}
	if d.Location.EndLine > 0 {
		end := d.Location
		end.Line, end.Column = end.EndLine, end.EndColumn
		out.End = position(fset, files, end)
	}
	for _, s := range d.Secondary {
		out.Related = append(out.Related, analysis.RelatedInformation{
			Pos:     position(fset, files, s.Location),
			Message: s.Message,
		})
	}
	return out
}

// position maps a 1-based line and column back into the file set.
func position(fset *token.FileSet, files []*goast.File, loc models.Location) token.Pos {
	for _, f := range files {
		tf := fset.File(f.FileStart)
		if tf == nil || tf.Name() != loc.File {
			continue
		}
		if loc.Line < 1 || loc.Line > tf.LineCount() {
			return f.FileStart
		}
		pos := tf.LineStart(loc.Line) + token.Pos(max(loc.Column-1, 0))
		return min(pos, f.FileEnd)
	}
	return token.NoPos
}
