package complexity

import (
	"context"
	"fmt"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/models"
)

const (
	ExpressionID = "expression-complexity"
	FunctionID   = "function-complexity"
	CognitiveID  = "cognitive-complexity"
)

// Default limits.
const (
	DefaultExpressionMax     = 3
	DefaultFunctionMax       = 10
	DefaultCognitive         = 15
	DefaultCognitiveAccessor = 3
)

var descriptors = []models.Descriptor{
	{
		ID:              ExpressionID,
		Name:            "Expressions should not be too complex",
		Description:     "Counts the && || and ?: operators of an expression, parentheses included, and reports expressions using more than max.",
		DefaultSeverity: models.SeverityMajor,
		DefaultEnabled:  true,
		Params:          []models.Param{{Name: "max", Default: DefaultExpressionMax, Description: "Maximum number of conditional operators"}},
	},
	{
		ID:              FunctionID,
		Name:            "Functions should not be too complex",
		Description:     "Reports functions whose cyclomatic complexity exceeds max.",
		DefaultSeverity: models.SeverityMajor,
		DefaultEnabled:  false,
		Params:          []models.Param{{Name: "max", Default: DefaultFunctionMax, Description: "Maximum cyclomatic complexity"}},
	},
	{
		ID:              CognitiveID,
		Name:            "Cognitive Complexity of functions should not be too high",
		Description:     "Scores how hard a function is to understand: flow breaks cost more the deeper they are nested. Each contribution is shown as a secondary location.",
		DefaultSeverity: models.SeverityCritical,
		DefaultEnabled:  true,
		Params: []models.Param{
			{Name: "threshold", Default: DefaultCognitive, Description: "Maximum score of methods and functions"},
			{Name: "property_threshold", Default: DefaultCognitiveAccessor, Description: "Maximum score of property accessors"},
		},
	},
}

// Rule reports overly complex expressions and functions.
type Rule struct{}

// New creates the complexity rule.
func New() *Rule { return &Rule{} }

var _ analyzer.Rule = (*Rule)(nil)

func (*Rule) Descriptors() []models.Descriptor { return descriptors }

func (*Rule) Run(ctx context.Context, pass *analyzer.Pass) error {
	lang := pass.Lang
	if pass.Enabled(ExpressionID) {
		checkExpressions(pass)
	}
	if !pass.Enabled(FunctionID) && !pass.Enabled(CognitiveID) {
		return nil
	}
	for _, decl := range lang.Declarations(pass.File.Root) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ast.Is(decl, lang.Functions) && !ast.Is(decl, lang.Accessors) {
			continue
		}
		if pass.Enabled(FunctionID) {
			checkCyclomatic(pass, decl)
		}
		if pass.Enabled(CognitiveID) {
			checkCognitive(pass, decl)
		}
	}
	return nil
}

func checkExpressions(pass *analyzer.Pass) {
	limit := pass.IntParam(ExpressionID, "max", DefaultExpressionMax)
	calc := Expression(pass.Lang)
	for n := range pass.File.Root.Preorder() {
		if !calc.IsRoot(n) {
			continue
		}
		if c := calc.Complexity(n); c > limit {
			pass.Reportf(ExpressionID, n.Span,
				"Reduce the number of conditional operators (%d) used in the expression (maximum allowed %d).", c, limit)
		}
	}
}

func checkCyclomatic(pass *analyzer.Pass, decl *ast.Node) {
	limit := pass.IntParam(FunctionID, "max", DefaultFunctionMax)
	c, points := Cyclomatic(pass.Lang, decl)
	if c <= limit {
		return
	}
	at := pass.Lang.NameSpan(decl)
	issue := analyzer.Issue{
		Rule:      FunctionID,
		Span:      at,
		Message:   fmt.Sprintf("The Cyclomatic Complexity of this %s is %d which is greater than %d authorized.", kindOf(pass.Lang, decl), c, limit),
		Secondary: []analyzer.Secondary{{Span: at, Message: "+1"}},
	}
	for _, p := range points {
		issue.Secondary = append(issue.Secondary, analyzer.Secondary{Span: p.KeywordSpan(), Message: "+1"})
	}
	pass.Report(issue)
}

func checkCognitive(pass *analyzer.Pass, decl *ast.Node) {
	limit := pass.IntParam(CognitiveID, "threshold", DefaultCognitive)
	if ast.Is(decl, pass.Lang.Accessors) {
		limit = pass.IntParam(CognitiveID, "property_threshold", DefaultCognitiveAccessor)
	}
	score := Cognitive(pass.Lang, pass.Semantic, decl)
	if score.Total <= limit {
		return
	}
	issue := analyzer.Issue{
		Rule:       CognitiveID,
		Span:       pass.Lang.NameSpan(decl),
		Message:    fmt.Sprintf("Refactor this %s to reduce its Cognitive Complexity from %d to the %d allowed.", kindOf(pass.Lang, decl), score.Total, limit),
		Properties: map[string]string{"score": fmt.Sprint(score.Total)},
	}
	for _, inc := range score.Increments {
		issue.Secondary = append(issue.Secondary, analyzer.Secondary{Span: inc.Span, Message: inc.Message()})
	}
	pass.Report(issue)
}

func kindOf(lang *ast.Language, decl *ast.Node) string {
	switch {
	case ast.Is(decl, lang.Accessors):
		return "accessor"
	case lang.ID == ast.LangGo:
		return "function"
	}
	return "method"
}
