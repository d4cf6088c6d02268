package duplicates

import (
	"context"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/models"
)

const (
	IdenticalBranchesID = "identical-branches"
	TooManyCasesID      = "too-many-switch-cases"
	DuplicateLiteralID  = "duplicate-string-literal"
	DuplicateMethodID   = "duplicate-method"
)

const (
	DefaultMaxCases         = 30
	DefaultLiteralThreshold = 3
	DefaultLiteralMinLength = 5
)

var descriptors = []models.Descriptor{
	{
		ID:              IdenticalBranchesID,
		Name:            "All branches of a conditional structure should not be identical",
		Description:     "Reports if chains ending in else, switches with a default and at least two sections, and ternaries whose branches are all the same.",
		DefaultSeverity: models.SeverityMajor,
		DefaultEnabled:  true,
	},
	{
		ID:              TooManyCasesID,
		Name:            "Switch statements should not have too many case labels",
		Description:     "Reports switches with more case labels than max unless every section is a one-liner.",
		DefaultSeverity: models.SeverityMajor,
		DefaultEnabled:  true,
		Params:          []models.Param{{Name: "max", Default: DefaultMaxCases, Description: "Maximum number of case labels"}},
	},
	{
		ID:              DuplicateLiteralID,
		Name:            "String literals should not be duplicated",
		Description:     "Groups the string literals of each type by value and reports values used more than threshold times.",
		DefaultSeverity: models.SeverityCritical,
		DefaultEnabled:  true,
		Params: []models.Param{
			{Name: "threshold", Default: DefaultLiteralThreshold, Description: "Number of occurrences allowed"},
			{Name: "min_length", Default: DefaultLiteralMinLength, Description: "Shorter literals are ignored"},
		},
	},
	{
		ID:              DuplicateMethodID,
		Name:            "Methods should not have identical implementations",
		Description:     "Reports sibling methods whose parameters and bodies are identical. Bodies need at least two statements.",
		DefaultSeverity: models.SeverityMajor,
		DefaultEnabled:  true,
	},
}

// Rule runs the duplication checks.
type Rule struct{}

// New creates the duplication rule.
func New() *Rule { return &Rule{} }

var _ analyzer.Rule = (*Rule)(nil)

func (*Rule) Descriptors() []models.Descriptor { return descriptors }

func (*Rule) Run(ctx context.Context, pass *analyzer.Pass) error {
	checks := []struct {
		id  string
		run func(*analyzer.Pass)
	}{
		{IdenticalBranchesID, checkIdenticalBranches},
		{TooManyCasesID, checkSwitchCases},
		{DuplicateLiteralID, checkLiterals},
		{DuplicateMethodID, checkMethods},
	}
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pass.Enabled(c.id) {
			c.run(pass)
		}
	}
	return nil
}
