// Package header reports files that do not start with the configured
// header, such as a copyright notice.
package header

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/models"
)

const ID = "file-header"

// ErrInvalidPattern is returned when regex mode is on and the configured
// header is not a valid regular expression.
var ErrInvalidPattern = errors.New("invalid file header pattern")

var descriptor = models.Descriptor{
	ID:              ID,
	Name:            "Source files should have a sufficient header",
	Description:     "Reports files whose text does not start with the configured header, or with a match of it in regex mode.",
	DefaultSeverity: models.SeverityMinor,
	DefaultEnabled:  false,
	Params: []models.Param{
		{Name: "header", Default: "", Description: "Expected header text, or a regular expression"},
		{Name: "regex", Default: false, Description: "Treat header as a regular expression"},
	},
}

// Rule checks file headers.
type Rule struct{}

// New creates the file header rule.
func New() *Rule { return &Rule{} }

var _ analyzer.Rule = (*Rule)(nil)

func (*Rule) Descriptors() []models.Descriptor { return []models.Descriptor{descriptor} }

func (*Rule) Run(_ context.Context, pass *analyzer.Pass) error {
	params := pass.Params(ID)
	want := params.String("header", "")
	ok, err := Matches(pass.File.Source, want, params.Bool("regex", false))
	if err != nil {
		return err
	}
	if !ok {
		pass.Reportf(ID, ast.Span{File: pass.File.Path, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1},
			"Add or update the header of this file.")
	}
	return nil
}

var bom = []byte("\xef\xbb\xbf")

// Matches reports whether src starts with header. In regex mode header
// must match at the very start of the file. Line endings are compared as
// "\n" on both sides.
func Matches(src []byte, header string, regex bool) (bool, error) {
	text := normalize(bytes.TrimPrefix(src, bom))
	want := normalize([]byte(header))
	if !regex {
		return bytes.HasPrefix(text, want), nil
	}
	re, err := regexp.Compile(`\A(?:` + string(want) + `)`)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, header, err)
	}
	return re.Match(text), nil
}

func normalize(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
}
