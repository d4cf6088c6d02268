// Package rules is the catalog of every rule vigil ships.
package rules

import (
	"slices"
	"strings"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/analyzer/certvalidation"
	"github.com/panbanda/vigil/pkg/analyzer/complexity"
	"github.com/panbanda/vigil/pkg/analyzer/duplicates"
	"github.com/panbanda/vigil/pkg/analyzer/header"
	"github.com/panbanda/vigil/pkg/analyzer/loops"
	"github.com/panbanda/vigil/pkg/analyzer/nesting"
	"github.com/panbanda/vigil/pkg/analyzer/satd"
	"github.com/panbanda/vigil/pkg/analyzer/symbolic"
	"github.com/panbanda/vigil/pkg/models"
)

// All returns a fresh instance of every rule.
func All() []analyzer.Rule {
	return []analyzer.Rule{
		complexity.New(),
		nesting.New(),
		duplicates.New(),
		loops.New(),
		certvalidation.New(),
		symbolic.New(),
		header.New(),
		satd.New(),
	}
}

// Descriptors returns the descriptors of every rule, sorted by ID.
func Descriptors() []models.Descriptor {
	var out []models.Descriptor
	for _, r := range All() {
		out = append(out, r.Descriptors()...)
	}
	slices.SortFunc(out, func(a, b models.Descriptor) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Lookup finds a descriptor by ID.
func Lookup(id string) (models.Descriptor, bool) {
	for _, d := range Descriptors() {
		if d.ID == id {
			return d, true
		}
	}
	return models.Descriptor{}, false
}
