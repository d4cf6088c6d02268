package ast

import (
	"context"
	"errors"
)

// ErrUnsupportedLanguage is returned when parsing a file with an unsupported language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// LanguageID identifies a grammar.
type LanguageID string

const (
	LangGo      LanguageID = "go"
	LangCSharp  LanguageID = "csharp"
	LangJava    LanguageID = "java"
	LangUnknown LanguageID = "unknown"
)

// Provider lowers source files of one grammar into a Unit.
type Provider interface {
	// Language returns the descriptor for the files this provider parses.
	Language() *Language

	// Parse lowers one source file into the unit.
	Parse(ctx context.Context, unit *Unit, path string, source []byte) (*File, error)

	// Close releases provider resources.
	Close()
}
