package satd

import (
	"bytes"
	"sort"

	"github.com/panbanda/vigil/pkg/ast"
)

// Comment is the byte range of one comment, delimiters included.
type Comment struct {
	Start, End int
}

// Comments lexes src just far enough to find its comments. String and
// character literals are skipped so that "//" inside them is not a
// comment. All supported languages share the C comment syntax; they only
// differ in their literal forms.
func Comments(src []byte, lang ast.LanguageID) []Comment {
	var out []Comment
	n := len(src)
	for i := 0; i < n; {
		switch {
		case bytes.HasPrefix(src[i:], []byte("//")):
			end := bytes.IndexByte(src[i:], '\n')
			if end < 0 {
				end = n - i
			}
			out = append(out, Comment{Start: i, End: i + end})
			i += end
		case bytes.HasPrefix(src[i:], []byte("/*")):
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				out = append(out, Comment{Start: i, End: n})
				return out
			}
			out = append(out, Comment{Start: i, End: i + 2 + end + 2})
			i += 2 + end + 2
		case lang == ast.LangJava && bytes.HasPrefix(src[i:], []byte(`"""`)):
			i = skipUntil(src, i+3, []byte(`"""`))
		case lang == ast.LangCSharp && src[i] == '@' && i+1 < n && src[i+1] == '"':
			i = skipVerbatim(src, i+2)
		case lang == ast.LangGo && src[i] == '`':
			i = skipUntil(src, i+1, []byte("`"))
		case src[i] == '"' || src[i] == '\'':
			i = skipQuoted(src, i+1, src[i])
		default:
			i++
		}
	}
	return out
}

func skipUntil(src []byte, i int, end []byte) int {
	j := bytes.Index(src[i:], end)
	if j < 0 {
		return len(src)
	}
	return i + j + len(end)
}

// skipQuoted skips an escaped literal. Literals never span lines, so an
// unterminated one stops at the newline.
func skipQuoted(src []byte, i int, quote byte) int {
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
		case quote:
			return i + 1
		case '\n':
			return i
		default:
			i++
		}
	}
	return len(src)
}

// skipVerbatim skips a C# @"..." literal, where "" is an escaped quote.
func skipVerbatim(src []byte, i int) int {
	for i < len(src) {
		if src[i] != '"' {
			i++
			continue
		}
		if i+1 < len(src) && src[i+1] == '"' {
			i += 2
			continue
		}
		return i + 1
	}
	return len(src)
}

// lineIndex maps byte offsets to 1-based line and byte column.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (l lineIndex) position(offset int) (line, col int) {
	i := sort.Search(len(l), func(i int) bool { return l[i] > offset }) - 1
	return i + 1, offset - l[i] + 1
}
