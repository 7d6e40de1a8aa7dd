package syntax

import "strings"

// DB owns the source buffer and token stream for one file. All node text
// access goes through it; nodes only carry spans. A DB is immutable after
// construction and safe for concurrent reads.
type DB struct {
	source string
	tokens []Token
}

func NewDB(source string) *DB {
	return &DB{
		source: source,
		tokens: lex(source),
	}
}

func (db *DB) Source() string {
	return db.source
}

// Text returns the verbatim source slice for the span, trivia included.
func (db *DB) Text(span Span) string {
	if span.Start < 0 || span.End > len(db.source) || span.Start > span.End {
		return ""
	}
	return db.source[span.Start:span.End]
}

// TrimmedText returns the span's text with surrounding whitespace removed,
// along with the span of the trimmed region.
func (db *DB) TrimmedText(span Span) (string, Span) {
	text := db.Text(span)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", Span{Start: span.Start, End: span.Start}
	}
	lead := strings.Index(text, trimmed)
	return trimmed, Span{Start: span.Start + lead, End: span.Start + lead + len(trimmed)}
}

// TextWithoutTrivia concatenates the non-trivia token texts inside the
// span. Two renderings of the same code that differ only in comments or
// whitespace produce identical output.
func (db *DB) TextWithoutTrivia(span Span) string {
	var b strings.Builder
	for _, tok := range db.tokens {
		if tok.Span.Start >= span.End {
			break
		}
		if tok.Span.Start < span.Start || tok.IsTrivia() || tok.Kind == TokenEOF {
			continue
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}
