package syntax

import "unicode"

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenNumber
	TokenString
	TokenPunct
	TokenWhitespace
	TokenComment
	TokenUnknown
)

type Token struct {
	Kind TokenKind
	Text string
	Span Span
}

// IsTrivia reports whether the token carries no syntactic content.
func (t Token) IsTrivia() bool {
	return t.Kind == TokenWhitespace || t.Kind == TokenComment
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lex splits source into tokens, trivia included, spanning the whole input.
func lex(source string) []Token {
	var tokens []Token
	runes := []rune(source)
	// Byte offsets are tracked alongside the rune index so spans index the
	// original string.
	pos := 0
	i := 0
	emit := func(kind TokenKind, start, end int) {
		tokens = append(tokens, Token{
			Kind: kind,
			Text: source[start:end],
			Span: Span{Start: start, End: end},
		})
	}
	for i < len(runes) {
		start := pos
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			for i < len(runes) {
				r := runes[i]
				if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
					break
				}
				pos += len(string(r))
				i++
			}
			emit(TokenWhitespace, start, pos)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			for i < len(runes) && runes[i] != '\n' {
				pos += len(string(runes[i]))
				i++
			}
			emit(TokenComment, start, pos)
		case isIdentStart(r):
			for i < len(runes) && isIdentPart(runes[i]) {
				pos += len(string(runes[i]))
				i++
			}
			emit(TokenIdent, start, pos)
		case unicode.IsDigit(r):
			for i < len(runes) && (isIdentPart(runes[i])) {
				pos += len(string(runes[i]))
				i++
			}
			emit(TokenNumber, start, pos)
		case r == '\'' || r == '"':
			quote := r
			pos += len(string(r))
			i++
			for i < len(runes) {
				c := runes[i]
				pos += len(string(c))
				i++
				if c == '\\' && i < len(runes) {
					pos += len(string(runes[i]))
					i++
					continue
				}
				if c == quote {
					break
				}
			}
			emit(TokenString, start, pos)
		case r == ':' && i+1 < len(runes) && runes[i+1] == ':':
			pos += 2
			i += 2
			emit(TokenPunct, start, pos)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '>':
			pos += 2
			i += 2
			emit(TokenPunct, start, pos)
		case r == '=' && i+1 < len(runes) && runes[i+1] == '=':
			pos += 2
			i += 2
			emit(TokenPunct, start, pos)
		default:
			pos += len(string(r))
			i++
			kind := TokenPunct
			if r > unicode.MaxASCII {
				kind = TokenUnknown
			}
			emit(kind, start, pos)
		}
	}
	tokens = append(tokens, Token{Kind: TokenEOF, Span: Span{Start: pos, End: pos}})
	return tokens
}
