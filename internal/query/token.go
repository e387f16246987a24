package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/query/vals"
)

// ParseError describes a syntax error with its byte offset in the query text.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString
	tokTag  // #tag, FROM sources only
	tokLink // [[target]] literal, inner text
	tokDate // date(...) literal, inner text
	tokDur  // dur(...) literal, inner text
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokDot
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokBang
	tokEq
	tokEqEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
)

type token struct {
	kind tokKind
	text string
	pos  int
}

// isKeyword reports whether the token is the given keyword, matched
// case-insensitively. Keywords are ordinary identifiers to the lexer.
func (t token) isKeyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

var dateLitRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}([T ][0-9:.+Zz-]+)?|today|now)$`)

// lex tokenizes a query string. Keywords are not distinguished from
// identifiers here; the parser matches them case-insensitively.
func lex(input string) ([]token, *ParseError) {
	var toks []token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c >= '0' && c <= '9':
			start := i
			for i < n && (input[i] >= '0' && input[i] <= '9') {
				i++
			}
			if i < n && input[i] == '.' && i+1 < n && input[i+1] >= '0' && input[i+1] <= '9' {
				i++
				for i < n && input[i] >= '0' && input[i] <= '9' {
					i++
				}
			}
			toks = append(toks, token{tokNumber, input[start:i], start})

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			word := input[start:i]
			// date(...) and dur(...) literals are lexed whole when the inner
			// text looks like a literal; otherwise they stay function calls.
			if i < n && input[i] == '(' {
				if lit, end, ok := lexCallLiteral(input, word, i); ok {
					toks = append(toks, token{lit.kind, lit.text, start})
					i = end
					continue
				}
			}
			toks = append(toks, token{tokIdent, word, start})

		case c == '"':
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < n {
				ch := input[i]
				if ch == '\\' && i+1 < n {
					next := input[i+1]
					if next == '"' || next == '\\' {
						sb.WriteByte(next)
						i += 2
						continue
					}
				}
				if ch == '"' {
					closed = true
					i++
					break
				}
				sb.WriteByte(ch)
				i++
			}
			if !closed {
				return nil, &ParseError{start, "unterminated string"}
			}
			toks = append(toks, token{tokString, sb.String(), start})

		case c == '#':
			start := i
			i++
			tagStart := i
			for i < n && isTagPart(input[i]) {
				i++
			}
			if i == tagStart {
				return nil, &ParseError{start, "expected tag name after '#'"}
			}
			toks = append(toks, token{tokTag, input[tagStart:i], start})

		case c == '[':
			// [[...]] is a wikilink only when ]] closes before any other
			// bracket; [[1,2],[3]] stays a nested list literal.
			if i+1 < n && input[i+1] == '[' {
				if inner, end, ok := lexWikilink(input, i); ok {
					toks = append(toks, token{tokLink, inner, i})
					i = end
					continue
				}
			}
			toks = append(toks, token{tokLBracket, "[", i})
			i++

		case c == ']':
			toks = append(toks, token{tokRBracket, "]", i})
			i++

		default:
			start := i
			two := ""
			if i+1 < n {
				two = input[i : i+2]
			}
			switch {
			case two == "==":
				toks = append(toks, token{tokEqEq, two, start})
				i += 2
			case two == "!=":
				toks = append(toks, token{tokNeq, two, start})
				i += 2
			case two == "<=":
				toks = append(toks, token{tokLte, two, start})
				i += 2
			case two == ">=":
				toks = append(toks, token{tokGte, two, start})
				i += 2
			case c == '=':
				toks = append(toks, token{tokEq, "=", start})
				i++
			case c == '<':
				toks = append(toks, token{tokLt, "<", start})
				i++
			case c == '>':
				toks = append(toks, token{tokGt, ">", start})
				i++
			case c == '!':
				toks = append(toks, token{tokBang, "!", start})
				i++
			case c == '(':
				toks = append(toks, token{tokLParen, "(", start})
				i++
			case c == ')':
				toks = append(toks, token{tokRParen, ")", start})
				i++
			case c == ',':
				toks = append(toks, token{tokComma, ",", start})
				i++
			case c == '.':
				toks = append(toks, token{tokDot, ".", start})
				i++
			case c == '+':
				toks = append(toks, token{tokPlus, "+", start})
				i++
			case c == '-':
				toks = append(toks, token{tokMinus, "-", start})
				i++
			case c == '*':
				toks = append(toks, token{tokStar, "*", start})
				i++
			case c == '/':
				toks = append(toks, token{tokSlash, "/", start})
				i++
			case c == '%':
				toks = append(toks, token{tokPercent, "%", start})
				i++
			default:
				return nil, &ParseError{start, fmt.Sprintf("unexpected character %q", c)}
			}
		}
	}

	toks = append(toks, token{tokEOF, "", n})
	return toks, nil
}

// lexCallLiteral handles date(2026-06-01), date(today), and dur(7 days). The
// inner text must match the literal shape; anything else falls through to
// normal function-call lexing.
func lexCallLiteral(input, word string, lparen int) (token, int, bool) {
	rp := strings.IndexByte(input[lparen:], ')')
	if rp < 0 {
		return token{}, 0, false
	}
	inner := strings.TrimSpace(input[lparen+1 : lparen+rp])
	end := lparen + rp + 1

	switch strings.ToLower(word) {
	case "date":
		if dateLitRe.MatchString(inner) {
			return token{kind: tokDate, text: inner}, end, true
		}
	case "dur":
		if _, ok := vals.ParseDuration(inner); ok {
			return token{kind: tokDur, text: inner}, end, true
		}
	}
	return token{}, 0, false
}

// lexWikilink scans [[...]] starting at i, returning the inner text and the
// index after the closing ]]. Fails if a bracket interrupts before ]].
func lexWikilink(input string, i int) (string, int, bool) {
	j := i + 2
	for j < len(input) {
		c := input[j]
		if c == ']' {
			if j+1 < len(input) && input[j+1] == ']' {
				return input[i+2 : j], j + 2, true
			}
			return "", 0, false
		}
		if c == '[' {
			return "", 0, false
		}
		j++
	}
	return "", 0, false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isTagPart(c byte) bool {
	return isIdentPart(c) || c == '/' || c == '-'
}
