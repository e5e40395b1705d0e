package query

import "github.com/hed-standard/hed-python-sub005/issue"

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokTilde
	tokComma
	tokAnd
	tokOr
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	span issue.Span
}

// lex tokenizes a query string. Delimiters are '(', ')', '[', ']', '~',
// ',' and whitespace; everything else accumulates into an identifier
// run, exactly as parser.Parse tokenizes HED tag text, just with a
// different delimiter alphabet. An identifier that case-insensitively
// spells "and" or "or" becomes a keyword token instead of tokIdent.
func lex(text string) []token {
	var toks []token
	identStart := -1

	flush := func(end int) {
		if identStart == -1 {
			return
		}
		start := identStart
		identStart = -1
		if start >= end {
			return
		}
		word := text[start:end]
		switch fold(word) {
		case "and":
			toks = append(toks, token{kind: tokAnd, text: word, span: issue.Span{Start: start, End: end}})
		case "or":
			toks = append(toks, token{kind: tokOr, text: word, span: issue.Span{Start: start, End: end}})
		default:
			toks = append(toks, token{kind: tokIdent, text: word, span: issue.Span{Start: start, End: end}})
		}
	}

	emit := func(kind tokenKind, pos int) {
		toks = append(toks, token{kind: kind, text: text[pos : pos+1], span: issue.Span{Start: pos, End: pos + 1}})
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '(':
			flush(i)
			emit(tokLParen, i)
		case c == ')':
			flush(i)
			emit(tokRParen, i)
		case c == '[':
			flush(i)
			emit(tokLBracket, i)
		case c == ']':
			flush(i)
			emit(tokRBracket, i)
		case c == '~':
			flush(i)
			emit(tokTilde, i)
		case c == ',':
			flush(i)
			emit(tokComma, i)
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush(i)
		default:
			if identStart == -1 {
				identStart = i
			}
		}
	}
	flush(len(text))
	toks = append(toks, token{kind: tokEOF, span: issue.Span{Start: len(text), End: len(text)}})
	return toks
}
