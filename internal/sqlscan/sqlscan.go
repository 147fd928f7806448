package sqlscan

import (
	"fmt"
	"strings"
)

// Kind classifies a scanned token.
type Kind int

const (
	Word   Kind = iota // identifiers and keywords, including quoted identifiers
	String             // string literal contents
	Number             // numeric literal
	Symbol             // single punctuation or operator character
	Param              // positional parameter like $1
)

// Token is one element of the flat token stream produced by Scan.
type Token struct {
	Kind Kind
	Text string
	// Quoted is true for double-quoted identifiers, which never carry
	// keyword semantics.
	Quoted bool
}

// Scan produces a flat token stream for a SQL query text. It is a lexer,
// not a parser: no grammar is applied, and the stream may describe SQL
// that PostgreSQL would reject. Line and block comments are skipped.
// Returns an error for unterminated strings, comments, or quoted
// identifiers.
func Scan(sql string) ([]Token, error) {
	var toks []Token
	i := 0
	n := len(sql)

	for i < n {
		ch := sql[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			i++

		case ch == '-' && i+1 < n && sql[i+1] == '-':
			for i < n && sql[i] != '\n' {
				i++
			}

		case ch == '/' && i+1 < n && sql[i+1] == '*':
			end, err := skipBlockComment(sql, i)
			if err != nil {
				return nil, err
			}
			i = end

		case ch == '\'':
			text, end, err := scanString(sql, i, false)
			if err != nil {
				return nil, err
			}
			toks = append(toks, Token{Kind: String, Text: text})
			i = end

		case ch == '"':
			text, end, err := scanQuotedIdent(sql, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, Token{Kind: Word, Text: text, Quoted: true})
			i = end

		case ch == '$':
			tok, end, err := scanDollar(sql, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = end

		case isDigit(ch):
			start := i
			for i < n && isNumberChar(sql[i]) {
				i++
			}
			toks = append(toks, Token{Kind: Number, Text: sql[start:i]})

		case isWordStart(ch):
			start := i
			for i < n && isWordChar(sql[i]) {
				i++
			}
			word := sql[start:i]
			// E'...' and e'...' are strings with backslash escapes.
			if len(word) == 1 && (word == "E" || word == "e") && i < n && sql[i] == '\'' {
				text, end, err := scanString(sql, i, true)
				if err != nil {
					return nil, err
				}
				toks = append(toks, Token{Kind: String, Text: text})
				i = end
				continue
			}
			toks = append(toks, Token{Kind: Word, Text: word})

		default:
			toks = append(toks, Token{Kind: Symbol, Text: string(ch)})
			i++
		}
	}
	return toks, nil
}

// skipBlockComment skips a /* */ comment starting at i, honoring nesting
// like the PostgreSQL lexer does. Returns the index after the comment.
func skipBlockComment(sql string, i int) (int, error) {
	depth := 0
	n := len(sql)
	for i < n {
		if i+1 < n && sql[i] == '/' && sql[i+1] == '*' {
			depth++
			i += 2
			continue
		}
		if i+1 < n && sql[i] == '*' && sql[i+1] == '/' {
			depth--
			i += 2
			if depth == 0 {
				return i, nil
			}
			continue
		}
		i++
	}
	return 0, fmt.Errorf("sqlscan: unterminated block comment")
}

// scanString scans a '...' literal starting at the opening quote.
// A doubled '' is an escaped quote; when escaped is true, backslash
// escapes are honored as well (E'...' literals).
func scanString(sql string, i int, escaped bool) (string, int, error) {
	var sb strings.Builder
	n := len(sql)
	i++ // opening quote
	for i < n {
		ch := sql[i]
		if escaped && ch == '\\' && i+1 < n {
			sb.WriteByte(sql[i+1])
			i += 2
			continue
		}
		if ch == '\'' {
			if i+1 < n && sql[i+1] == '\'' {
				sb.WriteByte('\'')
				i += 2
				continue
			}
			return sb.String(), i + 1, nil
		}
		sb.WriteByte(ch)
		i++
	}
	return "", 0, fmt.Errorf("sqlscan: unterminated string literal")
}

// scanQuotedIdent scans a "..." identifier starting at the opening quote.
// A doubled "" is an escaped quote.
func scanQuotedIdent(sql string, i int) (string, int, error) {
	var sb strings.Builder
	n := len(sql)
	i++ // opening quote
	for i < n {
		ch := sql[i]
		if ch == '"' {
			if i+1 < n && sql[i+1] == '"' {
				sb.WriteByte('"')
				i += 2
				continue
			}
			return sb.String(), i + 1, nil
		}
		sb.WriteByte(ch)
		i++
	}
	return "", 0, fmt.Errorf("sqlscan: unterminated quoted identifier")
}

// scanDollar scans either a positional parameter ($1) or a dollar-quoted
// string ($$...$$, $tag$...$tag$) starting at the '$'.
func scanDollar(sql string, i int) (Token, int, error) {
	n := len(sql)
	if i+1 < n && isDigit(sql[i+1]) {
		start := i
		i++
		for i < n && isDigit(sql[i]) {
			i++
		}
		return Token{Kind: Param, Text: sql[start:i]}, i, nil
	}

	// Read the tag between the dollars.
	j := i + 1
	for j < n && isWordChar(sql[j]) {
		j++
	}
	if j >= n || sql[j] != '$' {
		// Lone dollar sign, treat as an operator character.
		return Token{Kind: Symbol, Text: "$"}, i + 1, nil
	}
	delim := sql[i : j+1]
	body := j + 1
	end := strings.Index(sql[body:], delim)
	if end < 0 {
		return Token{}, 0, fmt.Errorf("sqlscan: unterminated dollar-quoted string %s", delim)
	}
	return Token{Kind: String, Text: sql[body : body+end]}, body + end + len(delim), nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isWordStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isWordChar(ch byte) bool {
	return isWordStart(ch) || isDigit(ch)
}

func isNumberChar(ch byte) bool {
	return isDigit(ch) || ch == '.' || ch == 'e' || ch == 'E' || ch == 'x' ||
		(ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
