package dbagent

import (
	"fmt"
	"strings"
)

// Verdict is the safety gate's decision on a candidate statement.
type Verdict struct {
	Allowed bool
	Reason  string
}

func reject(format string, args ...any) Verdict {
	return Verdict{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// mutatingKeywords are rejected wherever they appear as actual SQL
// keywords. Matching is done on extracted tokens, so occurrences inside
// string literals, quoted identifiers, or comments never trigger.
var mutatingKeywords = map[string]struct{}{
	"INSERT":   {},
	"UPDATE":   {},
	"DELETE":   {},
	"DROP":     {},
	"ALTER":    {},
	"CREATE":   {},
	"TRUNCATE": {},
	"GRANT":    {},
	"MERGE":    {},
}

// CheckReadOnly statically validates that sql is a single read-only
// SELECT statement (optionally introduced by a WITH clause). It is a pure
// function and the correctness-critical guard of the database pipeline:
// rejection means the statement is never executed.
func CheckReadOnly(sql string) Verdict {
	tokens, err := tokenizeSQL(sql)
	if err != nil {
		return reject("statement could not be tokenized: %v", err)
	}
	if len(tokens.words) == 0 {
		return reject("statement is empty")
	}
	if tokens.statements > 1 {
		return reject("statement contains %d statements, exactly one is allowed", tokens.statements)
	}

	first := tokens.words[0]
	if first != "SELECT" && first != "WITH" {
		return reject("statement must start with SELECT or WITH, got %s", first)
	}

	for _, w := range tokens.words {
		if _, bad := mutatingKeywords[w]; bad {
			return reject("mutating keyword %s is not allowed", w)
		}
	}

	return Verdict{Allowed: true}
}

// sqlTokens is the token stream relevant to the safety check: keyword-like
// words uppercased, plus the count of non-empty statements.
type sqlTokens struct {
	words      []string
	statements int
}

// tokenizeSQL walks the statement once, skipping string literals, quoted
// identifiers (double quotes, backticks, brackets), dollar-quoted strings,
// and both comment forms. Word tokens are collected uppercased.
func tokenizeSQL(sql string) (sqlTokens, error) {
	var out sqlTokens
	src := []rune(sql)
	n := len(src)
	inStatement := false

	i := 0
	for i < n {
		c := src[i]

		switch {
		// -- line comment
		case c == '-' && i+1 < n && src[i+1] == '-':
			for i < n && src[i] != '\n' {
				i++
			}

		// /* block comment */
		case c == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i < n {
				if src[i] == '*' && i+1 < n && src[i+1] == '/' {
					i += 2
					break
				}
				i++
			}

		// 'string literal' with '' escaping
		case c == '\'':
			i++
			for i < n {
				if src[i] == '\'' {
					if i+1 < n && src[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			inStatement = true

		// "quoted identifier" with "" escaping
		case c == '"':
			i++
			for i < n {
				if src[i] == '"' {
					if i+1 < n && src[i+1] == '"' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			inStatement = true

		// `backtick identifier` (MySQL)
		case c == '`':
			i++
			for i < n && src[i] != '`' {
				i++
			}
			if i < n {
				i++
			}
			inStatement = true

		// [bracket identifier] (SQL Server dialect)
		case c == '[':
			for i < n && src[i] != ']' {
				i++
			}
			if i < n {
				i++
			}
			inStatement = true

		// $tag$ dollar-quoted string $tag$ (PostgreSQL)
		case c == '$':
			if tag, ok := dollarTag(src[i:]); ok {
				tagRunes := []rune(tag)
				body := src[i+len(tagRunes):]
				end := strings.Index(string(body), tag)
				if end < 0 {
					return out, fmt.Errorf("unterminated dollar-quoted string")
				}
				endRunes := len([]rune(string(body)[:end]))
				i += len(tagRunes) + endRunes + len(tagRunes)
				inStatement = true
			} else {
				i++
				inStatement = true
			}

		// statement separator
		case c == ';':
			if inStatement {
				out.statements++
				inStatement = false
			}
			i++

		// word token
		case isWordStart(c):
			start := i
			for i < n && isWordPart(src[i]) {
				i++
			}
			out.words = append(out.words, strings.ToUpper(string(src[start:i])))
			inStatement = true

		default:
			if !isSpace(c) {
				inStatement = true
			}
			i++
		}
	}

	if inStatement {
		out.statements++
	}
	return out, nil
}

// dollarTag returns the $tag$ opener at the start of src, if present.
func dollarTag(src []rune) (string, bool) {
	if len(src) == 0 || src[0] != '$' {
		return "", false
	}
	for j := 1; j < len(src); j++ {
		c := src[j]
		if c == '$' {
			return string(src[:j+1]), true
		}
		if !isWordPart(c) {
			return "", false
		}
	}
	return "", false
}

func isWordStart(c rune) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isWordPart(c rune) bool {
	return isWordStart(c) || c >= '0' && c <= '9'
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
