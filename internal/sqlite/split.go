package sqlite

import (
	"iter"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokSemicolon
	tokParam
	tokLiteral
	tokOther
)

type token struct {
	kind       tokenKind
	text       string
	start, end int
}

// tokens lexes s just far enough to find statement boundaries, keywords and
// placeholders. Comments and whitespace are dropped; quoted strings and
// identifiers come back as single tokLiteral tokens.
func tokens(s string) iter.Seq[token] {
	return func(yield func(token) bool) {
		i := 0
		for i < len(s) {
			c := s[i]
			start := i
			kind := tokOther
			switch {
			case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
				i++
				continue
			case c == '-' && i+1 < len(s) && s[i+1] == '-':
				for i < len(s) && s[i] != '\n' {
					i++
				}
				continue
			case c == '/' && i+1 < len(s) && s[i+1] == '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					i = len(s)
				} else {
					i += end + 4
				}
				continue
			case c == '\'' || c == '"' || c == '`':
				i = skipQuoted(s, i, c)
				kind = tokLiteral
			case c == '[':
				end := strings.IndexByte(s[i:], ']')
				if end < 0 {
					i = len(s)
				} else {
					i += end + 1
				}
				kind = tokLiteral
			case c == ';':
				i++
				kind = tokSemicolon
			case c == '?':
				i++
				for i < len(s) && isDigit(s[i]) {
					i++
				}
				kind = tokParam
			case (c == ':' || c == '@' || c == '$') && i+1 < len(s) && isIdentStart(s[i+1]):
				i++
				for i < len(s) && isIdentPart(s[i]) {
					i++
				}
				kind = tokParam
			case isIdentStart(c):
				for i < len(s) && isIdentPart(s[i]) {
					i++
				}
				kind = tokWord
			default:
				i++
			}
			if !yield(token{kind: kind, text: s[start:i], start: start, end: i}) {
				return
			}
		}
	}
}

// skipQuoted returns the index just past the quoted run starting at i.
// A doubled quote character is an escaped quote.
func skipQuoted(s string, i int, q byte) int {
	i++
	for i < len(s) {
		if s[i] == q {
			if i+1 < len(s) && s[i+1] == q {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) || c == '$' }

// nextStatement splits the first complete statement off script. stmt is
// empty when script holds nothing but whitespace, comments and stray
// semicolons. Semicolons inside a CREATE TRIGGER body do not end the
// statement.
func nextStatement(script string) (stmt, rest string) {
	start := -1
	var lead []string
	trigger := false
	depth := 0
	for tok := range tokens(script) {
		if start < 0 {
			if tok.kind == tokSemicolon {
				continue
			}
			start = tok.start
		}
		switch tok.kind {
		case tokWord:
			w := strings.ToUpper(tok.text)
			if len(lead) < 3 {
				lead = append(lead, w)
				trigger = isCreateTrigger(lead)
			}
			if !trigger {
				continue
			}
			switch w {
			case "BEGIN", "CASE":
				depth++
			case "END":
				if depth > 0 {
					depth--
				}
			}
		case tokSemicolon:
			if depth == 0 {
				return strings.TrimSpace(script[start:tok.end]), script[tok.end:]
			}
		}
	}
	if start < 0 {
		return "", ""
	}
	return strings.TrimSpace(script[start:]), ""
}

func isCreateTrigger(lead []string) bool {
	if len(lead) < 2 || lead[0] != "CREATE" {
		return false
	}
	if lead[1] == "TRIGGER" {
		return true
	}
	return len(lead) == 3 && (lead[1] == "TEMP" || lead[1] == "TEMPORARY") && lead[2] == "TRIGGER"
}

// statementKind describes how a statement has to be stepped.
type statementKind struct {
	readOnly    bool // result replaces the destination table
	returnsRows bool // must be stepped as a query
}

var readOnlyLeads = map[string]bool{
	"SELECT":  true,
	"VALUES":  true,
	"PRAGMA":  true,
	"EXPLAIN": true,
	"WITH":    true,
}

var writeWords = map[string]bool{
	"INSERT":  true,
	"UPDATE":  true,
	"DELETE":  true,
	"REPLACE": true,
}

// classify inspects the keywords of a single statement. A WITH clause
// followed by a write is not read-only; RETURNING makes a write produce rows.
func classify(stmt string) statementKind {
	var kind statementKind
	first := ""
	writes := false
	for tok := range tokens(stmt) {
		if tok.kind != tokWord {
			continue
		}
		w := strings.ToUpper(tok.text)
		if first == "" {
			first = w
		}
		if writeWords[w] {
			writes = true
		}
		if w == "RETURNING" {
			kind.returnsRows = true
		}
	}
	if readOnlyLeads[first] && !(first == "WITH" && writes) {
		kind.readOnly = true
		kind.returnsRows = true
	}
	return kind
}

// paramCount returns the highest placeholder ordinal of stmt, the way
// SQLite numbers them: ?NNN takes NNN, a bare ? takes one past the largest
// ordinal so far, and each distinct named parameter takes the next ordinal
// on first use.
func paramCount(stmt string) int {
	highest := 0
	named := map[string]bool{}
	for tok := range tokens(stmt) {
		if tok.kind != tokParam {
			continue
		}
		switch {
		case tok.text[0] != '?':
			if !named[tok.text] {
				named[tok.text] = true
				highest++
			}
		case len(tok.text) > 1:
			if n, err := strconv.Atoi(tok.text[1:]); err == nil && n > highest {
				highest = n
			}
		default:
			highest++
		}
	}
	return highest
}

// expandSQL substitutes bound arguments into stmt for logging. Numbered
// placeholders (?NNN) take the argument at that ordinal; a bare ? takes the
// one after the largest ordinal seen so far.
func expandSQL(stmt string, args []any) string {
	if len(args) == 0 {
		return stmt
	}
	var b strings.Builder
	last := 0
	next := 0
	for tok := range tokens(stmt) {
		if tok.kind != tokParam || tok.text[0] != '?' {
			continue
		}
		ord := next + 1
		if len(tok.text) > 1 {
			n, err := strconv.Atoi(tok.text[1:])
			if err != nil {
				continue
			}
			ord = n
		}
		if ord > next {
			next = ord
		}
		if ord < 1 || ord > len(args) {
			continue
		}
		b.WriteString(stmt[last:tok.start])
		b.WriteString(sqlLiteral(args[ord-1]))
		last = tok.end
	}
	b.WriteString(stmt[last:])
	return b.String()
}

func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return "?"
	}
}
