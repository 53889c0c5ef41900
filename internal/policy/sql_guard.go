package policy

import (
	"context"
	"sort"
	"strings"
)

// SQLGuardPackage is the rego package of SQLGuardPolicy.
const SQLGuardPackage = "sql_guard"

// SQLGuardPolicy allows one read-only statement over the analytics tables.
const SQLGuardPolicy = `
package sql_guard

read_keywords := {"SELECT", "WITH"}

allowed_tables := {"leads", "campaigns", "campaign_leads", "conversation_messages"}

deny[msg] {
	input.statement_count != 1
	msg := "Only a single SQL statement is allowed."
}

deny[msg] {
	not read_keywords[input.keyword]
	msg := sprintf("Only SELECT queries are allowed, got %s.", [input.keyword])
}

deny[msg] {
	kw := input.forbidden[_]
	msg := sprintf("Statement contains forbidden keyword %s.", [kw])
}

deny[msg] {
	t := input.tables[_]
	not allowed_tables[t]
	msg := sprintf("Table %s is not available for analytics.", [t])
}

decision := {
	"allow": count(deny) == 0,
	"reasons": sort(deny),
}
`

// StatementFacts is what the guard policy sees of a SQL string.
type StatementFacts struct {
	StatementCount int      `json:"statement_count"`
	Keyword        string   `json:"keyword"`
	Tables         []string `json:"tables"`
	Forbidden      []string `json:"forbidden"`
}

var forbiddenKeywords = map[string]bool{
	"insert": true, "update": true, "delete": true, "drop": true, "alter": true, "create": true,
	"attach": true, "detach": true, "pragma": true, "vacuum": true, "reindex": true, "truncate": true,
}

// Words that close the source list of a FROM or JOIN.
var sourceListEnd = map[string]bool{
	"where": true, "group": true, "order": true, "limit": true, "having": true, "window": true,
	"union": true, "intersect": true, "except": true, "on": true, "using": true,
	"join": true, "inner": true, "left": true, "right": true, "full": true, "cross": true, "natural": true,
	"returning": true,
}

type tokenKind int

const (
	tokWord   tokenKind = iota // bare identifier or keyword
	tokQuoted                  // "x", [x] or `x`
	tokLiteral
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

func (t token) word(w string) bool { return t.kind == tokWord && t.text == w }

func (t token) ident() bool { return t.kind == tokWord || t.kind == tokQuoted }

func (t token) punct(p string) bool { return t.kind == tokPunct && t.text == p }

// tokenize splits sql into lower-cased words, unquoted identifiers, string
// literals and single-character punctuation. Comments are dropped.
func tokenize(sql string) []token {
	var toks []token
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 4
			}
		case c == '\'':
			text, next := readQuoted(sql, i, '\'')
			toks = append(toks, token{kind: tokLiteral, text: text})
			i = next
		case c == '"' || c == '`':
			text, next := readQuoted(sql, i, c)
			toks = append(toks, token{kind: tokQuoted, text: strings.ToLower(text)})
			i = next
		case c == '[':
			end := strings.IndexByte(sql[i+1:], ']')
			if end < 0 {
				end = len(sql) - i - 1
			}
			toks = append(toks, token{kind: tokQuoted, text: strings.ToLower(sql[i+1 : i+1+end])})
			i += end + 2
		case isWordByte(c):
			j := i
			for j < len(sql) && isWordByte(sql[j]) {
				j++
			}
			toks = append(toks, token{kind: tokWord, text: strings.ToLower(sql[i:j])})
			i = j
		default:
			toks = append(toks, token{kind: tokPunct, text: string(c)})
			i++
		}
	}
	return toks
}

// readQuoted reads a quoted run starting at sql[start] where a doubled quote
// escapes itself. It returns the unescaped body and the index after it.
func readQuoted(sql string, start int, quote byte) (string, int) {
	var b strings.Builder
	i := start + 1
	for i < len(sql) {
		if sql[i] == quote {
			if i+1 < len(sql) && sql[i+1] == quote {
				b.WriteByte(quote)
				i += 2
				continue
			}
			return b.String(), i + 1
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String(), i
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Inspect extracts the facts the guard policy evaluates. Table names are
// unquoted and lower-cased; schema-qualified names keep their prefix so they
// never match a bare allowed name.
func Inspect(sql string) StatementFacts {
	toks := tokenize(sql)
	facts := StatementFacts{Tables: []string{}, Forbidden: []string{}}

	pending := false
	for _, t := range toks {
		if t.punct(";") {
			if pending {
				facts.StatementCount++
			}
			pending = false
			continue
		}
		pending = true
	}
	if pending {
		facts.StatementCount++
	}
	if len(toks) > 0 && toks[0].kind == tokWord {
		facts.Keyword = strings.ToUpper(toks[0].text)
	}

	ctes := map[string]bool{}
	if facts.Keyword == "WITH" {
		for i := 0; i+2 < len(toks); i++ {
			if toks[i].ident() && toks[i+1].word("as") && toks[i+2].punct("(") {
				ctes[toks[i].text] = true
			}
		}
	}

	seen := map[string]bool{}
	for i, t := range toks {
		if !t.word("from") && !t.word("join") {
			continue
		}
		// a IS [NOT] DISTINCT FROM b compares values.
		if t.text == "from" && i > 0 && toks[i-1].word("distinct") {
			continue
		}
		for _, name := range sourceNames(toks, i+1) {
			if ctes[name] || seen[name] {
				continue
			}
			seen[name] = true
			facts.Tables = append(facts.Tables, name)
		}
	}
	sort.Strings(facts.Tables)

	seenKw := map[string]bool{}
	for _, t := range toks {
		if t.kind != tokWord || !forbiddenKeywords[t.text] {
			continue
		}
		kw := strings.ToUpper(t.text)
		if !seenKw[kw] {
			seenKw[kw] = true
			facts.Forbidden = append(facts.Forbidden, kw)
		}
	}
	return facts
}

// sourceNames reads the comma separated source list starting at toks[i].
// Subqueries are skipped here; their own FROM clauses are visited by the
// caller. A table-valued function is reported under its function name.
func sourceNames(toks []token, i int) []string {
	var names []string
	depth := 0
	expect := true
	for ; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.punct("("):
			depth++
			expect = false
		case t.punct(")"):
			if depth == 0 {
				return names
			}
			depth--
		case depth > 0:
		case t.punct(";"):
			return names
		case t.punct(","):
			expect = true
		case t.kind == tokWord && sourceListEnd[t.text]:
			return names
		case expect && t.ident():
			name := t.text
			if i+2 < len(toks) && toks[i+1].punct(".") && toks[i+2].ident() {
				name += "." + toks[i+2].text
				i += 2
			}
			names = append(names, name)
			expect = false
		}
	}
	return names
}

// SQLGuard checks generated SQL against SQLGuardPolicy.
type SQLGuard struct {
	engine *Engine
}

func NewSQLGuard(ctx context.Context) (*SQLGuard, error) {
	engine, err := NewEngine(ctx, SQLGuardPackage, SQLGuardPolicy)
	if err != nil {
		return nil, err
	}
	return &SQLGuard{engine: engine}, nil
}

// Check evaluates sql. A blocked statement yields Allow=false and the reasons.
func (g *SQLGuard) Check(ctx context.Context, sql string) (Decision, error) {
	return g.engine.Evaluate(ctx, Inspect(sql))
}
