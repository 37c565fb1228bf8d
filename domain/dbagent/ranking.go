package dbagent

import (
	"sort"
	"strings"
)

// Ranker scores tables for relevance to a question. Implementations must
// be deterministic: identical inputs produce identical scores.
type Ranker interface {
	Score(question string, table Table) float64
}

// TokenOverlapRanker is the default ranker. It scores a table by token
// overlap between the question and the table's name and column names.
// Purely lexical, so repeated calls with the same inputs always select
// the same subset.
type TokenOverlapRanker struct{}

// Score implements Ranker.
func (TokenOverlapRanker) Score(question string, table Table) float64 {
	words := tokenizeWords(question)
	if len(words) == 0 {
		return 0
	}

	var score float64
	name := strings.ToLower(table.Name)
	nameParts := splitIdentifier(name)

	for w := range words {
		if w == name || singularize(w) == singularize(name) {
			// Whole table name mentioned in the question.
			score += 5
			continue
		}
		for _, part := range nameParts {
			if w == part || singularize(w) == singularize(part) {
				score += 2
			}
		}
	}

	for _, col := range table.Columns {
		colName := strings.ToLower(col.Name)
		if _, ok := words[colName]; ok {
			score++
			continue
		}
		for _, part := range splitIdentifier(colName) {
			if _, ok := words[part]; ok {
				score += 0.5
			}
		}
	}

	return score
}

// SelectTables ranks all crawled tables against the question and returns
// the top subset, capped at max (MaxTables when max <= 0). Ties are broken
// by declaration order, which keeps selection stable.
func SelectTables(question string, tables []Table, ranker Ranker, max int) []Table {
	if max <= 0 || max > MaxTables {
		max = MaxTables
	}
	if ranker == nil {
		ranker = TokenOverlapRanker{}
	}

	type ranked struct {
		table Table
		score float64
		index int
	}

	scored := make([]ranked, len(tables))
	for i, t := range tables {
		scored[i] = ranked{table: t, score: ranker.Score(question, t), index: i}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].index < scored[j].index
	})

	if len(scored) > max {
		scored = scored[:max]
	}

	selected := make([]Table, len(scored))
	for i, r := range scored {
		selected[i] = r.table
	}
	return selected
}

// tokenizeWords lowercases and splits free text into a word set.
func tokenizeWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			words[sb.String()] = struct{}{}
			sb.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			sb.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

// splitIdentifier breaks snake_case identifiers into parts.
func splitIdentifier(ident string) []string {
	parts := strings.Split(ident, "_")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// singularize strips a trailing plural "s" so "users" matches "user".
func singularize(w string) string {
	if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return w[:len(w)-1]
	}
	return w
}
