// Package match scores natural-language questions against stored recipe
// questions. It exists to keep store small and dependency-light: the
// fuzzy-ratio machinery lives here, behind a single Score function.
//
// The score blends lexical closeness with literal token overlap so a
// purely fuzzy string match cannot outrank a recipe that shares no real
// words with the query. Both inputs are canonicalized to their sorted
// token sets first, which makes the score invariant to word order.
package match

import (
	"regexp"
	"slices"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	tokenRe = regexp.MustCompile(`[a-z0-9]+`)
)

// Score weights. Ratio rewards overall token-set similarity, partial
// rewards containment, and balance rewards literal token overlap.
const (
	ratioWeight   = 0.55
	partialWeight = 0.25
	balanceWeight = 0.20
)

// Normalize lowercases, collapses whitespace, and trims a question.
func Normalize(q string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(strings.ToLower(q)), " ")
}

// Tokens returns the sorted set of lowercase alphanumeric runs in q.
func Tokens(q string) []string {
	seen := make(map[string]struct{})
	for _, tok := range tokenRe.FindAllString(Normalize(q), -1) {
		seen[tok] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for tok := range seen {
		out = append(out, tok)
	}
	slices.Sort(out)
	return out
}

// Score rates how well a stored question answers a query question, in
// [0, 1]. Exact match after normalization scores 1.0. Otherwise the score
// is 0.55*token-set ratio + 0.25*partial token-set ratio + 0.20*token
// overlap balance, computed on the sorted space-joined token sets and
// scaled down from percentages. Either side tokenizing to nothing scores 0.
func Score(query, stored string) float64 {
	qNorm := Normalize(query)
	sNorm := Normalize(stored)
	if qNorm == "" || sNorm == "" {
		return 0
	}
	if qNorm == sNorm {
		return 1.0
	}

	qTokens := Tokens(query)
	sTokens := Tokens(stored)
	if len(qTokens) == 0 || len(sTokens) == 0 {
		return 0
	}

	qText := strings.Join(qTokens, " ")
	sText := strings.Join(sTokens, " ")

	ratio := float64(fuzzy.TokenSetRatio(qText, sText))
	partial := float64(fuzzy.PartialTokenSetRatio(qText, sText))

	shared := intersectionSize(qTokens, sTokens)
	overlap := float64(shared) / float64(len(qTokens))
	coverage := float64(shared) / float64(len(sTokens))
	balance := min(overlap, coverage) * 100.0

	return (ratioWeight*ratio + partialWeight*partial + balanceWeight*balance) / 100.0
}

// intersectionSize counts tokens present in both sorted slices.
func intersectionSize(a, b []string) int {
	i, j, n := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}
