package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// SearchOptions control SearchLines output.
type SearchOptions struct {
	// Before and After are lines of context on each side of a match; when
	// either is set it overrides Context on that side.
	Before  int
	After   int
	Context int
	// Offset skips that many matches, for pagination.
	Offset int
	// MaxChars caps the response size. 0 means no cap.
	MaxChars int
}

// SearchLines performs a grep-like, case-insensitive regex search over a
// raw schema blob. Output lines are "N:content" for matches and
// "N-content" for context, with "--" between discontiguous blocks.
func SearchLines(raw string, pattern string, opts SearchOptions) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("schema empty")
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return "", fmt.Errorf("bad pattern: %w", err)
	}

	before, after := opts.Context, opts.Context
	if opts.Before > 0 || opts.After > 0 {
		before, after = opts.Before, opts.After
	}

	lines := strings.Split(raw, "\n")
	var matchIdx []int
	for i, line := range lines {
		if re.MatchString(line) {
			matchIdx = append(matchIdx, i)
		}
	}
	if len(matchIdx) == 0 {
		return "no matches", nil
	}
	total := len(matchIdx)
	if opts.Offset >= total {
		return fmt.Sprintf("no matches at offset %d (total %d)", opts.Offset, total), nil
	}
	matchIdx = matchIdx[opts.Offset:]

	isMatch := make(map[int]bool, len(matchIdx))
	for _, i := range matchIdx {
		isMatch[i] = true
	}

	var b strings.Builder
	lastEmitted := -2
	shown := 0
	for _, m := range matchIdx {
		start := max(0, m-before)
		end := min(len(lines)-1, m+after)
		if start <= lastEmitted {
			start = lastEmitted + 1
		} else if lastEmitted >= 0 {
			b.WriteString("--\n")
		}
		for i := start; i <= end; i++ {
			sep := "-"
			if isMatch[i] {
				sep = ":"
			}
			line := fmt.Sprintf("%d%s%s\n", i+1, sep, lines[i])
			if opts.MaxChars > 0 && b.Len()+len(line) > opts.MaxChars {
				fmt.Fprintf(&b, "... truncated (%d of %d matches shown)\n", shown, total)
				return b.String(), nil
			}
			b.WriteString(line)
			lastEmitted = i
		}
		shown++
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}
