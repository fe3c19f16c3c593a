package schema

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// Section is one ranked schema section returned by Searcher.
type Section struct {
	Text  string
	Score float64
}

// Searcher ranks compact-schema sections by keyword relevance. It caches
// the underlying index keyed by schema fingerprint and rebuilds only when
// the document set changes.
//
// Searcher is safe for concurrent use; an internal RWMutex protects the
// cached index.
type Searcher struct {
	mu          sync.RWMutex
	fingerprint string
	index       bleve.Index
	sections    []string
}

// NewSearcher returns an empty Searcher.
func NewSearcher() *Searcher {
	return &Searcher{}
}

// Search ranks the compact schema's sections against query and returns the
// top limit sections by score. The compact text is split into sections on
// blank lines; fingerprint identifies the schema so the index is reused
// across calls until the schema drifts.
func (s *Searcher) Search(compact, fingerprint, query string, limit int) ([]Section, error) {
	if limit <= 0 {
		return []Section{}, nil
	}
	index, sections, err := s.ensureIndex(compact, fingerprint)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
	res, err := index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("schema search: %w", err)
	}

	out := make([]Section, 0, len(res.Hits))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(sections) {
			continue
		}
		out = append(out, Section{Text: sections[i], Score: hit.Score})
	}
	return out, nil
}

func (s *Searcher) ensureIndex(compact, fingerprint string) (bleve.Index, []string, error) {
	s.mu.RLock()
	if s.index != nil && s.fingerprint == fingerprint {
		index, sections := s.index, s.sections
		s.mu.RUnlock()
		return index, sections, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil && s.fingerprint == fingerprint {
		return s.index, s.sections, nil
	}

	sections := splitSections(compact)
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, nil, fmt.Errorf("build schema index: %w", err)
	}
	for i, section := range sections {
		if err := index.Index(strconv.Itoa(i), map[string]any{"text": section}); err != nil {
			_ = index.Close()
			return nil, nil, fmt.Errorf("index schema section: %w", err)
		}
	}

	if s.index != nil {
		_ = s.index.Close()
	}
	s.index, s.sections, s.fingerprint = index, sections, fingerprint
	return index, sections, nil
}

func splitSections(compact string) []string {
	var out []string
	for _, block := range strings.Split(compact, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
