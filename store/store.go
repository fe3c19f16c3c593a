package store

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/jonwraymond/recipecache/match"
	"github.com/jonwraymond/recipecache/recipe"
)

// DefaultCapacity bounds the store when no capacity is configured.
const DefaultCapacity = 64

// Record is a stored recipe plus its retrieval metadata.
type Record struct {
	RecipeID   string
	APIID      string
	SchemaHash string
	Question   string
	ToolName   string
	Recipe     *recipe.Recipe
	CreatedAt  time.Time
	LastUsedAt time.Time

	questionSig string
}

// Suggestion is a ranked match returned by Suggest: rounded score and
// lightweight metadata, not the full recipe body.
type Suggestion struct {
	RecipeID   string
	Score      float64
	Question   string
	ToolName   string
	Params     map[string]recipe.ParamSpec
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// Meta identifies what a stored recipe was extracted against, for safety
// checks before replay.
type Meta struct {
	APIID      string
	SchemaHash string
	Recipe     *recipe.Recipe
}

type bucketKey struct {
	apiID      string
	schemaHash string
}

// Config configures a Store.
type Config struct {
	// Capacity bounds the number of retained records. Values below 1 fall
	// back to DefaultCapacity.
	Capacity int
	// Logger receives save/evict/suggest activity. Nil means no logging.
	Logger *zap.Logger
}

// Store is a thread-safe bounded recipe cache with fuzzy question matching
// and LRU eviction. Construct one at process start and inject it; it is
// intentionally shared across concurrent requests hitting the same API.
type Store struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Record]
	byKey map[bucketKey]map[string]struct{}
	log   *zap.Logger
}

// New creates a Store with the given config.
func New(cfg Config) *Store {
	capacity := cfg.Capacity
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		byKey: make(map[bucketKey]map[string]struct{}),
		log:   log,
	}
	// The evict callback runs synchronously under s.mu (every cache
	// mutation happens with the lock held), so it must not re-lock.
	cache, err := lru.NewWithEvict(capacity, s.onEvict)
	if err != nil {
		// Capacity is validated above; NewWithEvict only fails on size < 1.
		panic(err)
	}
	s.cache = cache
	return s
}

// Save stores a validated recipe and returns its fresh recipe id. The new
// record is touched most-recent, and the oldest records beyond capacity
// are evicted. Save never fails given valid inputs.
func (s *Store) Save(apiID, schemaHash, question string, rec *recipe.Recipe, toolName string) string {
	now := time.Now()
	record := &Record{
		RecipeID:    "r_" + uuid.NewString()[:8],
		APIID:       apiID,
		SchemaHash:  schemaHash,
		Question:    question,
		ToolName:    toolName,
		Recipe:      rec.Clone(),
		CreatedAt:   now,
		LastUsedAt:  now,
		questionSig: match.Normalize(question),
	}

	s.mu.Lock()
	key := bucketKey{apiID, schemaHash}
	ids, ok := s.byKey[key]
	if !ok {
		ids = make(map[string]struct{})
		s.byKey[key] = ids
	}
	ids[record.RecipeID] = struct{}{}
	s.cache.Add(record.RecipeID, record)
	s.mu.Unlock()

	s.log.Debug("recipe saved",
		zap.String("recipe_id", record.RecipeID),
		zap.String("tool_name", toolName),
		zap.String("api_id", apiID),
	)
	return record.RecipeID
}

// Get returns a defensive copy of the recipe, touching recency, or nil for
// an unknown id. Callers translate nil into a not-found condition.
func (s *Store) Get(recipeID string) *recipe.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.cache.Get(recipeID)
	if !ok {
		return nil
	}
	record.LastUsedAt = time.Now()
	return record.Recipe.Clone()
}

// GetMeta returns the record's identity pair and a recipe copy, touching
// recency, or nil for an unknown id.
func (s *Store) GetMeta(recipeID string) *Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.cache.Get(recipeID)
	if !ok {
		return nil
	}
	record.LastUsedAt = time.Now()
	return &Meta{
		APIID:      record.APIID,
		SchemaHash: record.SchemaHash,
		Recipe:     record.Recipe.Clone(),
	}
}

// Suggest scores every record in the (apiID, schemaHash) bucket against
// the question, keeps scores above zero, and returns the top k sorted by
// score then recency, with ids breaking remaining ties for deterministic
// ordering. Suggest does not touch recency.
func (s *Store) Suggest(apiID, schemaHash, question string, k int) []Suggestion {
	if k <= 0 {
		return nil
	}
	records := s.bucketSnapshot(apiID, schemaHash)

	type scored struct {
		score  float64
		record *Record
	}
	matches := make([]scored, 0, len(records))
	for _, record := range records {
		score := match.Score(question, record.questionSig)
		if score > 0 {
			matches = append(matches, scored{score, record})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if !matches[i].record.LastUsedAt.Equal(matches[j].record.LastUsedAt) {
			return matches[i].record.LastUsedAt.After(matches[j].record.LastUsedAt)
		}
		return matches[i].record.RecipeID < matches[j].record.RecipeID
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	out := make([]Suggestion, len(matches))
	for i, m := range matches {
		out[i] = Suggestion{
			RecipeID:   m.record.RecipeID,
			Score:      math.Round(m.score*10000) / 10000,
			Question:   m.record.Question,
			ToolName:   m.record.ToolName,
			Params:     m.record.Recipe.Clone().Params,
			CreatedAt:  m.record.CreatedAt,
			LastUsedAt: m.record.LastUsedAt,
		}
	}
	if len(out) > 0 {
		s.log.Debug("recipe suggestions", zap.Int("count", len(out)), zap.String("api_id", apiID))
	}
	return out
}

// List returns copies of every record in the (apiID, schemaHash) bucket,
// ordered by creation time then id, without touching recency. It exists so
// every known recipe can be exposed as a distinct callable, not just the
// top-k matches for one question.
func (s *Store) List(apiID, schemaHash string) []*Record {
	records := s.bucketSnapshot(apiID, schemaHash)
	out := make([]*Record, 0, len(records))
	for _, record := range records {
		out = append(out, copyRecord(record))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].RecipeID < out[j].RecipeID
	})
	return out
}

// FindByToolSlug resolves a previously listed, name-truncated tool slug
// back to its record. Records are walked in List order with the same
// dedup-suffix pass used when listing, so a slug always resolves to the
// record it was listed for, including suffixed forms like name_2.
// Returns nil when nothing in the bucket matches.
func (s *Store) FindByToolSlug(apiID, schemaHash, slug string, maxLen int) *Record {
	seen := map[string]struct{}{}
	for _, record := range s.List(apiID, schemaHash) {
		candidate := SanitizeToolName(record.ToolName)
		if maxLen > 0 && len(candidate) > maxLen {
			candidate = candidate[:maxLen]
		}
		if DeduplicateToolName(candidate, seen) == slug {
			return record
		}
	}
	return nil
}

// Len reports the number of retained records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// bucketSnapshot copies the bucket's records out under the lock. Scoring
// and sorting then run without holding it. The copies share the Recipe
// pointer, which is immutable after Save; callers clone it before handing
// a recipe to the outside.
func (s *Store) bucketSnapshot(apiID, schemaHash string) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byKey[bucketKey{apiID, schemaHash}]
	out := make([]*Record, 0, len(ids))
	for id := range ids {
		if record, ok := s.cache.Peek(id); ok {
			snapshot := *record
			out = append(out, &snapshot)
		}
	}
	return out
}

func (s *Store) onEvict(recipeID string, record *Record) {
	key := bucketKey{record.APIID, record.SchemaHash}
	if ids, ok := s.byKey[key]; ok {
		delete(ids, recipeID)
		if len(ids) == 0 {
			delete(s.byKey, key)
		}
	}
	s.log.Debug("recipe evicted", zap.String("recipe_id", recipeID))
}

func copyRecord(record *Record) *Record {
	out := *record
	out.Recipe = record.Recipe.Clone()
	return &out
}
