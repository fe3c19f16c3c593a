package registry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonwraymond/recipecache/apicall"
	"github.com/jonwraymond/recipecache/extract"
	"github.com/jonwraymond/recipecache/recipe"
	"github.com/jonwraymond/recipecache/schema"
	"github.com/jonwraymond/recipecache/store"
	"github.com/jonwraymond/recipecache/tabular"
	"github.com/jonwraymond/toolfoundation/model"
)

// Config configures a Registry.
type Config struct {
	ServerInfo ServerInfo

	// Store is the shared recipe cache. Required for suggestion and replay
	// tools; a nil store disables them.
	Store *store.Store
	// Extractor turns successful pipeline runs into cached recipes. Nil
	// disables extraction.
	Extractor *extract.Orchestrator
	// APIClient executes live GraphQL/REST calls. Nil gets a default client.
	APIClient *apicall.Client
	// SQL runs pipeline queries over collected result sets. Nil gets a
	// default engine.
	SQL *tabular.Engine
	// Searcher ranks schema sections for keyword queries. Nil gets a
	// default in-memory searcher.
	Searcher *schema.Searcher
	// Logger receives request and tool activity. Nil means no logging.
	Logger *zap.Logger

	// SchemaClient fetches target schemas. Nil gets a 30s-timeout client.
	SchemaClient *http.Client
	// SchemaTTL bounds how long a fetched schema is reused before a
	// refetch. Zero means DefaultSchemaTTL.
	SchemaTTL time.Duration
	// SuggestLimit is the default number of recipe suggestions. Zero means
	// DefaultSuggestLimit.
	SuggestLimit int
	// MaxResponseChars truncates oversized tool output. Zero means
	// DefaultMaxResponseChars.
	MaxResponseChars int
	// StdioHeaders supplies request context for the stdio transport, which
	// has no per-request headers of its own.
	StdioHeaders map[string]string
}

// ServerInfo describes this MCP server for the initialize response.
type ServerInfo struct {
	Name    string
	Version string
}

// Defaults applied by New for zero-valued config fields.
const (
	DefaultSchemaTTL        = time.Minute
	DefaultSuggestLimit     = 3
	DefaultMaxResponseChars = 50000
)

// toolSlugMaxLen caps listed tool names; it matches the tool-name grammar
// length limit.
const toolSlugMaxLen = 40

// Registry is an MCP server surface over the recipe subsystem: a fixed
// tool set for live API execution, schema search, and recipe retrieval,
// plus one dynamically listed tool per cached recipe. All per-target state
// comes from request headers; the registry itself only holds shared
// collaborators.
type Registry struct {
	config    config
	store     *store.Store
	extractor *extract.Orchestrator
	client    *apicall.Client
	sql       *tabular.Engine
	searcher  *schema.Searcher
	log       *zap.Logger

	httpClient *http.Client

	mu      sync.Mutex
	schemas map[schemaKey]schemaEntry

	handlers map[string]ToolHandler
}

type config struct {
	serverInfo       ServerInfo
	schemaTTL        time.Duration
	suggestLimit     int
	maxResponseChars int
	stdioHeaders     map[string]string
}

type schemaKey struct {
	apiType   string
	targetURL string
}

type schemaEntry struct {
	ctx     schema.Context
	fetched time.Time
}

// New creates a Registry with the given config.
func New(cfg Config) *Registry {
	c := config{
		serverInfo:       cfg.ServerInfo,
		schemaTTL:        cfg.SchemaTTL,
		suggestLimit:     cfg.SuggestLimit,
		maxResponseChars: cfg.MaxResponseChars,
		stdioHeaders:     cfg.StdioHeaders,
	}
	if c.schemaTTL <= 0 {
		c.schemaTTL = DefaultSchemaTTL
	}
	if c.suggestLimit <= 0 {
		c.suggestLimit = DefaultSuggestLimit
	}
	if c.maxResponseChars <= 0 {
		c.maxResponseChars = DefaultMaxResponseChars
	}

	r := &Registry{
		config:     c,
		store:      cfg.Store,
		extractor:  cfg.Extractor,
		client:     cfg.APIClient,
		sql:        cfg.SQL,
		searcher:   cfg.Searcher,
		log:        cfg.Logger,
		httpClient: cfg.SchemaClient,
		schemas:    make(map[schemaKey]schemaEntry),
	}
	if r.client == nil {
		r.client = apicall.NewClient()
	}
	if r.sql == nil {
		r.sql = tabular.NewEngine()
	}
	if r.searcher == nil {
		r.searcher = schema.NewSearcher()
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	r.handlers = r.fixedHandlers()
	return r
}

// schemaContext returns the target's schema, fetching and caching it by
// (api type, target URL) with a TTL. The fetch itself runs outside the
// cache lock so a slow target does not serialize unrelated requests.
func (r *Registry) schemaContext(ctx context.Context, rc *ReqContext) (schema.Context, error) {
	key := schemaKey{apiType: rc.APIType, targetURL: rc.TargetURL}

	r.mu.Lock()
	entry, ok := r.schemas[key]
	r.mu.Unlock()
	if ok && time.Since(entry.fetched) < r.config.schemaTTL {
		return entry.ctx, nil
	}

	var (
		sc  schema.Context
		err error
	)
	if rc.APIType == recipe.APITypeGraphQL {
		sc, err = schema.FetchGraphQL(ctx, r.httpClient, rc.TargetURL, rc.TargetHeaders)
	} else {
		sc, err = schema.FetchOpenAPI(ctx, r.httpClient, rc.TargetURL, rc.TargetHeaders)
	}
	if err != nil {
		return schema.Context{}, fmt.Errorf("%w: %s: %v", ErrSchemaFetch, rc.TargetURL, err)
	}
	if rc.BaseURL != "" {
		sc.BaseURL = rc.BaseURL
	}

	r.mu.Lock()
	r.schemas[key] = schemaEntry{ctx: sc, fetched: time.Now()}
	r.mu.Unlock()
	return sc, nil
}

// ListAll returns the tool surface for one request context: the fixed
// tools always, plus one tool per cached recipe for the target's API and
// schema version when the store is configured.
func (r *Registry) ListAll(ctx context.Context, rc *ReqContext) ([]model.Tool, error) {
	tools := r.fixedTools()
	if rc == nil || r.store == nil {
		return tools, nil
	}

	sc, err := r.schemaContext(ctx, rc)
	if err != nil {
		// Cached recipes are keyed by schema hash; without a schema the
		// fixed tools are still usable.
		r.log.Warn("schema fetch failed, listing fixed tools only",
			zap.String("target", rc.TargetURL), zap.Error(err))
		return tools, nil
	}

	dynamic := r.recipeTools(rc, sc)
	for _, dt := range dynamic {
		tools = append(tools, dt.tool)
	}
	return tools, nil
}

// Execute runs a tool by name with the given arguments. Fixed tools
// dispatch directly; any other name resolves against the dynamically
// listed recipe tools for this request's API and schema version.
func (r *Registry) Execute(ctx context.Context, rc *ReqContext, name string, args map[string]any) (any, error) {
	if handler, ok := r.handlers[name]; ok {
		return handler(ctx, rc, args)
	}
	if rc == nil || r.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	sc, err := r.schemaContext(ctx, rc)
	if err != nil {
		return nil, err
	}
	for _, dt := range r.recipeTools(rc, sc) {
		if dt.tool.Name == name {
			return r.invokeRecipe(ctx, rc, sc, dt.recipeID, args)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
}
