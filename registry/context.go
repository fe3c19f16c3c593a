package registry

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonwraymond/recipecache/recipe"
)

// ReqContext is the per-request configuration parsed from transport
// headers. One ReqContext is constructed per incoming request; nothing in
// it is ambient.
type ReqContext struct {
	// TargetURL is the GraphQL endpoint or OpenAPI spec URL.
	TargetURL string
	// APIType is "graphql" or "rest".
	APIType string
	// TargetHeaders are forwarded to the target API (auth, etc.).
	TargetHeaders map[string]string
	// AllowUnsafePaths are glob patterns permitting POST/PUT/PATCH/DELETE.
	AllowUnsafePaths []string
	// BaseURL overrides the spec-derived base URL (REST only).
	BaseURL string
	// IncludeResult opts in to the raw row set in pipeline responses.
	// Without it the data field carries a size-capped CSV rendering.
	IncludeResult bool
}

// Required and optional request headers.
const (
	HeaderTargetURL        = "X-Target-Url"
	HeaderAPIType          = "X-Api-Type"
	HeaderTargetHeaders    = "X-Target-Headers"
	HeaderAllowUnsafePaths = "X-Allow-Unsafe-Paths"
	HeaderBaseURL          = "X-Base-Url"
	HeaderIncludeResult    = "X-Include-Result"
)

// ParseReqContext extracts per-request context from headers.
// X-Target-URL and X-API-Type are required; X-API-Type must be "graphql"
// or "rest". Malformed optional JSON headers degrade to their zero values.
func ParseReqContext(headers http.Header) (*ReqContext, error) {
	targetURL := headers.Get(HeaderTargetURL)
	if targetURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, HeaderTargetURL)
	}
	apiType := headers.Get(HeaderAPIType)
	if apiType == "" {
		return nil, fmt.Errorf("%w: %s (graphql|rest)", ErrMissingHeader, HeaderAPIType)
	}
	if apiType != recipe.APITypeGraphQL && apiType != recipe.APITypeREST {
		return nil, fmt.Errorf("%w: %s must be graphql or rest, got %q", ErrMissingHeader, HeaderAPIType, apiType)
	}

	targetHeaders := map[string]string{}
	if raw := headers.Get(HeaderTargetHeaders); raw != "" {
		if err := json.Unmarshal([]byte(raw), &targetHeaders); err != nil {
			targetHeaders = map[string]string{}
		}
	}
	var allowUnsafe []string
	if raw := headers.Get(HeaderAllowUnsafePaths); raw != "" {
		if err := json.Unmarshal([]byte(raw), &allowUnsafe); err != nil {
			allowUnsafe = nil
		}
	}

	include := headers.Get(HeaderIncludeResult)
	return &ReqContext{
		TargetURL:        targetURL,
		APIType:          apiType,
		TargetHeaders:    targetHeaders,
		AllowUnsafePaths: allowUnsafe,
		BaseURL:          headers.Get(HeaderBaseURL),
		IncludeResult:    include == "true" || include == "1" || include == "yes",
	}, nil
}

// APIID builds the identifier recipes are stored under: the target
// endpoint, plus the resolved base URL for REST, so otherwise-identical
// schemas on different deployments do not share recipes.
func (rc *ReqContext) APIID(baseURL string) string {
	if rc.APIType == recipe.APITypeGraphQL {
		return "graphql:" + rc.TargetURL
	}
	return "rest:" + rc.TargetURL + "|" + baseURL
}
