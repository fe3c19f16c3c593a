package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jonwraymond/recipecache/extract"
	"github.com/jonwraymond/recipecache/registry"
	"github.com/jonwraymond/recipecache/store"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "recipecached",
	Short: "MCP server for API pipelines with recipe caching",
	Long: `recipecached serves GraphQL and REST targets over MCP: live execution,
schema search, SQL over collected results, and a cache of validated,
parameterized pipeline recipes replayable as tools.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("addr", ":8080", "listen address for http/sse transports")
	flags.String("transport", "http", "transport: stdio, http, or sse")
	flags.Int("recipe-cache-size", store.DefaultCapacity, "max cached recipes before LRU eviction")
	flags.Bool("enable-recipes", true, "extract and cache recipes from successful pipelines")
	flags.Int("suggest-limit", registry.DefaultSuggestLimit, "default number of recipe suggestions")
	flags.Int("max-response-chars", registry.DefaultMaxResponseChars, "truncate tool output beyond this size")
	flags.Duration("schema-ttl", registry.DefaultSchemaTTL, "how long fetched schemas are reused")
	flags.Bool("debug", false, "verbose development logging")

	// Target context for the stdio transport, which has no request headers.
	flags.String("target-url", "", "GraphQL endpoint or OpenAPI spec URL (stdio)")
	flags.String("api-type", "", "graphql or rest (stdio)")
	flags.String("target-headers", "", "JSON object of headers forwarded to the target (stdio)")
	flags.String("base-url", "", "REST base URL override (stdio)")
	flags.String("allow-unsafe-paths", "", "JSON array of glob patterns permitting mutating methods (stdio)")
	flags.Bool("include-result", false, "return raw row sets instead of capped CSV (stdio)")

	viper.SetEnvPrefix("RECIPECACHE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, name := range []string{
		"addr", "transport", "recipe-cache-size", "enable-recipes",
		"suggest-limit", "max-response-chars", "schema-ttl", "debug",
		"target-url", "api-type", "target-headers", "base-url", "allow-unsafe-paths",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func serve(ctx context.Context) error {
	debug := viper.GetBool("debug")
	logger, err := buildLogger(debug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	st := store.New(store.Config{
		Capacity: viper.GetInt("recipe-cache-size"),
		Logger:   logger.Named("store"),
	})
	extractor := extract.New(extract.Config{
		Store:     st,
		Extractor: extract.LiteralExtractor{},
		Enabled:   viper.GetBool("enable-recipes"),
		Logger:    logger.Named("extract"),
	})

	reg := registry.New(registry.Config{
		ServerInfo:       registry.ServerInfo{Name: "recipecached", Version: version},
		Store:            st,
		Extractor:        extractor,
		Logger:           logger.Named("registry"),
		SchemaTTL:        viper.GetDuration("schema-ttl"),
		SuggestLimit:     viper.GetInt("suggest-limit"),
		MaxResponseChars: viper.GetInt("max-response-chars"),
		StdioHeaders:     stdioHeaders(),
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport := viper.GetString("transport")
	logger.Info("starting recipecached",
		zap.String("transport", transport),
		zap.String("addr", viper.GetString("addr")),
		zap.Bool("recipes_enabled", viper.GetBool("enable-recipes")),
	)

	switch transport {
	case "stdio":
		return registry.ServeStdio(ctx, reg)
	case "http", "sse":
		return serveNetwork(ctx, reg, transport, viper.GetString("addr"), logger)
	default:
		return fmt.Errorf("unknown transport %q: want stdio, http, or sse", transport)
	}
}

func serveNetwork(ctx context.Context, reg *registry.Registry, transport, addr string, logger *zap.Logger) error {
	var handler http.Handler
	if transport == "sse" {
		handler = registry.ServeSSE(reg)
	} else {
		handler = registry.ServeHTTP(reg)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// stdioHeaders assembles the static target context the stdio transport
// uses in place of per-request headers.
func stdioHeaders() map[string]string {
	headers := map[string]string{}
	set := func(header, key string) {
		if v := viper.GetString(key); v != "" {
			headers[header] = v
		}
	}
	set(registry.HeaderTargetURL, "target-url")
	set(registry.HeaderAPIType, "api-type")
	set(registry.HeaderTargetHeaders, "target-headers")
	set(registry.HeaderBaseURL, "base-url")
	set(registry.HeaderAllowUnsafePaths, "allow-unsafe-paths")
	if viper.GetBool("include-result") {
		headers[registry.HeaderIncludeResult] = "true"
	}
	return headers
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
