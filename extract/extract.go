// Package extract decides when a successful execution trace becomes a
// stored recipe.
//
// The Extractor itself is an external collaborator, typically backed by a
// generative process, and its output is untrusted: every candidate passes
// parameter-usage and equivalence validation before persistence, with no
// bypass for non-generative producers. This boundary is the system's main
// trust barrier.
//
// Extraction is best-effort. Its failure is logged and swallowed; it never
// disrupts the caller's already-successful primary response.
package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonwraymond/recipecache/recipe"
	"github.com/jonwraymond/recipecache/schema"
	"github.com/jonwraymond/recipecache/store"
)

// Extractor converts an execution trace into a candidate recipe. A nil
// recipe with a nil error means the extractor declined. The orchestrator
// treats any output as untrusted input requiring full validation.
type Extractor interface {
	Extract(ctx context.Context, apiType, question string, steps []recipe.TraceStep, sqlSteps []string) (*recipe.Recipe, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, apiType, question string, steps []recipe.TraceStep, sqlSteps []string) (*recipe.Recipe, error)

// Extract implements Extractor.
func (f Func) Extract(ctx context.Context, apiType, question string, steps []recipe.TraceStep, sqlSteps []string) (*recipe.Recipe, error) {
	return f(ctx, apiType, question, steps, sqlSteps)
}

// Orchestrator guards, runs, validates, and persists extraction attempts.
type Orchestrator struct {
	store     *store.Store
	extractor Extractor
	enabled   bool
	log       *zap.Logger
}

// Config configures an Orchestrator.
type Config struct {
	Store     *store.Store
	Extractor Extractor
	// Enabled gates the whole feature. Disabled orchestrators skip
	// silently.
	Enabled bool
	// Logger receives outcome and failure events. Nil means no logging.
	Logger *zap.Logger
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:     cfg.Store,
		extractor: cfg.Extractor,
		enabled:   cfg.Enabled,
		log:       log,
	}
}

// MaybeExtractAndSave attempts to turn a successful execution trace into a
// stored recipe. Each guard short-circuits: feature disabled, caller skip
// condition (e.g. the trace used a polling pattern recipes cannot
// represent), no executed steps, or no schema to fingerprint against.
// Every downstream failure is terminal for this attempt only; nothing
// propagates to the caller.
func (o *Orchestrator) MaybeExtractAndSave(ctx context.Context, apiType, apiID, question string, steps []recipe.TraceStep, sqlSteps []string, rawSchema []byte, skipCondition bool) {
	if !o.enabled || o.extractor == nil || o.store == nil {
		return
	}
	if skipCondition {
		o.log.Debug("skipping recipe extraction", zap.String("reason", "skip condition"))
		return
	}
	if len(steps) == 0 || len(rawSchema) == 0 {
		return
	}

	schemaHash := schema.Fingerprint(rawSchema)

	candidate, err := o.extractor.Extract(ctx, apiType, question, steps, sqlSteps)
	if err != nil {
		o.log.Warn("recipe extraction failed", zap.Error(err))
		return
	}
	if candidate == nil {
		return
	}

	accepted, err := Vet(apiType, steps, sqlSteps, candidate)
	if err != nil {
		o.log.Warn("recipe candidate rejected", zap.Error(err))
		return
	}

	recipeID := o.store.Save(apiID, schemaHash, question, accepted, accepted.ToolName)
	o.log.Info("recipe saved",
		zap.String("recipe_id", recipeID),
		zap.String("tool_name", accepted.ToolName),
		zap.Int("steps", len(accepted.Steps)),
		zap.Int("sql_steps", len(accepted.SQLSteps)),
	)
}

// Vet runs the full acceptance pipeline on an untrusted candidate:
// structural checks, tool-name validation, parameter-usage consistency
// (pruning orphan declarations), and render-back equivalence against the
// original trace. It returns the accepted (possibly pruned) recipe.
func Vet(apiType string, steps []recipe.TraceStep, sqlSteps []string, candidate *recipe.Recipe) (*recipe.Recipe, error) {
	if candidate.Steps == nil || candidate.SQLSteps == nil {
		return nil, fmt.Errorf("%w: candidate missing steps", recipe.ErrInvalid)
	}
	if err := recipe.ValidateToolName(candidate.ToolName); err != nil {
		return nil, err
	}

	accepted, err := recipe.CheckParamUsage(candidate, apiType)
	if err != nil {
		return nil, err
	}
	if !recipe.ValidateEquivalence(apiType, steps, sqlSteps, accepted) {
		return nil, fmt.Errorf("%w: candidate does not render back to original execution", recipe.ErrInvalid)
	}
	return accepted, nil
}
