package engine

import (
	"context"
	"errors"

	"github.com/jonwraymond/recipecache/recipe"
)

// Outcome is what a StepExecutor reports for one API step.
type Outcome struct {
	// OK reports whether the step succeeded. On false the whole replay
	// aborts with Err.
	OK bool
	// Data is the step's extracted tabular data, if any; it lands in the
	// last-result slot.
	Data any
	// Err describes the failure when OK is false.
	Err string
	// Record describes the executed call for reporting back to the caller.
	// Nil records are not accumulated.
	Record any
}

// StepExecutor performs one API step: render the step's templates with
// params, make the live call, merge returned tables into state under the
// step's output name, and report the outcome. The indirection lets the
// same engine serve both GraphQL and REST.
type StepExecutor func(ctx context.Context, index int, step recipe.Step, params map[string]any, state *State) Outcome

// QueryRunner runs one SQL query over named in-memory result sets.
type QueryRunner interface {
	Run(ctx context.Context, tables map[string][]map[string]any, query string) ([]map[string]any, error)
}

// RunResult reports a replay: overall success, the last computed data, the
// SQL actually executed, the accumulated call records, and the first error
// if any. Step failures are results, not Go errors, so the caller decides
// how to present partial progress.
type RunResult struct {
	Success     bool
	LastData    any
	ExecutedSQL []string
	Executed    []any
	Err         string
}

// Run replays a recipe's steps with bound parameter values. The API phase
// aborts on the first failed step with no SQL attempted; the SQL phase
// aborts on its first failure with the already-executed SQL reported.
// Cancellation is honored between steps only.
func Run(ctx context.Context, rec *recipe.Recipe, params map[string]any, state *State, exec StepExecutor, runner QueryRunner) *RunResult {
	result := &RunResult{ExecutedSQL: []string{}}

	for i, step := range rec.Steps {
		if err := ctx.Err(); err != nil {
			result.Err = err.Error()
			return result
		}

		outcome := exec(ctx, i, step, params, state)
		if !outcome.OK {
			result.Err = outcome.Err
			return result
		}
		if outcome.Record != nil {
			result.Executed = append(result.Executed, outcome.Record)
		}
		if outcome.Data != nil {
			state.SetLast(outcome.Data)
		}
	}

	for _, tmpl := range rec.SQLSteps {
		if err := ctx.Err(); err != nil {
			result.Err = err.Error()
			return result
		}

		query, err := recipe.RenderText(tmpl, params)
		if err != nil {
			result.Err = err.Error()
			return result
		}
		rows, err := runner.Run(ctx, state.Tables(), query)
		result.ExecutedSQL = append(result.ExecutedSQL, query)
		if err != nil {
			result.Err = err.Error()
			return result
		}
		state.SetLast(rows)
	}

	result.Success = true
	result.LastData = state.Last()
	return result
}

// ErrBadStep reports a malformed step reaching the engine: a programming
// contract violation, not an expected runtime condition.
var ErrBadStep = errors.New("malformed recipe step")
