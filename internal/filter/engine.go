package filter

import (
	"context"
	"encoding/json"

	"github.com/rendis/txlens/pkg/schema"
)

// Engine evaluates filter expressions against operation data.
// Three implementations: CEL (conditions), Expr (logic), GoJQ (extraction).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// OperationEnv builds the expression environment for a single operation.
// The operation is exposed under "op" as a plain map so every dialect can
// address fields uniformly.
func OperationEnv(op *schema.Operation) (map[string]any, error) {
	opMap, err := toMap(op)
	if err != nil {
		return nil, err
	}
	return map[string]any{"op": opMap}, nil
}

// Operations applies a boolean filter expression to each operation and
// returns the ones it accepts, preserving order. A non-boolean result is a
// validation error; evaluation errors carry the offending expression.
func Operations(ctx context.Context, eng Engine, expression string, ops []schema.Operation) ([]schema.Operation, error) {
	if expression == "" {
		return ops, nil
	}

	kept := make([]schema.Operation, 0, len(ops))
	for i := range ops {
		env, err := OperationEnv(&ops[i])
		if err != nil {
			return nil, err
		}
		out, err := eng.Evaluate(ctx, expression, env)
		if err != nil {
			return nil, err
		}
		keep, ok := out.(bool)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"filter expression %q must return a boolean, got %T", expression, out)
		}
		if keep {
			kept = append(kept, ops[i])
		}
	}
	return kept, nil
}

// toMap converts a value to a generic map via JSON round-trip.
func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "marshal filter input: %s", err.Error()).WithCause(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unmarshal filter input: %s", err.Error()).WithCause(err)
	}
	return m, nil
}
