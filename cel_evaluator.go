package ssp

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithFunctionRegistry exposes registry functions through call(name, ...).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// celEvaluator runs expressions with cel-go. Map literal keys must be quoted
// strings in CEL: {"twitter": {"status": true}}.
type celEvaluator struct {
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	// The setting binding closes over ctx, so programs are built per
	// evaluation; a widget evaluates each attribute once.
	program, err := e.program(ctx, expression)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.fieldLabel(), err)
	}
	out, _, err := program.Eval(map[string]any{
		"element": ctx.Element,
		"args":    ctx.Args,
	})
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.fieldLabel(), err)
	}
	value, err := celNative(out)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.fieldLabel(), err)
	}
	return value, nil
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	if _, err := e.program(EvalContext{}.withDefaults(), expression); err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}
	return &celCompiledRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) program(ctx EvalContext, expression string) (celgo.Program, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("element", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Function("setting",
			celgo.Overload("setting_string", []*celgo.Type{celgo.StringType}, celgo.DynType,
				celgo.UnaryBinding(func(path ref.Val) ref.Val {
					key, ok := path.Value().(string)
					if !ok {
						return types.NewErr("ssp: setting path must be a string")
					}
					value, found := ctx.Setting(key)
					if !found || value == nil {
						return types.NullValue
					}
					return types.DefaultTypeAdapter.NativeToValue(value)
				}),
			),
		),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string_list", []*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)}, celgo.DynType,
				celgo.BinaryBinding(e.callBinding),
			),
		))
	}
	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

func (e *celEvaluator) callBinding(name, arguments ref.Val) ref.Val {
	fn, ok := name.Value().(string)
	if !ok {
		return types.NewErr("ssp: call name must be string")
	}
	native, err := celNative(arguments)
	if err != nil {
		return types.NewErr("%s", err)
	}
	list, _ := native.([]any)
	result, err := e.registry.Call(fn, list...)
	if err != nil {
		return types.NewErr("%s", err)
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx EvalContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}

// celNative converts CEL values, including nested maps and lists, into plain
// Go values usable by the settings merge.
func celNative(value ref.Val) (any, error) {
	switch v := value.(type) {
	case traits.Mapper:
		out := map[string]any{}
		it := v.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			name, ok := key.Value().(string)
			if !ok {
				return nil, fmt.Errorf("map key %v is not a string", key.Value())
			}
			nested, err := celNative(v.Get(key))
			if err != nil {
				return nil, err
			}
			out[name] = nested
		}
		return out, nil
	case traits.Lister:
		size, ok := v.Size().Value().(int64)
		if !ok {
			return nil, fmt.Errorf("list size is not an integer")
		}
		out := make([]any, 0, size)
		for i := int64(0); i < size; i++ {
			nested, err := celNative(v.Get(types.Int(i)))
			if err != nil {
				return nil, err
			}
			out = append(out, nested)
		}
		return out, nil
	}
	if value == types.NullValue {
		return nil, nil
	}
	if types.IsError(value) {
		return nil, fmt.Errorf("%v", value.Value())
	}
	return value.Value(), nil
}
