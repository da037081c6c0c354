package ssp

// EvalContext is everything an attribute expression may see. Nothing outside
// it is reachable from an expression.
type EvalContext struct {
	// Element describes the host element (id, lang, attributes, page).
	Element map[string]any
	// Setting looks up a dot path in the weaker settings layers.
	Setting func(path string) (any, bool)
	Args    map[string]any
	// Field is the settings path the expression is being evaluated for.
	Field string
}

func (ctx EvalContext) withDefaults() EvalContext {
	if ctx.Element == nil {
		ctx.Element = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Setting == nil {
		ctx.Setting = func(string) (any, bool) { return nil, false }
	}
	return ctx
}

func (ctx EvalContext) fieldLabel() string {
	if ctx.Field != "" {
		return ctx.Field
	}
	return "unknown"
}

func (ctx EvalContext) lookup(path string) any {
	value, _ := ctx.Setting(path)
	return value
}

// Evaluator executes restricted expressions against an EvalContext.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx EvalContext) (any, error)
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		return "custom"
	}
}
