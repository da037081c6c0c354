package ssp

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Field  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	field := e.Field
	if field == "" {
		field = "<unknown>"
	}
	return fmt.Sprintf("ssp: %s evaluator %s field=%s: %v", e.Engine, describeExpression(e.Expr), field, e.Err)
}

// Attribute names the host attribute that sets Field, e.g.
// "data-services.twitter.txt-info" for "services.twitter.txt_info".
func (e *EvaluationError) Attribute() string {
	if e == nil || e.Field == "" {
		return ""
	}
	return AttributePrefix + strings.ReplaceAll(e.Field, "_", "-")
}

// Network returns the service the failing field belongs to, if any.
func (e *EvaluationError) Network() string {
	if e == nil {
		return ""
	}
	parts := strings.SplitN(e.Field, ".", 3)
	if len(parts) < 2 || parts[0] != "services" {
		return ""
	}
	return parts[1]
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	if strings.HasPrefix(err.Error(), "ssp:") {
		return err
	}
	return fmt.Errorf("ssp: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, field string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Field == "" {
			evalErr.Field = field
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Field:  field,
		Err:    err,
	}
}
