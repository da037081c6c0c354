package ssp

import (
	"errors"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "{twitter: missing}", "services", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "{twitter: missing}" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Field != "services" {
		t.Fatalf("expected field metadata, got %q", evalErr.Field)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "order", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Field != "order" {
		t.Fatalf("field should be filled, got %q", existing.Field)
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	prefixed := errors.New("ssp: already described")
	if got := wrapEvaluatorError("expr", prefixed); got != prefixed {
		t.Fatalf("expected prefixed error to pass through, got %v", got)
	}
	plain := errors.New("plain")
	if got := wrapEvaluatorError("expr", plain); !errors.Is(got, plain) || got.Error() != "ssp: expr evaluator: plain" {
		t.Fatalf("unexpected wrapped error %v", got)
	}
}

func TestEvaluationErrorPointsAtAttribute(t *testing.T) {
	err := &EvaluationError{Engine: "expr", Field: "services.twitter.txt_info", Err: errors.New("boom")}
	if got := err.Attribute(); got != "data-services.twitter.txt-info" {
		t.Fatalf("unexpected attribute %q", got)
	}
	if got := err.Network(); got != "twitter" {
		t.Fatalf("unexpected network %q", got)
	}

	top := &EvaluationError{Engine: "cel", Field: "txt_help", Err: errors.New("boom")}
	if top.Network() != "" || top.Attribute() != "data-txt-help" {
		t.Fatalf("unexpected top level metadata %q %q", top.Network(), top.Attribute())
	}
	if got := (&EvaluationError{Engine: "expr", Err: errors.New("boom")}).Error(); got != "ssp: expr evaluator expr=<empty> field=<unknown>: boom" {
		t.Fatalf("unexpected message %q", got)
	}
}
