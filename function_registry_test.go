package ssp

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFunctionRegistryRegisterAndCall(t *testing.T) {
	registry := NewFunctionRegistry()
	upper := func(args ...any) (any, error) {
		return strings.ToUpper(args[0].(string)), nil
	}
	if err := registry.Register("Upper", upper); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("upper", upper); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	got, err := registry.Call("UPPER", "buffer")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "BUFFER" {
		t.Fatalf("expected BUFFER, got %v", got)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected unregistered function to fail")
	}
}

func TestFunctionRegistryRejectsReservedNames(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(args ...any) (any, error) { return nil, nil }
	for _, name := range []string{"setting", "Element", "args"} {
		if err := registry.Register(name, fn); err == nil {
			t.Fatalf("expected %q to be reserved", name)
		}
	}
}

func TestFunctionRegistryCloneIsIndependent(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(args ...any) (any, error) { return "x", nil }
	_ = registry.Register("a", fn)
	clone := registry.Clone()
	_ = clone.Register("b", fn)

	if got := registry.Names(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("original registry changed: %v", got)
	}
	if got := clone.Names(); len(got) != 2 {
		t.Fatalf("expected clone to hold two functions, got %v", got)
	}
}

func TestShareFunctions(t *testing.T) {
	registry := ShareFunctions()
	cases := []struct {
		name string
		args []any
		want any
	}{
		{name: "urlencode", args: []any{"a b&c"}, want: "a+b%26c"},
		{name: "hostname", args: []any{"https://www.example.com:8080/post"}, want: "www.example.com"},
		{name: "truncate", args: []any{"Grüße aus Köln", 5}, want: "Grüße…"},
		{name: "truncate", args: []any{"short", int64(10)}, want: "short"},
		{name: "truncate", args: []any{"short", float64(2)}, want: "sh…"},
	}
	for _, tc := range cases {
		got, err := registry.Call(tc.name, tc.args...)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s(%v): expected %q, got %q", tc.name, tc.args, tc.want, got)
		}
	}
	if _, err := registry.Call("truncate", "text", 1.5); err == nil {
		t.Fatalf("expected fractional limit to fail")
	}
	if _, err := registry.Call("urlencode", 42); err == nil {
		t.Fatalf("expected non-string argument to fail")
	}
}

func TestShareFunctionsInAttributes(t *testing.T) {
	host := &Host{
		ID: "share",
		Attributes: map[string]string{
			"data-services":              "{twitter: {status: true}}",
			"data-services.twitter.text": "${truncate(element.page.title, 4) + \" via \" + hostname(element.page.url)}",
		},
		Page: Page{URL: "https://blog.example.com/post", Title: "Privacy first"},
	}
	res, err := Resolve(DefaultConfig(), nil, host)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := res.Config.Services["twitter"].Text; got != "Priv… via blog.example.com" {
		t.Fatalf("unexpected derived text %q", got)
	}
}

func TestRejectedCustomFunctionsFailResolve(t *testing.T) {
	var called bool
	custom := func(args ...any) (any, error) {
		called = true
		return "custom", nil
	}
	host := &Host{
		Attributes: map[string]string{
			"data-services":              "{twitter: {status: true}}",
			"data-services.twitter.text": `${urlencode("a b")}`,
		},
	}
	opts := []Option{WithCustomFunction("urlencode", custom), WithCustomFunction("setting", custom)}

	_, err := Resolve(DefaultConfig(), nil, host, opts...)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	for _, field := range []string{"functions.urlencode", "functions.setting"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %s in %v", field, err)
		}
	}
	if called {
		t.Fatalf("expressions must not run after a rejected option")
	}

	if _, err := Mount(context.Background(), host, nil, opts...); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected mount to fail, got %v", err)
	}
	if _, err := ParseAttributes(host, opts...); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected attribute parsing to fail, got %v", err)
	}
}
