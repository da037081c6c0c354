package layering

import (
	"reflect"
	"testing"
)

func TestMergeMapsKeepsSiblingFieldsOfPartialOverride(t *testing.T) {
	defaults := map[string]any{
		"layout": "line",
		"services": map[string]any{
			"twitter": map[string]any{
				"status":   false,
				"txt_info": "two clicks",
				"privacy":  "unsafe",
			},
		},
	}
	caller := map[string]any{
		"services": map[string]any{
			"twitter": map[string]any{"status": true},
		},
	}
	attributes := map[string]any{
		"layout": "box",
	}

	got := MergeMaps(attributes, caller, defaults)

	want := map[string]any{
		"layout": "box",
		"services": map[string]any{
			"twitter": map[string]any{
				"status":   true,
				"txt_info": "two clicks",
				"privacy":  "unsafe",
			},
		},
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merged settings mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestMergeMapsReplacesSequences(t *testing.T) {
	got := MergeMaps(
		map[string]any{"order": []any{"twitter"}},
		map[string]any{"order": []any{"facebook", "buffer"}},
	)
	order, ok := got["order"].([]any)
	if !ok || len(order) != 1 || order[0] != "twitter" {
		t.Fatalf("expected stronger sequence to replace weaker one, got %#v", got["order"])
	}
}

func TestMergeMapsScalarReplacesMapping(t *testing.T) {
	got := MergeMaps(
		map[string]any{"services": "not-a-map"},
		map[string]any{"services": map[string]any{"mail": map[string]any{}}},
	)
	if got["services"] != "not-a-map" {
		t.Fatalf("expected scalar to win over mapping, got %#v", got["services"])
	}
}

func TestMergeMapsDoesNotMutateInputs(t *testing.T) {
	weak := map[string]any{"services": map[string]any{"mail": map[string]any{"status": false}}}
	strong := map[string]any{"services": map[string]any{"mail": map[string]any{"status": true}}}

	got := MergeMaps(strong, weak)
	got["services"].(map[string]any)["mail"].(map[string]any)["status"] = "changed"

	if weak["services"].(map[string]any)["mail"].(map[string]any)["status"] != false {
		t.Fatalf("weak layer mutated: %#v", weak)
	}
	if strong["services"].(map[string]any)["mail"].(map[string]any)["status"] != true {
		t.Fatalf("strong layer mutated: %#v", strong)
	}
}

func TestMergeMapsSkipsNilLayers(t *testing.T) {
	got := MergeMaps(nil, map[string]any{"language": "de"}, nil)
	if got["language"] != "de" {
		t.Fatalf("expected language from the only layer, got %#v", got)
	}
	if empty := MergeMaps(); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", empty)
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	type sample struct {
		Value int
	}
	var zero sample
	if got := MergeLayers[sample](); got != zero {
		t.Fatalf("expected MergeLayers() to return zero value, got %+v", got)
	}
}

func TestCloneDetachesNestedMaps(t *testing.T) {
	original := map[string]any{"services": map[string]any{"xing": map[string]any{"status": true}}}
	cloned := Clone(original)
	cloned["services"].(map[string]any)["xing"].(map[string]any)["status"] = false

	if original["services"].(map[string]any)["xing"].(map[string]any)["status"] != true {
		t.Fatalf("clone shares nested state with original")
	}
}
