package grammar

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestExpandSchemaDirectiveObjectWithRequiredFields(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "cdc.grammar")
	defer teardown()

	b := NewBuilder("")
	body := `{"type": "object", "properties": {"x": {"type": "integer"}, "y": {"type": "integer"}}, "required": ["x", "y"]}`
	if err := ExpandSchemaDirective(b, "#/definitions/point", body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("unexpected error resolving grammar: %v", err)
	}
	if g.Start().Name != "Schema_definitions_point" {
		t.Fatalf("expected the schema root rule to become the start symbol, got %q", g.Start().Name)
	}
}

func TestExpandSchemaDirectiveArrayOfStrings(t *testing.T) {
	b := NewBuilder("")
	body := `{"type": "array", "items": {"type": "string"}}`
	if err := ExpandSchemaDirective(b, "#/definitions/names", body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Grammar(); err != nil {
		t.Fatalf("unexpected error resolving grammar: %v", err)
	}
}

func TestExpandSchemaDirectiveEnum(t *testing.T) {
	b := NewBuilder("")
	body := `{"type": "string", "enum": ["red", "green", "blue"]}`
	if err := ExpandSchemaDirective(b, "#/definitions/color", body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Grammar(); err != nil {
		t.Fatalf("unexpected error resolving grammar: %v", err)
	}
}

func TestExpandSchemaDirectiveOneOfUnion(t *testing.T) {
	b := NewBuilder("")
	body := `{"oneOf": [{"type": "integer"}, {"type": "boolean"}]}`
	if err := ExpandSchemaDirective(b, "#/definitions/intOrBool", body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Grammar(); err != nil {
		t.Fatalf("unexpected error resolving grammar: %v", err)
	}
}

func TestExpandSchemaDirectiveRefWithinDefinitions(t *testing.T) {
	b := NewBuilder("")
	body := `{
		"type": "object",
		"properties": {"origin": {"$ref": "#/definitions/point"}},
		"required": ["origin"],
		"definitions": {"point": {"type": "object", "properties": {"x": {"type": "integer"}}, "required": ["x"]}}
	}`
	if err := ExpandSchemaDirective(b, "#/definitions/shape", body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Grammar(); err != nil {
		t.Fatalf("unexpected error resolving grammar with a same-document $ref: %v", err)
	}
}

func TestExpandSchemaDirectiveUnresolvedRefFails(t *testing.T) {
	b := NewBuilder("")
	body := `{"$ref": "#/definitions/missing"}`
	err := ExpandSchemaDirective(b, "#/definitions/broken", body)
	if err == nil {
		t.Fatalf("expected an error for an unresolved $ref")
	}
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != ErrKindSchemaDirectiveFail {
		t.Fatalf("expected ErrKindSchemaDirectiveFail, got %v", err)
	}
}

func TestExpandSchemaDirectiveInvalidJSONFails(t *testing.T) {
	b := NewBuilder("")
	err := ExpandSchemaDirective(b, "#/definitions/broken", `{not valid json`)
	if err == nil {
		t.Fatalf("expected an error for malformed JSON in the schema body")
	}
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != ErrKindSchemaDirectiveFail {
		t.Fatalf("expected ErrKindSchemaDirectiveFail, got %v", err)
	}
}

func TestExpandSchemaDirectiveMissingTypeFails(t *testing.T) {
	b := NewBuilder("")
	err := ExpandSchemaDirective(b, "#/definitions/broken", `{"description": "no type here"}`)
	if err == nil {
		t.Fatalf("expected an error for a schema with no recognizable type")
	}
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != ErrKindSchemaDirectiveFail {
		t.Fatalf("expected ErrKindSchemaDirectiveFail, got %v", err)
	}
}
