package grammar

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// jsonSchema is the minimal subset of JSON Schema the %schema directive
// understands: enough to drive a JSON-shaped grammar (objects, arrays,
// strings/enums, numbers, booleans, $ref within the same document, and
// oneOf/anyOf unions). Anything richer (allOf, conditional schemas,
// external $refs) is out of scope — CDC consumes schemas to constrain
// generation, it does not validate them as a general-purpose tool would.
type jsonSchema struct {
	Type                 interface{}            `json:"type"`
	Properties           map[string]*jsonSchema  `json:"properties"`
	Required             []string                `json:"required"`
	Items                *jsonSchema             `json:"items"`
	Enum                 []interface{}           `json:"enum"`
	Ref                  string                  `json:"$ref"`
	OneOf                []*jsonSchema           `json:"oneOf"`
	AnyOf                []*jsonSchema           `json:"anyOf"`
	AdditionalProperties *bool                   `json:"additionalProperties"`
	Definitions          map[string]*jsonSchema  `json:"definitions"`
	Defs                 map[string]*jsonSchema  `json:"$defs"`
}

// ExpandSchemaDirective parses a %schema directive's raw JSON body and
// expands it into a tree of rules rooted at a non-terminal derived from
// pointer, appended onto b (§4.1 step 1, "schema compilation"). It is the
// term-rewriting step the spec's Grammar Compiler performs before the usual
// EBNF rule set is closed over: in the teacher's idiom this plays the role
// gorgo's terex/termr rewrite engine plays for math layout — rewriting one
// tree shape (here, a JSON Schema document) into another (grammar rules) —
// but is implemented as a direct recursive walk rather than through terex's
// s-expression rewrite rules, since a JSON document's shape has no use for
// terex's Lisp-like AST.
func ExpandSchemaDirective(b *GrammarBuilder, pointer, rawBody string) error {
	var root jsonSchema
	if err := json.Unmarshal([]byte(rawBody), &root); err != nil {
		return &Error{Kind: ErrKindSchemaDirectiveFail, Pointer: pointer,
			Message: fmt.Sprintf("invalid JSON in %%schema body: %v", err)}
	}
	defs := map[string]*jsonSchema{}
	for k, v := range root.Definitions {
		defs[k] = v
	}
	for k, v := range root.Defs {
		defs[k] = v
	}
	ruleName := ruleNameForPointer(pointer)
	expander := &schemaExpander{b: b, defs: defs, seen: map[string]bool{}}
	if err := expander.expand(ruleName, &root); err != nil {
		return err
	}
	return nil
}

func ruleNameForPointer(pointer string) string {
	name := strings.TrimPrefix(pointer, "#/")
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" || name == pointer {
		return "Schema"
	}
	return "Schema_" + name
}

type schemaExpander struct {
	b    *GrammarBuilder
	defs map[string]*jsonSchema
	seen map[string]bool // rule names already expanded, guards against $ref cycles
}

func (e *schemaExpander) expand(ruleName string, s *jsonSchema) error {
	if e.seen[ruleName] {
		return nil
	}
	e.seen[ruleName] = true

	if s.Ref != "" {
		target, ok := e.resolveRef(s.Ref)
		if !ok {
			return &Error{Kind: ErrKindSchemaDirectiveFail, Pointer: s.Ref,
				Message: "unresolved $ref"}
		}
		refName := ruleNameForPointer(s.Ref)
		// Declare ruleName (forward-referencing refName) before expanding
		// the ref's target, so ruleName remains the first LHS seen when a
		// bare $ref sits at a schema's top level.
		e.b.LHS(ruleName).N(refName).End()
		return e.expand(refName, target)
	}

	if len(s.Enum) > 0 {
		return e.expandEnum(ruleName, s.Enum)
	}
	if len(s.OneOf) > 0 {
		return e.expandUnion(ruleName, s.OneOf)
	}
	if len(s.AnyOf) > 0 {
		return e.expandUnion(ruleName, s.AnyOf)
	}

	switch typeName(s.Type) {
	case "object":
		return e.expandObject(ruleName, s)
	case "array":
		return e.expandArray(ruleName, s)
	case "string":
		e.b.LHS(ruleName).T(ruleName+"_LIT", `"([^"\\]|\\.)*"`).End()
		return nil
	case "integer":
		e.b.LHS(ruleName).T(ruleName+"_LIT", `-?[0-9]+`).End()
		return nil
	case "number":
		e.b.LHS(ruleName).T(ruleName+"_LIT", `-?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?`).End()
		return nil
	case "boolean":
		e.b.LHS(ruleName).T(ruleName+"_LIT", `true|false`).End()
		return nil
	case "null":
		e.b.LHS(ruleName).T(ruleName+"_LIT", `null`).End()
		return nil
	default:
		return &Error{Kind: ErrKindSchemaDirectiveFail, Pointer: ruleName,
			Message: fmt.Sprintf("unsupported or missing schema type %v", s.Type)}
	}
}

func (e *schemaExpander) resolveRef(ref string) (*jsonSchema, bool) {
	name := strings.TrimPrefix(ref, "#/definitions/")
	name = strings.TrimPrefix(name, "#/$defs/")
	target, ok := e.defs[name]
	return target, ok
}

func (e *schemaExpander) expandEnum(ruleName string, values []interface{}) error {
	b := e.b
	for i, v := range values {
		rb := b.LHS(ruleName)
		lit := enumLiteral(v)
		rb.T(fmt.Sprintf("%s_ENUM%d", ruleName, i), lit)
		rb.End()
	}
	return nil
}

func enumLiteral(v interface{}) string {
	switch x := v.(type) {
	case string:
		return `"` + regexpQuoteLiteral(x) + `"`
	case float64:
		return regexpQuoteLiteral(strconv.FormatFloat(x, 'g', -1, 64))
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(v)
		return regexpQuoteLiteral(string(b))
	}
}

func regexpQuoteLiteral(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (e *schemaExpander) expandUnion(ruleName string, alts []*jsonSchema) error {
	// Declare all of ruleName's alternatives (forward-referencing each
	// branch) before expanding any branch, so ruleName itself is the first
	// LHS the builder sees when a union sits at a schema's top level.
	branches := make([]string, len(alts))
	for i := range alts {
		branchName := fmt.Sprintf("%s_alt%d", ruleName, i)
		branches[i] = branchName
		e.b.LHS(ruleName).N(branchName).End()
	}
	for i, alt := range alts {
		if err := e.expand(branches[i], alt); err != nil {
			return err
		}
	}
	return nil
}

func (e *schemaExpander) expandObject(ruleName string, s *jsonSchema) error {
	required := map[string]bool{}
	for _, r := range s.Required {
		required[r] = true
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic rule emission, mirrors automaton.go's sorted symbol order

	rb := e.b.LHS(ruleName)
	rb.T(ruleName+"_LBRACE", `\{`)
	for i, name := range names {
		if i > 0 {
			rb.T(ruleName+"_COMMA", `,`)
		}
		propRule := fmt.Sprintf("%s_prop_%s", ruleName, name)
		fieldRule := fmt.Sprintf("%s_field_%s", ruleName, name)
		rb.N(fieldRule)
		if err := e.expandField(fieldRule, propRule, name, s.Properties[name]); err != nil {
			return err
		}
	}
	rb.T(ruleName+"_RBRACE", `\}`)
	rb.End()
	return nil
}

func (e *schemaExpander) expandField(fieldRule, propRule, propName string, propSchema *jsonSchema) error {
	if err := e.expand(propRule, propSchema); err != nil {
		return err
	}
	rb := e.b.LHS(fieldRule)
	rb.T(fieldRule+"_KEY", `"`+propName+`"`)
	rb.T(fieldRule+"_COLON", `:`)
	rb.N(propRule)
	rb.End()
	return nil
}

func (e *schemaExpander) expandArray(ruleName string, s *jsonSchema) error {
	if s.Items == nil {
		return &Error{Kind: ErrKindSchemaDirectiveFail, Pointer: ruleName,
			Message: "array schema without an 'items' sub-schema"}
	}
	itemRule := ruleName + "_item"
	restRule := ruleName + "_rest"

	// Declare ruleName's own rules before descending into the item
	// sub-schema: a %schema directive rooted at an array must have ruleName
	// be the first LHS the builder sees, so it (not some nested item rule)
	// ends up as the grammar's start symbol when the array is the schema's
	// top-level shape.
	e.b.LHS(ruleName).T(ruleName+"_LBRACK", `\[`).T(ruleName+"_RBRACK", `\]`).End()
	e.b.LHS(ruleName).T(ruleName+"_LBRACK", `\[`).N(itemRule).N(restRule).T(ruleName+"_RBRACK", `\]`).End()
	e.b.LHS(restRule).Epsilon().End()
	e.b.LHS(restRule).T(restRule+"_COMMA", `,`).N(itemRule).N(restRule).End()

	return e.expand(itemRule, s.Items)
}

func typeName(t interface{}) string {
	switch v := t.(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
