// Package openapi derives form profiles from OpenAPI operations: the request
// body schema's properties become field declarations with inferred types, so
// forms can be declared once in the API document and validated server-side.
package openapi

import (
	"context"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbind/pkg/profile"
)

const jsonContentType = "application/json"

// LoadFile loads an OpenAPI document and derives the profile for one
// operation.
func LoadFile(path, operationID string) (*profile.Profile, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapi profile: load %s: %w", path, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("openapi profile: validate %s: %w", path, err)
	}
	return FromOperation(doc, operationID)
}

// FromOperation maps an operation's JSON request body schema onto a profile:
// schema `required` entries become required declarations, everything else
// optional, with field types inferred from schema types and formats.
func FromOperation(doc *openapi3.T, operationID string) (*profile.Profile, error) {
	op := findOperation(doc, operationID)
	if op == nil {
		return nil, fmt.Errorf("openapi profile: operation %q not found", operationID)
	}

	schema := requestSchema(op)
	if schema == nil {
		return nil, fmt.Errorf("openapi profile: operation %q has no JSON request body", operationID)
	}

	requiredSet := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		requiredSet[name] = struct{}{}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	prof := &profile.Profile{Name: operationID}
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		decl := declFromSchema(name, ref.Value)
		if _, required := requiredSet[name]; required {
			prof.Required = append(prof.Required, decl)
		} else {
			prof.Optional = append(prof.Optional, decl)
		}
	}

	if err := prof.Validate(); err != nil {
		return nil, err
	}
	return prof, nil
}

func findOperation(doc *openapi3.T, operationID string) *openapi3.Operation {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	for _, item := range doc.Paths.Map() {
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get(jsonContentType)
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}

func declFromSchema(name string, schema *openapi3.Schema) profile.Decl {
	decl := profile.Decl{
		Name:  name,
		Label: schema.Title,
		Type:  inferType(schema),
	}

	switch decl.Type {
	case "select":
		decl.Options = optionsFromEnum(schema.Enum)
	case "multiple":
		if schema.Items != nil && schema.Items.Value != nil {
			decl.Options = optionsFromEnum(schema.Items.Value.Enum)
		}
	case "password":
		decl.Password = true
	case "integer", "posinteger", "number":
		decl.Min = schema.Min
		decl.Max = schema.Max
	}

	return decl
}

// inferType maps schema types onto field kinds: enums become choice fields,
// arrays multi-selects, formats pick the specialized kinds.
func inferType(schema *openapi3.Schema) string {
	if len(schema.Enum) > 0 {
		return "select"
	}

	switch {
	case schema.Type.Is(openapi3.TypeArray):
		return "multiple"
	case schema.Type.Is(openapi3.TypeInteger):
		if schema.Min != nil && *schema.Min >= 0 {
			return "posinteger"
		}
		return "integer"
	case schema.Type.Is(openapi3.TypeNumber):
		return "number"
	case schema.Type.Is(openapi3.TypeBoolean):
		return "boolean"
	}

	switch schema.Format {
	case "date", "date-time":
		return "date"
	case "email":
		return "email"
	case "uri", "url":
		return "url"
	case "password":
		return "password"
	}
	return "text"
}

func optionsFromEnum(enum []any) []profile.Option {
	options := make([]profile.Option, 0, len(enum))
	for _, value := range enum {
		str := fmt.Sprint(value)
		options = append(options, profile.Option{Value: str, Label: str})
	}
	if len(options) == 0 {
		return nil
	}
	return options
}
