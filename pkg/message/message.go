// Package message provides the message-lookup capability used by field and
// form validation. Resolvers turn a stable message key plus arguments into a
// user-facing string; the default catalog ships English messages and callers
// swap in their own resolver for localization.
package message

import (
	"fmt"
	"strings"
)

// Resolver resolves a message key and optional printf-style arguments into a
// display string. Implementations must be safe for concurrent reads; the form
// layer treats resolvers as read-only after construction.
type Resolver interface {
	Resolve(key string, args ...any) string
}

// Canonical keys emitted by the built-in validation cycle. Custom catalogs
// should provide templates for all of them.
const (
	KeyRequired     = "required"
	KeyMultiple     = "multiple"
	KeyOption       = "option"
	KeyRangeBetween = "range.between"
	KeyRangeMin     = "range.min"
	KeyRangeMax     = "range.max"
	KeyInteger      = "integer"
	KeyPosInteger   = "posinteger"
	KeyNumber       = "number"
	KeyBoolean      = "boolean"
	KeyDate         = "date"
	KeyEmail        = "email"
	KeyURL          = "url"
	KeyUnique       = "unique"
)

// Catalog is a map-backed Resolver. Templates use fmt verbs; a missing key
// falls back to the key itself so a misconfigured catalog still surfaces
// something actionable instead of an empty error.
type Catalog map[string]string

// Resolve implements Resolver.
func (c Catalog) Resolve(key string, args ...any) string {
	template, ok := c[key]
	if !ok {
		template = key
	}
	if len(args) == 0 {
		return template
	}
	msg := fmt.Sprintf(template, args...)
	// fmt flags surplus arguments inline; trim the noise when a fallback key
	// carried no verbs.
	if idx := strings.Index(msg, "%!(EXTRA"); idx >= 0 {
		msg = strings.TrimSpace(msg[:idx])
	}
	return msg
}

// Merge returns a copy of the catalog with overrides applied. Empty override
// values are ignored.
func (c Catalog) Merge(overrides map[string]string) Catalog {
	out := make(Catalog, len(c)+len(overrides))
	for key, value := range c {
		out[key] = value
	}
	for key, value := range overrides {
		if strings.TrimSpace(value) == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// Default returns the built-in English catalog.
func Default() Catalog {
	return Catalog{
		KeyRequired:     "This field is required",
		KeyMultiple:     "This field does not take multiple values",
		KeyOption:       "'%v' is not a valid value",
		KeyRangeBetween: "value must be between %v and %v",
		KeyRangeMin:     "value must be greater than or equal to %v",
		KeyRangeMax:     "value must be less than or equal to %v",
		KeyInteger:      "Value must be an integer",
		KeyPosInteger:   "Value must be a positive integer",
		KeyNumber:       "Value must be a number",
		KeyBoolean:      "Value must be true or false",
		KeyDate:         "Not a valid date",
		KeyEmail:        "Email should be of the format someuser@example.com",
		KeyURL:          "Not a valid URL",
		KeyUnique:       "Value must be unique",
	}
}
