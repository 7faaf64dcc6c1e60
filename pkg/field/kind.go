package field

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formbind/pkg/message"
)

// Kind is the type-specific strategy a Field delegates to. Concrete kinds are
// thin parameterizations of the shared validation cycle: they check the raw
// input, optionally stage a parsed value, and may re-check the converted
// value.
type Kind interface {
	// Name is the registry name of the kind.
	Name() string
	// Multiple reports whether the kind accepts multi-valued input.
	Multiple() bool
	// HasOptions reports whether the kind is choice-capable, i.e. the binder
	// should compute an option list for it.
	HasOptions() bool
	// Validate checks the raw input. On failure it appends an error to the
	// field and returns false. It may stage a parsed value via Field.Stage;
	// staged state is discarded unless the whole cycle succeeds.
	Validate(f *Field, msgs message.Resolver) bool
	// ValidateValue checks the converted value after inputToValue ran.
	ValidateValue(f *Field, msgs message.Resolver) bool
}

// ValueFormatter is an optional Kind extension for kinds that contribute
// more than the single (name, value) pair to the round-trip map.
type ValueFormatter interface {
	FormatValue(f *Field) map[string]string
}

// base supplies the no-op defaults shared by all built-in kinds.
type base struct {
	name       string
	multiple   bool
	hasOptions bool
}

func (b base) Name() string                             { return b.name }
func (b base) Multiple() bool                           { return b.multiple }
func (b base) HasOptions() bool                         { return b.hasOptions }
func (base) Validate(*Field, message.Resolver) bool     { return true }
func (base) ValidateValue(*Field, message.Resolver) bool { return true }

// TextKind passes any input through unchanged.
type TextKind struct{ base }

// NewText returns the plain text kind.
func NewText() Kind { return TextKind{base{name: "text"}} }

// NewTextArea returns the multi-line text kind. Validation is identical to
// text; the distinct name survives for prompt and renderer selection.
func NewTextArea() Kind { return TextKind{base{name: "textarea"}} }

// NewHidden returns the hidden field kind.
func NewHidden() Kind { return TextKind{base{name: "hidden"}} }

// IntegerKind requires integer input. When positive is set, negative values
// are rejected as well.
type IntegerKind struct {
	base
	positive bool
}

// NewInteger returns the integer kind.
func NewInteger() Kind { return IntegerKind{base: base{name: "integer"}} }

// NewPosInteger returns the non-negative integer kind.
func NewPosInteger() Kind {
	return IntegerKind{base: base{name: "posinteger"}, positive: true}
}

func (k IntegerKind) Validate(f *Field, msgs message.Resolver) bool {
	for _, raw := range f.Input {
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			key := message.KeyInteger
			if k.positive {
				key = message.KeyPosInteger
			}
			f.AddError(msgs.Resolve(key))
			return false
		}
		if k.positive && n < 0 {
			f.AddError(msgs.Resolve(message.KeyPosInteger))
			return false
		}
	}
	return true
}

// NumberKind requires input that parses as a float.
type NumberKind struct{ base }

// NewNumber returns the numeric kind.
func NewNumber() Kind { return NumberKind{base{name: "number"}} }

func (k NumberKind) Validate(f *Field, msgs message.Resolver) bool {
	for _, raw := range f.Input {
		if raw == "" {
			continue
		}
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			f.AddError(msgs.Resolve(message.KeyNumber))
			return false
		}
	}
	return true
}

// BooleanKind accepts common truthy/falsy spellings and stages a bool.
type BooleanKind struct{ base }

// NewBoolean returns the boolean kind.
func NewBoolean() Kind { return BooleanKind{base{name: "boolean"}} }

func (k BooleanKind) Validate(f *Field, msgs message.Resolver) bool {
	raw := strings.ToLower(f.firstNonBlank())
	switch raw {
	case "1", "true", "yes", "on", "y":
		f.Stage(true)
	case "0", "false", "no", "off", "n":
		f.Stage(false)
	default:
		f.AddError(msgs.Resolve(message.KeyBoolean))
		return false
	}
	return true
}

// SelectKind is the choice kind; options are validated by the shared cycle's
// option check. Selects accept multi-valued input so the same field can back
// single dropdowns and multi-capable widgets.
type SelectKind struct{ base }

// NewSelect returns the select kind.
func NewSelect() Kind {
	return SelectKind{base{name: "select", multiple: true, hasOptions: true}}
}

// MultipleKind is the multi-valued choice kind.
type MultipleKind struct{ base }

// NewMultiple returns the multi-select kind.
func NewMultiple() Kind {
	return MultipleKind{base{name: "multiple", multiple: true, hasOptions: true}}
}

// dateLayouts are the accepted submission formats, most specific first.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

// DateKind parses the input into a time.Time, staging the parsed value so the
// converted representation, not the raw text, becomes the field value.
type DateKind struct {
	base
	// expand emits day/month/year keys in the round-trip map.
	expand bool
}

// NewDate returns the date kind.
func NewDate() Kind { return DateKind{base: base{name: "date"}} }

// NewDateSplit returns the composite date kind whose round-trip map expands
// into <name>.year, <name>.month and <name>.day keys.
func NewDateSplit() Kind {
	return DateKind{base: base{name: "datesplit"}, expand: true}
}

func (k DateKind) Validate(f *Field, msgs message.Resolver) bool {
	raw := f.firstNonBlank()
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			f.Stage(ts)
			return true
		}
	}
	f.AddError(msgs.Resolve(message.KeyDate))
	return false
}

func (k DateKind) ValidateValue(f *Field, msgs message.Resolver) bool {
	if _, ok := f.Value.(time.Time); !ok {
		f.AddError(msgs.Resolve(message.KeyDate))
		return false
	}
	return true
}

// FormatValue renders the parsed date back to its canonical form, expanding
// to per-component keys for the composite variant.
func (k DateKind) FormatValue(f *Field) map[string]string {
	ts, ok := f.Value.(time.Time)
	if !ok {
		return nil
	}
	if !k.expand {
		return map[string]string{f.Name: ts.Format("2006-01-02")}
	}
	return map[string]string{
		f.Name + ".year":  strconv.Itoa(ts.Year()),
		f.Name + ".month": fmt.Sprintf("%02d", int(ts.Month())),
		f.Name + ".day":   fmt.Sprintf("%02d", ts.Day()),
	}
}

// EmailKind validates RFC 5322 addresses, requiring a domain part.
type EmailKind struct{ base }

// NewEmail returns the email kind.
func NewEmail() Kind { return EmailKind{base{name: "email"}} }

var emailDomainPattern = regexp.MustCompile(`@[^@\s]+\.[^@\s]+$`)

func (k EmailKind) Validate(f *Field, msgs message.Resolver) bool {
	raw := f.firstNonBlank()
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || !emailDomainPattern.MatchString(raw) {
		f.AddError(msgs.Resolve(message.KeyEmail))
		return false
	}
	return true
}

// URLKind validates absolute http(s) URLs.
type URLKind struct{ base }

// NewURL returns the URL kind.
func NewURL() Kind { return URLKind{base{name: "url"}} }

func (k URLKind) Validate(f *Field, msgs message.Resolver) bool {
	raw := f.firstNonBlank()
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		f.AddError(msgs.Resolve(message.KeyURL))
		return false
	}
	return true
}

func (f *Field) firstNonBlank() string { return f.firstInput() }
