// Package field implements the typed, validatable form field. A Field owns
// the raw submitted input, the validated value, and the per-field error list;
// the type-specific behavior lives in a small closed set of Kind strategies
// that share one orchestrating validation cycle.
package field

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formbind/pkg/message"
)

// Option is one selectable {value, label} pair for choice-capable fields.
// Inactive marks rows that are no longer offered but remain selectable
// because the bound record already references them; labels for those render
// bracket-wrapped.
type Option struct {
	Value    string
	Label    string
	Inactive bool
}

// DisplayLabel returns the label adjusted for inactive options.
func (o Option) DisplayLabel() string {
	if o.Inactive {
		return "[" + o.Label + "]"
	}
	return o.Label
}

// Source describes where a choice field's options and a relation field's
// linked rows come from. The binder reads it; the validation cycle does not.
type Source struct {
	// Table is the related table queried for options.
	Table string
	// Relation names the relationship on the bound table. Defaults to the
	// field name when empty.
	Relation string
	// LabelColumn supplies option labels. Defaults to the binder default.
	LabelColumn string
	// SortColumn orders option queries. Defaults to LabelColumn.
	SortColumn string
	// ActiveColumn restricts the generic option lookup to active rows.
	ActiveColumn string
}

// Field is one named, typed unit of form data and its validation state.
type Field struct {
	Name  string
	Kind  Kind
	Label string

	Required bool
	Order    int
	// Multiple permits multi-valued input even when the kind itself is
	// single-valued.
	Multiple bool

	Input     []string
	Value     any
	InitValue any
	Errors    []string
	Options   []Option

	Password  bool
	WriteOnly bool
	NoUpdate  bool
	Clear     bool
	Disabled  bool
	ReadOnly  bool
	Unique    bool
	// UniqueMessage overrides the catalog message for uniqueness conflicts.
	UniqueMessage string

	RangeStart *float64
	RangeEnd   *float64
	// ValueFormat is a printf-style numeric format applied when copying
	// input to value ("%.2f" turns "1234" into "1234.00").
	ValueFormat string

	Source *Source

	staged    any
	hasStaged bool
}

// SetInput stores the raw submitted value(s), trimming leading and trailing
// whitespace from every element. A nil call clears the input.
func (f *Field) SetInput(values ...string) {
	if len(values) == 0 {
		f.Input = nil
		return
	}
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(v)
	}
	f.Input = trimmed
}

// HasInput reports whether any submitted element is non-blank.
func (f *Field) HasInput() bool {
	for _, v := range f.Input {
		if v != "" {
			return true
		}
	}
	return false
}

// Valid reports whether the last validation cycle left the field error-free.
func (f *Field) Valid() bool { return len(f.Errors) == 0 }

// AddError appends an error message to the field.
func (f *Field) AddError(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	f.Errors = append(f.Errors, msg)
}

// Stage records a parsed value produced during Kind.Validate. The staged
// value only becomes the field value if the full cycle succeeds.
func (f *Field) Stage(value any) {
	f.staged = value
	f.hasStaged = true
}

// Staged returns the value staged by the kind during validation, if any.
func (f *Field) Staged() (any, bool) { return f.staged, f.hasStaged }

// Reset clears validation output (errors, value, staged state) but keeps the
// declared attributes and the raw input.
func (f *Field) Reset() {
	f.Errors = nil
	f.Value = nil
	f.staged = nil
	f.hasStaged = false
}

// ClearState drops input, value, init value and errors, returning the field
// to its freshly built state.
func (f *Field) ClearState() {
	f.Input = nil
	f.Value = nil
	f.InitValue = nil
	f.Reset()
}

// Validate runs one full validation cycle against the current input:
//
//  1. reset errors and value
//  2. blank input short-circuits (required check only)
//  3. multiplicity -> options -> kind validation -> range, first failure stops
//  4. input is converted to the value, then the converted value is checked
//
// The field never ends the cycle with both errors and a committed value.
func (f *Field) Validate(msgs message.Resolver) bool {
	f.Reset()

	if !f.HasInput() {
		if f.Required {
			f.AddError(msgs.Resolve(message.KeyRequired))
			return false
		}
		return true
	}

	if !f.testMultiple(msgs) {
		return false
	}
	if !f.testOptions(msgs) {
		return false
	}
	if !f.Kind.Validate(f, msgs) {
		f.staged = nil
		f.hasStaged = false
		return false
	}
	if !f.testRange(msgs) {
		f.staged = nil
		f.hasStaged = false
		return false
	}

	f.inputToValue()
	if !f.Kind.ValidateValue(f, msgs) {
		f.Value = nil
		return false
	}
	return true
}

// testMultiple fails when multi-valued input reaches a single-valued field.
func (f *Field) testMultiple(msgs message.Resolver) bool {
	if len(f.Input) <= 1 {
		return true
	}
	if f.Multiple || f.Kind.Multiple() {
		return true
	}
	f.AddError(msgs.Resolve(message.KeyMultiple))
	return false
}

// testOptions requires every submitted element to match a declared option.
func (f *Field) testOptions(msgs message.Resolver) bool {
	if len(f.Options) == 0 {
		return true
	}
	allowed := make(map[string]struct{}, len(f.Options))
	for _, opt := range f.Options {
		allowed[opt.Value] = struct{}{}
	}
	ok := true
	for _, v := range f.Input {
		if v == "" {
			continue
		}
		if _, found := allowed[v]; !found {
			f.AddError(msgs.Resolve(message.KeyOption, v))
			ok = false
		}
	}
	return ok
}

// testRange checks numeric bounds. Fields with options skip the check, their
// option list already constrains the domain.
func (f *Field) testRange(msgs message.Resolver) bool {
	if f.RangeStart == nil && f.RangeEnd == nil {
		return true
	}
	if len(f.Options) > 0 {
		return true
	}

	for _, raw := range f.Input {
		if raw == "" {
			continue
		}
		num, err := strconv.ParseFloat(raw, 64)
		inRange := err == nil &&
			(f.RangeStart == nil || num >= *f.RangeStart) &&
			(f.RangeEnd == nil || num <= *f.RangeEnd)
		if inRange {
			continue
		}
		switch {
		case f.RangeStart != nil && f.RangeEnd != nil:
			f.AddError(msgs.Resolve(message.KeyRangeBetween, formatBound(*f.RangeStart), formatBound(*f.RangeEnd)))
		case f.RangeStart != nil:
			f.AddError(msgs.Resolve(message.KeyRangeMin, formatBound(*f.RangeStart)))
		default:
			f.AddError(msgs.Resolve(message.KeyRangeMax, formatBound(*f.RangeEnd)))
		}
		return false
	}
	return true
}

// inputToValue commits the validated input as the field value. A value staged
// by the kind wins; otherwise single-valued input copies through ValueFormat
// and multi-valued input copies as a string slice.
func (f *Field) inputToValue() {
	if f.hasStaged {
		f.Value = f.staged
		return
	}
	if f.Multiple || f.Kind.Multiple() {
		values := make([]string, 0, len(f.Input))
		for _, v := range f.Input {
			if v != "" {
				values = append(values, v)
			}
		}
		f.Value = values
		return
	}
	raw := f.firstInput()
	if f.ValueFormat != "" {
		if num, err := strconv.ParseFloat(raw, 64); err == nil {
			f.Value = fmt.Sprintf(f.ValueFormat, num)
			return
		}
	}
	f.Value = raw
}

// FormatValue produces the name->value pairs this field contributes to the
// round-trip map. Kinds may expand to multiple keys (composite dates); the
// default is the single (name, value) pair when a value is defined.
func (f *Field) FormatValue() map[string]string {
	if formatter, ok := f.Kind.(ValueFormatter); ok {
		return formatter.FormatValue(f)
	}
	return defaultFormatValue(f)
}

func defaultFormatValue(f *Field) map[string]string {
	if f.Value == nil {
		return nil
	}
	switch v := f.Value.(type) {
	case string:
		return map[string]string{f.Name: v}
	case []string:
		return map[string]string{f.Name: strings.Join(v, ",")}
	default:
		return map[string]string{f.Name: fmt.Sprint(v)}
	}
}

// ValueStrings normalizes the field value to a string slice, the shape the
// binder diffs relation selections with. A nil value yields nil.
func (f *Field) ValueStrings() []string {
	switch v := f.Value.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	default:
		return []string{fmt.Sprint(v)}
	}
}

func (f *Field) firstInput() string {
	for _, v := range f.Input {
		if v != "" {
			return v
		}
	}
	return ""
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
