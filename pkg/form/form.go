// Package form orchestrates fields built from a declarative profile: it
// assigns submitted parameters, drives the multi-pass validation protocol,
// and exposes aggregate error state plus the round-trip value map.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formbind/pkg/field"
	"github.com/goliatone/go-formbind/pkg/message"
	"github.com/goliatone/go-formbind/pkg/profile"
)

var (
	// ErrNameRequired rejects anonymous forms; a deterministic name is part
	// of the configuration contract.
	ErrNameRequired = errors.New("form: a form name is required")
	// ErrNoProfile rejects construction without a profile.
	ErrNoProfile = errors.New("form: a profile is required")
	// ErrNoTypeGuesser is returned when a profile declares auto fields but
	// no schema introspector was configured.
	ErrNoTypeGuesser = errors.New("form: auto field declarations need a type guesser")
)

// Submission is the flat key to value(s) map a form validates. Keys may carry
// the "<form>." prefix when the profile enables HTMLPrefix.
type Submission map[string][]string

// SubmissionFromValues lifts a single-valued map into a Submission.
func SubmissionFromValues(values map[string]string) Submission {
	out := make(Submission, len(values))
	for key, value := range values {
		out[key] = []string{value}
	}
	return out
}

// TypeGuesser resolves the field type for auto_required/auto_optional
// declarations by introspecting the persistent schema. The bind package
// provides the canonical implementation.
type TypeGuesser interface {
	GuessType(name string) (string, error)
}

// FieldHook runs form-level business rules against a single validated field,
// appending errors directly to it.
type FieldHook func(*field.Field)

// CrossHook runs rules spanning multiple fields. It always runs, independent
// of per-field outcomes.
type CrossHook func(*Form, Submission)

// ModelHook runs model-level validation (uniqueness checks). A returned error
// is a data-access failure and propagates unmodified.
type ModelHook func(*Form) error

// Option configures a Form at construction time.
type Option func(*Form)

// WithRegistry overrides the field kind registry.
func WithRegistry(registry *field.Registry) Option {
	return func(f *Form) { f.registry = registry }
}

// WithMessages overrides the message resolver used for validation errors.
func WithMessages(msgs message.Resolver) Option {
	return func(f *Form) { f.msgs = msgs }
}

// WithTypeGuesser supplies the schema introspector for auto declarations.
func WithTypeGuesser(guesser TypeGuesser) Option {
	return func(f *Form) { f.guesser = guesser }
}

// WithSanitizer scrubs text-like input through a bluemonday policy during
// parameter extraction. Use bluemonday.StrictPolicy() to strip all markup.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(f *Form) { f.sanitizer = policy }
}

// Form owns the ordered field set for one logical form.
type Form struct {
	name    string
	profile *profile.Profile

	fields []*field.Field
	index  map[string]*field.Field

	registry  *field.Registry
	msgs      message.Resolver
	guesser   TypeGuesser
	sanitizer *bluemonday.Policy

	params    Submission
	ran       bool
	validated bool
	fifCache  map[string]string

	fieldHooks map[string]FieldHook
	crossHook  CrossHook
	modelHook  ModelHook
}

// New builds a form from its profile. Configuration problems (empty name,
// unresolved field type, invalid profile) fail immediately.
func New(name string, prof *profile.Profile, opts ...Option) (*Form, error) {
	if prof == nil {
		return nil, ErrNoProfile
	}
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSpace(prof.Name)
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := prof.Validate(); err != nil {
		return nil, err
	}

	f := &Form{
		name:       name,
		profile:    prof,
		index:      make(map[string]*field.Field),
		registry:   field.Default(),
		msgs:       message.Default(),
		fieldHooks: make(map[string]FieldHook),
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := f.build(); err != nil {
		return nil, err
	}
	return f, nil
}

// build walks the profile and materializes fields in declaration order.
func (f *Form) build() error {
	for _, decl := range f.profile.Fields {
		if err := f.addField(decl, decl.Required); err != nil {
			return err
		}
	}
	for _, decl := range f.profile.Required {
		if err := f.addField(decl, true); err != nil {
			return err
		}
	}
	for _, decl := range f.profile.Optional {
		if err := f.addField(decl, false); err != nil {
			return err
		}
	}
	for _, name := range f.profile.AutoRequired {
		if err := f.addAutoField(name, true); err != nil {
			return err
		}
	}
	for _, name := range f.profile.AutoOptional {
		if err := f.addAutoField(name, false); err != nil {
			return err
		}
	}

	for name, msg := range f.profile.Unique {
		fld := f.index[name]
		fld.Unique = true
		if msg != "" {
			fld.UniqueMessage = msg
		}
	}

	sort.SliceStable(f.fields, func(i, j int) bool {
		return f.fields[i].Order < f.fields[j].Order
	})
	return nil
}

func (f *Form) addAutoField(name string, required bool) error {
	if f.guesser == nil {
		return fmt.Errorf("%w (field %q)", ErrNoTypeGuesser, name)
	}
	kind, err := f.guesser.GuessType(name)
	if err != nil {
		return fmt.Errorf("form: guess type for %q: %w", name, err)
	}
	return f.addField(profile.Decl{Name: name, Type: kind}, required)
}

func (f *Form) addField(decl profile.Decl, required bool) error {
	if _, dup := f.index[decl.Name]; dup {
		return fmt.Errorf("form: duplicate field %q", decl.Name)
	}

	kindName := decl.Type
	if strings.TrimSpace(kindName) == "" {
		kindName = "text"
	}
	kind, err := f.registry.New(kindName)
	if err != nil {
		return fmt.Errorf("form: field %q: %w", decl.Name, err)
	}

	fld := &field.Field{
		Name:          decl.Name,
		Kind:          kind,
		Label:         decl.Label,
		Required:      required,
		Multiple:      decl.Multiple,
		RangeStart:    decl.Min,
		RangeEnd:      decl.Max,
		ValueFormat:   decl.Format,
		Password:      decl.Password || kind.Name() == "password",
		WriteOnly:     decl.WriteOnly,
		NoUpdate:      decl.NoUpdate,
		Clear:         decl.Clear,
		Disabled:      decl.Disabled,
		ReadOnly:      decl.ReadOnly || kind.Name() == "readonly",
		Unique:        decl.Unique,
		UniqueMessage: decl.UniqueMsg,
	}

	if decl.Order != 0 {
		fld.Order = decl.Order
	} else {
		fld.Order = len(f.fields) + 1
	}

	for _, opt := range decl.Options {
		fld.Options = append(fld.Options, field.Option{Value: opt.Value, Label: opt.Label})
	}
	if src := decl.Source; src != nil {
		fld.Source = &field.Source{
			Table:        src.Table,
			Relation:     src.Relation,
			LabelColumn:  src.LabelColumn,
			SortColumn:   src.SortColumn,
			ActiveColumn: src.ActiveColumn,
		}
	}

	f.fields = append(f.fields, fld)
	f.index[fld.Name] = fld
	return nil
}

// Name returns the form name.
func (f *Form) Name() string { return f.name }

// Profile returns the profile the form was built from.
func (f *Form) Profile() *profile.Profile { return f.profile }

// Messages returns the form's message resolver.
func (f *Form) Messages() message.Resolver { return f.msgs }

// Fields returns the fields in declared order. The slice is shared; callers
// must not reorder it.
func (f *Form) Fields() []*field.Field { return f.fields }

// Field looks a field up by name.
func (f *Form) Field(name string) (*field.Field, bool) {
	fld, ok := f.index[name]
	return fld, ok
}

// FullName returns the prefix-qualified parameter name for a field.
func (f *Form) FullName(fieldName string) string {
	if f.profile.HTMLPrefix {
		return f.name + "." + fieldName
	}
	return fieldName
}

// OnValidate registers a per-field hook invoked during pass 3 for fields
// that validated to a defined value. It replaces the dynamic
// validate_<fieldname> method lookup of classic form processors.
func (f *Form) OnValidate(fieldName string, hook FieldHook) error {
	if _, ok := f.index[fieldName]; !ok {
		return fmt.Errorf("form: validate hook references unknown field %q", fieldName)
	}
	f.fieldHooks[fieldName] = hook
	return nil
}

// OnCrossValidate registers the form-level hook for rules spanning fields.
func (f *Form) OnCrossValidate(hook CrossHook) { f.crossHook = hook }

// OnModelValidate registers the model-level hook (uniqueness checks). The
// bind package attaches its Binder here.
func (f *Form) OnModelValidate(hook ModelHook) { f.modelHook = hook }

// Validated reports whether the last validation run passed.
func (f *Form) Validated() bool { return f.ran && f.validated }

// Params returns the last submission handed to Validate.
func (f *Form) Params() Submission { return f.params }

// Errors aggregates the per-field error lists, keyed by field name, in field
// order. Fields without errors are omitted.
func (f *Form) Errors() map[string][]string {
	out := make(map[string][]string)
	for _, fld := range f.fields {
		if len(fld.Errors) > 0 {
			out[fld.Name] = append([]string(nil), fld.Errors...)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ErrorCount sums errors across all fields.
func (f *Form) ErrorCount() int {
	total := 0
	for _, fld := range f.fields {
		total += len(fld.Errors)
	}
	return total
}

// Clear resets validation state, inputs and values without discarding the
// field definitions, so the form can be reused.
func (f *Form) Clear() {
	f.params = nil
	f.ran = false
	f.validated = false
	f.fifCache = nil
	for _, fld := range f.fields {
		fld.ClearState()
	}
}

// InvalidateFIF drops the cached round-trip map so the next FIF call
// recomputes it. The binder calls this after persisting.
func (f *Form) InvalidateFIF() { f.fifCache = nil }
