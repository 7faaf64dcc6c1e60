// Package formbind glues the form, field and bind packages together behind a
// small facade: declare a profile, build a form, bind it to a table, and run
// the validate/persist cycle.
package formbind

import (
	"github.com/goliatone/go-formbind/pkg/bind"
	"github.com/goliatone/go-formbind/pkg/field"
	"github.com/goliatone/go-formbind/pkg/form"
	"github.com/goliatone/go-formbind/pkg/profile"
)

// Form aliases the form orchestrator for convenience.
type Form = form.Form

// Submission is the flat key to value(s) map a form validates.
type Submission = form.Submission

// Field is one named, typed unit of form data.
type Field = field.Field

// Option is one selectable {value, label} pair.
type Option = field.Option

// Profile is the declarative form description.
type Profile = profile.Profile

// Binder synchronizes a form with a persistent record.
type Binder = bind.Binder

// Store is the data-access capability binders run against.
type Store = bind.Store

// Record is the opaque row-like object binders read from.
type Record = bind.Record

// NewForm builds a form from a profile; see form.New.
func NewForm(name string, prof *profile.Profile, opts ...form.Option) (*form.Form, error) {
	return form.New(name, prof, opts...)
}

// NewBinder binds a form to a table through a store; the binder is attached
// to the form's model-validation pass so uniqueness checks run as part of
// Validate.
func NewBinder(f *form.Form, store bind.Store, table string, opts ...bind.Option) (*bind.Binder, error) {
	binder, err := bind.New(f, store, table, opts...)
	if err != nil {
		return nil, err
	}
	binder.Attach()
	return binder, nil
}
