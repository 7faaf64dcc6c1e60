package form

import "strings"

// Validate runs the multi-pass validation protocol against a submission.
// The boolean mirrors Validated(); the error is reserved for data-access
// failures surfaced by the model hook and propagates unmodified.
//
// Pass order is fixed: parameter extraction, per-field validation cycles,
// per-field hooks, cross-field hook, model hook. Within a pass fields are
// processed in declared order, and every field is fully validated before the
// aggregate result is computed so the caller sees all problems at once.
func (f *Form) Validate(params Submission) (bool, error) {
	if f.ran {
		return f.validated, nil
	}

	f.params = params
	forced := f.forceDependencyGroups(params)
	defer f.revertDependencyGroups(forced)

	// Pass 1: extract, scrub and assign raw input.
	for _, fld := range f.fields {
		values := params[f.FullName(fld.Name)]
		fld.SetInput(f.scrub(fld.Kind.Name(), values)...)
	}

	// Pass 2: per-field validation cycles. Clear fields skip validation
	// entirely; they persist as "set to empty".
	for _, fld := range f.fields {
		if fld.Clear {
			fld.Reset()
			continue
		}
		fld.Validate(f.msgs)
	}

	// Pass 3: registered single-field business rules.
	for _, fld := range f.fields {
		if fld.Value == nil {
			continue
		}
		if hook, ok := f.fieldHooks[fld.Name]; ok {
			hook(fld)
		}
	}

	if f.crossHook != nil {
		f.crossHook(f, params)
	}

	if f.modelHook != nil {
		if err := f.modelHook(f); err != nil {
			return false, err
		}
	}

	f.ran = true
	f.validated = f.ErrorCount() == 0
	f.fifCache = nil
	return f.validated, nil
}

// forceDependencyGroups marks every member of a dependency group required
// when any member carries a non-blank submitted value. It returns the fields
// whose required flag was flipped so the caller can revert them.
func (f *Form) forceDependencyGroups(params Submission) []string {
	var forced []string
	for _, group := range f.profile.Dependency {
		if !f.groupTriggered(group, params) {
			continue
		}
		for _, name := range group {
			fld, ok := f.index[name]
			if !ok || fld.Required {
				continue
			}
			fld.Required = true
			forced = append(forced, name)
		}
	}
	return forced
}

func (f *Form) groupTriggered(group []string, params Submission) bool {
	for _, name := range group {
		for _, value := range params[f.FullName(name)] {
			if strings.TrimSpace(value) != "" {
				return true
			}
		}
	}
	return false
}

func (f *Form) revertDependencyGroups(forced []string) {
	for _, name := range forced {
		if fld, ok := f.index[name]; ok {
			fld.Required = false
		}
	}
}

// scrub applies the configured bluemonday policy to text-like input. Choice
// and typed kinds validate their domain anyway; scrubbing them would corrupt
// values like "a&b" option ids.
func (f *Form) scrub(kindName string, values []string) []string {
	if f.sanitizer == nil || len(values) == 0 {
		return values
	}
	switch kindName {
	case "text", "textarea":
	default:
		return values
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = f.sanitizer.Sanitize(v)
	}
	return out
}
