package form

// FIF builds the fill-in-form map used to redisplay previously submitted or
// loaded data: every field's FormatValue pairs merged in field order (last
// write wins per key), write-only fields skipped, password fields always
// excluded. The result is cached until the form is cleared, revalidated, or
// the binder persists.
func (f *Form) FIF() map[string]string {
	if f.fifCache != nil {
		return f.fifCache
	}

	out := make(map[string]string)
	for _, fld := range f.fields {
		if fld.WriteOnly || fld.Password {
			continue
		}
		for key, value := range fld.FormatValue() {
			out[key] = value
		}
	}

	// A non-password field may emit a key that collides with a password
	// field's name; those keys never leave the form.
	for _, fld := range f.fields {
		if fld.Password {
			delete(out, fld.Name)
		}
	}

	f.fifCache = out
	return out
}
