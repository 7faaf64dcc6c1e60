package bind

import "github.com/goliatone/go-formbind/pkg/message"

// ValidateUnique checks every unique-flagged field with a non-blank value
// and no prior error against the backing table. Zero matches pass; a single
// match that is the record being edited passes (self-match exclusion);
// anything else attaches the field's unique message.
//
// The check-then-write window is not transactionally protected; callers that
// need atomicity must scope a transaction around Validate and UpdateRecord.
func (b *Binder) ValidateUnique() error {
	for _, fld := range b.form.Fields() {
		if !fld.Unique || !fld.Valid() {
			continue
		}
		values := valueStrings(fld.Value)
		if len(values) == 0 {
			continue
		}
		value := values[0]
		if value == "" {
			continue
		}

		rows, err := b.store.ListWhere(b.table, Criteria{fld.Name: value}, "")
		if err != nil {
			return err
		}

		switch {
		case len(rows) == 0:
			continue
		case len(rows) == 1 && b.item != nil && rows[0].ID() == b.item.ID():
			continue
		}

		msg := fld.UniqueMessage
		if msg == "" {
			msg = b.form.Messages().Resolve(message.KeyUnique)
		}
		fld.AddError(msg)
	}
	return nil
}
