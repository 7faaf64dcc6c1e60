package bind

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formbind/pkg/field"
)

// ErrNotValidated rejects persistence before a successful validation run.
var ErrNotValidated = errors.New("bind: form has not passed validation")

// fieldBucket is the schema-derived partition UpdateRecord sorts fields into.
type fieldBucket int

const (
	bucketColumn fieldBucket = iota
	bucketSingleRel
	bucketMultiRel
	bucketOther
)

// UpdateRecord persists the validated field values. Plain columns and other
// accessors are applied in a single update call (changed values only, "both
// falsy" counts as unchanged); single-valued relationships assign their join
// column directly; multi-valued relationships are reconciled by diffing the
// currently linked ids against the field's target set. New records are
// constructed in one create call and skip the unlink pass. Fields flagged
// no-update or read-only are never written: read-only fields carry no
// submitted input, so writing them would null the stored column.
func (b *Binder) UpdateRecord() error {
	if !b.form.Validated() {
		return ErrNotValidated
	}

	changes := make(map[string]any)
	type multiPlan struct {
		relation string
		targets  []string
	}
	var multis []multiPlan

	for _, fld := range b.form.Fields() {
		if fld.NoUpdate || fld.ReadOnly {
			continue
		}
		relation := b.relationName(fld)

		switch b.bucket(fld) {
		case bucketColumn:
			newValue := b.persistValue(fld)
			if b.item != nil {
				current, _ := b.item.Get(fld.Name)
				if equalValue(current, newValue) {
					continue
				}
			}
			changes[fld.Name] = newValue

		case bucketSingleRel:
			meta, err := b.store.RelationshipMetadata(b.table, relation)
			if err != nil {
				return err
			}
			newValue := b.persistValue(fld)
			if b.item != nil {
				current, _ := b.item.Get(meta.JoinColumn)
				if equalValue(current, newValue) {
					continue
				}
			}
			changes[meta.JoinColumn] = newValue

		case bucketMultiRel:
			targets := valueStrings(fld.Value)
			if fld.Clear {
				targets = nil
			}
			multis = append(multis, multiPlan{relation: relation, targets: targets})

		case bucketOther:
			newValue := b.persistValue(fld)
			if b.item != nil {
				if current, ok := b.item.Get(fld.Name); ok && equalValue(current, newValue) {
					continue
				}
			}
			changes[fld.Name] = newValue
		}
	}

	if b.item == nil {
		rec, err := b.store.Create(b.table, changes)
		if err != nil {
			return err
		}
		b.item = rec
		b.itemID = rec.ID()
		b.action = ActionCreated
	} else {
		if len(changes) > 0 {
			if err := b.store.Update(b.item, changes); err != nil {
				return err
			}
		}
		b.action = ActionUpdated
	}

	for _, plan := range multis {
		if err := b.reconcile(plan.relation, plan.targets); err != nil {
			return err
		}
	}

	b.form.InvalidateFIF()
	return nil
}

// reconcile diffs the record's currently linked ids against the target set:
// stale links are removed, missing links added, the intersection untouched.
// Freshly created records skip the removal pass.
func (b *Binder) reconcile(relation string, targets []string) error {
	targetSet := make(map[string]struct{}, len(targets))
	for _, id := range targets {
		targetSet[id] = struct{}{}
	}

	current := []string(nil)
	if b.action != ActionCreated {
		ids, err := b.store.RelatedIDs(b.item, relation)
		if err != nil {
			return err
		}
		current = ids
		for _, id := range current {
			if _, keep := targetSet[id]; keep {
				continue
			}
			if err := b.store.UnlinkRelated(b.item, relation, id); err != nil {
				return err
			}
		}
	}

	linked := make(map[string]struct{}, len(current))
	for _, id := range current {
		linked[id] = struct{}{}
	}
	for _, id := range targets {
		if _, already := linked[id]; already {
			continue
		}
		if err := b.store.LinkRelated(b.item, relation, id); err != nil {
			return err
		}
	}
	return nil
}

// bucket classifies a field by introspecting the schema: relationships win
// over same-named columns, anything else is an opaque accessor.
func (b *Binder) bucket(fld *field.Field) fieldBucket {
	relation := b.relationName(fld)
	if b.store.HasRelationship(b.table, relation) {
		meta, err := b.store.RelationshipMetadata(b.table, relation)
		if err == nil && meta.Kind == RelMulti {
			return bucketMultiRel
		}
		return bucketSingleRel
	}
	if b.store.HasColumn(b.table, fld.Name) {
		return bucketColumn
	}
	return bucketOther
}

// persistValue converts a field's validated value into the column value to
// write. Clear fields persist as empty.
func (b *Binder) persistValue(fld *field.Field) any {
	if fld.Clear {
		return ""
	}
	switch v := fld.Value.(type) {
	case nil:
		return nil
	case time.Time:
		return v
	case []string:
		return strings.Join(v, ",")
	default:
		return v
	}
}

func valueStrings(value any) []string {
	switch v := value.(type) {
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
		return []string{stringify(v)}
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(v)
	}
}

// equalValue treats two values as unchanged when both are falsy or their
// canonical string forms match.
func equalValue(a, b any) bool {
	if falsy(a) && falsy(b) {
		return true
	}
	return stringify(a) == stringify(b)
}

func falsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == "" || v == "0"
	case bool:
		return !v
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	default:
		return false
	}
}
