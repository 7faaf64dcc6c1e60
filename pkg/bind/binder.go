package bind

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formbind/pkg/field"
	"github.com/goliatone/go-formbind/pkg/form"
)

// Action reports what UpdateRecord did.
type Action string

const (
	ActionNone    Action = ""
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// OptionsHook computes a field's option list, replacing the generic related-
// table lookup.
type OptionsHook func(*field.Field) ([]field.Option, error)

// InitHook extracts a field's initial value from the bound record, replacing
// the generic column/relationship read.
type InitHook func(*field.Field, Record) (any, error)

// Option configures a Binder.
type Option func(*Binder)

// WithIDColumn overrides the primary-key column name (default "id").
func WithIDColumn(column string) Option {
	return func(b *Binder) { b.idColumn = column }
}

// WithLabelColumn overrides the default option label column (default "name").
func WithLabelColumn(column string) Option {
	return func(b *Binder) { b.labelColumn = column }
}

// WithActiveColumn overrides the default active-row column (default
// "active") used by the generic option lookup.
func WithActiveColumn(column string) Option {
	return func(b *Binder) { b.activeColumn = column }
}

// Binder synchronizes one form with one row of a backing table. It is
// request-scoped like the form it wraps: one bind cycle per instance.
type Binder struct {
	form  *form.Form
	store Store
	table string

	idColumn     string
	labelColumn  string
	activeColumn string

	itemID string
	item   Record
	action Action

	optionHooks map[string]OptionsHook
	initHooks   map[string]InitHook
}

// New builds a binder and eagerly resolves relationship metadata for every
// relation-backed field; unresolvable metadata is a configuration error.
func New(f *form.Form, store Store, table string, opts ...Option) (*Binder, error) {
	if strings.TrimSpace(table) == "" {
		return nil, ErrNoTable
	}
	b := &Binder{
		form:         f,
		store:        store,
		table:        table,
		idColumn:     "id",
		labelColumn:  "name",
		activeColumn: "active",
		optionHooks:  make(map[string]OptionsHook),
		initHooks:    make(map[string]InitHook),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, fld := range f.Fields() {
		relation := b.relationName(fld)
		if !store.HasRelationship(table, relation) {
			continue
		}
		meta, err := store.RelationshipMetadata(table, relation)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrRelationshipMetadata, table, relation, err)
		}
		if !meta.Complete() {
			return nil, fmt.Errorf("%w: %s.%s", ErrRelationshipMetadata, table, relation)
		}
	}

	return b, nil
}

// Attach wires the binder into the form's model-validation pass so
// uniqueness checks run as part of Form.Validate.
func (b *Binder) Attach() {
	b.form.OnModelValidate(func(*form.Form) error {
		return b.ValidateUnique()
	})
}

// OnOptions registers a per-field option loader, replacing the generic
// related-table lookup for that field.
func (b *Binder) OnOptions(fieldName string, hook OptionsHook) {
	b.optionHooks[fieldName] = hook
}

// OnInitValue registers a per-field initial-value extractor.
func (b *Binder) OnInitValue(fieldName string, hook InitHook) {
	b.initHooks[fieldName] = hook
}

// Form returns the bound form.
func (b *Binder) Form() *form.Form { return b.form }

// Item returns the bound record, nil when binding a new row.
func (b *Binder) Item() Record { return b.item }

// ItemID returns the id the binder is editing, empty for new rows.
func (b *Binder) ItemID() string { return b.itemID }

// Action reports whether the last UpdateRecord created or updated.
func (b *Binder) Action() Action { return b.action }

// Bind loads the record for itemID and initializes field values from it. A
// missing row is not an error: the id is cleared and the form behaves as
// though creating a new record.
func (b *Binder) Bind(itemID string) error {
	b.action = ActionNone
	b.itemID = strings.TrimSpace(itemID)
	b.item = nil
	if b.itemID == "" {
		return nil
	}

	rec, err := b.store.FindByID(b.table, b.itemID)
	if err != nil {
		if err == ErrNotFound {
			b.itemID = ""
			return nil
		}
		return err
	}
	if rec == nil {
		b.itemID = ""
		return nil
	}

	b.item = rec
	return b.InitFromRecord(rec)
}

// BindRecord binds an already-loaded record.
func (b *Binder) BindRecord(rec Record) error {
	b.action = ActionNone
	b.item = rec
	b.itemID = ""
	if rec == nil {
		return nil
	}
	b.itemID = rec.ID()
	return b.InitFromRecord(rec)
}

// InitFromRecord seeds every field's InitValue and Value from the record:
// registered hook first, then direct column, then relationship (single reads
// the related id, multi reads the ordered id list), then generic accessor.
func (b *Binder) InitFromRecord(rec Record) error {
	for _, fld := range b.form.Fields() {
		value, err := b.initValue(fld, rec)
		if err != nil {
			return err
		}
		fld.InitValue = value
		fld.Value = value
	}
	b.form.InvalidateFIF()
	return nil
}

func (b *Binder) initValue(fld *field.Field, rec Record) (any, error) {
	if hook, ok := b.initHooks[fld.Name]; ok {
		return hook(fld, rec)
	}

	if b.store.HasColumn(b.table, fld.Name) {
		if value, ok := rec.Get(fld.Name); ok {
			return value, nil
		}
		return nil, nil
	}

	relation := b.relationName(fld)
	if b.store.HasRelationship(b.table, relation) {
		meta, err := b.store.RelationshipMetadata(b.table, relation)
		if err != nil {
			return nil, err
		}
		switch meta.Kind {
		case RelSingle:
			if value, ok := rec.Get(meta.JoinColumn); ok && value != nil {
				return stringify(value), nil
			}
			return nil, nil
		case RelMulti:
			ids, err := b.store.RelatedIDs(rec, relation)
			if err != nil {
				return nil, err
			}
			return ids, nil
		}
	}

	if value, ok := rec.Get(fld.Name); ok {
		return value, nil
	}
	return nil, nil
}

// LoadOptions resolves the option list for every choice-capable field:
// registered hook first, otherwise the generic lookup against the related
// table, restricted to active rows plus whatever the bound record currently
// references so stale selections stay selectable (flagged inactive).
func (b *Binder) LoadOptions() error {
	for _, fld := range b.form.Fields() {
		if !fld.Kind.HasOptions() {
			continue
		}
		if hook, ok := b.optionHooks[fld.Name]; ok {
			options, err := hook(fld)
			if err != nil {
				return err
			}
			fld.Options = options
			continue
		}
		options, err := b.lookupOptions(fld)
		if err != nil {
			return err
		}
		if options != nil {
			fld.Options = options
		}
	}
	return nil
}

func (b *Binder) lookupOptions(fld *field.Field) ([]field.Option, error) {
	foreignTable, err := b.optionTable(fld)
	if err != nil {
		return nil, err
	}
	if foreignTable == "" {
		// Static option lists stay as declared.
		return nil, nil
	}

	labelColumn := b.labelColumn
	activeColumn := b.activeColumn
	if src := fld.Source; src != nil {
		if src.LabelColumn != "" {
			labelColumn = src.LabelColumn
		}
		if src.ActiveColumn != "" {
			activeColumn = src.ActiveColumn
		}
	}
	sortColumn := labelColumn
	if src := fld.Source; src != nil && src.SortColumn != "" {
		sortColumn = src.SortColumn
	}

	criteria := Criteria{}
	if b.store.HasColumn(foreignTable, activeColumn) {
		criteria[activeColumn] = true
	}

	rows, err := b.store.ListWhere(foreignTable, criteria, sortColumn)
	if err != nil {
		return nil, err
	}

	options := make([]field.Option, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		opt := field.Option{Value: row.ID(), Label: b.rowLabel(row, labelColumn)}
		options = append(options, opt)
		seen[opt.Value] = struct{}{}
	}

	// Rows the record already references stay selectable even when no
	// longer active; they carry the inactive flag so labels render
	// bracket-wrapped.
	for _, id := range valueStrings(fld.InitValue) {
		if _, ok := seen[id]; ok {
			continue
		}
		row, err := b.store.FindByID(foreignTable, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		if row == nil {
			continue
		}
		options = append(options, field.Option{
			Value:    id,
			Label:    b.rowLabel(row, labelColumn),
			Inactive: true,
		})
		seen[id] = struct{}{}
	}

	return options, nil
}

func (b *Binder) optionTable(fld *field.Field) (string, error) {
	if src := fld.Source; src != nil && src.Table != "" {
		return src.Table, nil
	}
	relation := b.relationName(fld)
	if !b.store.HasRelationship(b.table, relation) {
		return "", nil
	}
	meta, err := b.store.RelationshipMetadata(b.table, relation)
	if err != nil {
		return "", err
	}
	return meta.ForeignTable, nil
}

func (b *Binder) rowLabel(row Record, labelColumn string) string {
	if value, ok := row.Get(labelColumn); ok {
		return stringify(value)
	}
	return row.ID()
}

func (b *Binder) relationName(fld *field.Field) string {
	if src := fld.Source; src != nil && src.Relation != "" {
		return src.Relation
	}
	return fld.Name
}
