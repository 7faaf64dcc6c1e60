package bind

import "fmt"

// Guesser infers field types from the persistent schema for auto profile
// declarations. It implements form.TypeGuesser and can be constructed before
// the form (and therefore before the binder) exists.
type Guesser struct {
	store Store
	table string
}

// NewGuesser builds a schema-backed type guesser for a table.
func NewGuesser(store Store, table string) *Guesser {
	return &Guesser{store: store, table: table}
}

// GuessType maps a column or relationship to a registered field kind:
// multi-valued relationships become multiple-selects, single-valued ones
// selects, and plain columns follow their coarse column type.
func (g *Guesser) GuessType(name string) (string, error) {
	if g.store.HasRelationship(g.table, name) {
		meta, err := g.store.RelationshipMetadata(g.table, name)
		if err != nil {
			return "", err
		}
		if meta.Kind == RelMulti {
			return "multiple", nil
		}
		return "select", nil
	}

	if columnType, ok := g.store.ColumnType(g.table, name); ok {
		switch columnType {
		case ColumnInteger:
			return "integer", nil
		case ColumnNumber:
			return "number", nil
		case ColumnBoolean:
			return "boolean", nil
		case ColumnDate:
			return "date", nil
		default:
			return "text", nil
		}
	}

	return "", fmt.Errorf("bind: cannot guess type for %s.%s", g.table, name)
}

// GuessType on the binder delegates to a guesser for its own table.
func (b *Binder) GuessType(name string) (string, error) {
	return NewGuesser(b.store, b.table).GuessType(name)
}
