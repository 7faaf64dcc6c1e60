// Package bind reconciles validated form values against a persistent record:
// it reads initial values and relation links out of the record, computes
// option lists for choice fields, and applies the create-or-update plus
// relationship diffing when validation succeeds.
package bind

import "errors"

var (
	// ErrNotFound is returned by stores when a lookup matches no row.
	ErrNotFound = errors.New("bind: record not found")
	// ErrNoTable rejects binders constructed without a backing table.
	ErrNoTable = errors.New("bind: a backing table is required")
	// ErrRelationshipMetadata flags relation fields whose join metadata is
	// missing or incomplete. This is a configuration error raised at bind
	// time, never a per-request validation failure.
	ErrRelationshipMetadata = errors.New("bind: incomplete relationship metadata")
)

// Criteria is a column -> expected value match set for list/count queries.
type Criteria map[string]any

// Record is the opaque row-like object the binder reads from. Stores own the
// concrete representation; the binder only needs identity and column reads.
type Record interface {
	Table() string
	ID() string
	Get(column string) (any, bool)
}

// RelKind discriminates single-valued from multi-valued relationships.
type RelKind string

const (
	// RelSingle is a foreign-key relationship to one row.
	RelSingle RelKind = "single"
	// RelMulti is a has-many or many-to-many relationship.
	RelMulti RelKind = "multi"
)

// RelationshipMeta describes how a declared relationship joins two tables.
// Ambiguous mapping tables are not guessed at: stores must return complete
// metadata or the binder fails construction with ErrRelationshipMetadata.
type RelationshipMeta struct {
	Kind RelKind
	// JoinColumn is the foreign-key column that carries the link: on the
	// owning table for single relationships, on the child table pointing
	// back at the owner for has-many, or the owning-side column of the
	// mapping table for many-to-many.
	JoinColumn string
	// ForeignTable is the related table options and linked rows live in.
	ForeignTable string
	// ForeignColumn is the far-side column of the mapping table for
	// many-to-many relationships; unused otherwise.
	ForeignColumn string
	// ViaTable is the mapping table for many-to-many relationships; empty
	// for direct relationships.
	ViaTable string
}

// Complete reports whether the metadata carries everything the binder needs
// for its kind.
func (m RelationshipMeta) Complete() bool {
	switch m.Kind {
	case RelSingle:
		return m.JoinColumn != "" && m.ForeignTable != ""
	case RelMulti:
		if m.ForeignTable == "" || m.JoinColumn == "" {
			return false
		}
		return m.ViaTable == "" || m.ForeignColumn != ""
	default:
		return false
	}
}

// ColumnType is the coarse persistent column type used to guess field kinds
// for auto profile declarations.
type ColumnType string

const (
	ColumnText    ColumnType = "text"
	ColumnInteger ColumnType = "integer"
	ColumnNumber  ColumnType = "number"
	ColumnBoolean ColumnType = "boolean"
	ColumnDate    ColumnType = "date"
)

// Store is the data-access capability the binder runs against. All calls are
// synchronous; transaction scoping belongs to the caller. Store failures
// propagate unmodified, the binder does not manage retries or transactions.
type Store interface {
	// FindByID returns the row with the given id or ErrNotFound.
	FindByID(table, id string) (Record, error)
	// ListWhere returns rows matching every criteria entry, ordered by the
	// given column when non-empty.
	ListWhere(table string, criteria Criteria, orderBy string) ([]Record, error)
	// CountWhere counts rows matching the criteria.
	CountWhere(table string, criteria Criteria) (int, error)
	// Create inserts a row and returns it.
	Create(table string, columns map[string]any) (Record, error)
	// Update applies the column map to an existing row.
	Update(record Record, columns map[string]any) error
	// LinkRelated attaches a foreign row to a multi-valued relationship.
	LinkRelated(record Record, relation, foreignID string) error
	// UnlinkRelated detaches a foreign row from a multi-valued relationship.
	UnlinkRelated(record Record, relation, foreignID string) error
	// RelatedIDs returns the ordered ids currently linked through a
	// multi-valued relationship.
	RelatedIDs(record Record, relation string) ([]string, error)
	// RelationshipMetadata resolves join metadata for a declared relation.
	RelationshipMetadata(table, relation string) (RelationshipMeta, error)
	// ColumnType reports the coarse type of a column when known.
	ColumnType(table, column string) (ColumnType, bool)
	// HasColumn reports whether the table carries the column.
	HasColumn(table, column string) bool
	// HasRelationship reports whether the table declares the relationship.
	HasRelationship(table, relation string) bool
}
