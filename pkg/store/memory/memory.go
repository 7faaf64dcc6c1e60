// Package memory provides a deterministic in-memory implementation of the
// bind.Store capability. It backs tests and examples; schema (columns,
// relationships) is registered explicitly, mirroring how the SQL store is
// configured.
package memory

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/goliatone/go-formbind/pkg/bind"
)

// Table declares one table's schema.
type Table struct {
	Name      string
	IDColumn  string
	Columns   map[string]bind.ColumnType
	Relations map[string]bind.RelationshipMeta
}

type row struct {
	table   string
	id      string
	columns map[string]any
}

func (r *row) Table() string { return r.table }
func (r *row) ID() string    { return r.id }
func (r *row) Get(column string) (any, bool) {
	value, ok := r.columns[column]
	return value, ok
}

type tableState struct {
	def  Table
	seq  int
	rows []*row
}

// Store is an in-memory bind.Store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*tableState
	// links keys are table|id|relation; values are ordered foreign ids.
	links map[string][]string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tables: make(map[string]*tableState),
		links:  make(map[string][]string),
	}
}

// RegisterTable declares a table schema. Duplicate names return an error.
func (s *Store) RegisterTable(def Table) error {
	if def.Name == "" {
		return fmt.Errorf("memory: table name is required")
	}
	if def.IDColumn == "" {
		def.IDColumn = "id"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tables[def.Name]; exists {
		return fmt.Errorf("memory: table %q already registered", def.Name)
	}
	s.tables[def.Name] = &tableState{def: def}
	return nil
}

// MustRegisterTable panics on registration failure.
func (s *Store) MustRegisterTable(def Table) {
	if err := s.RegisterTable(def); err != nil {
		panic(err)
	}
}

func (s *Store) table(name string) (*tableState, error) {
	state, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("memory: unknown table %q", name)
	}
	return state, nil
}

// FindByID implements bind.Store.
func (s *Store) FindByID(table, id string) (bind.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.table(table)
	if err != nil {
		return nil, err
	}
	for _, r := range state.rows {
		if r.id == id {
			return r, nil
		}
	}
	return nil, bind.ErrNotFound
}

// ListWhere implements bind.Store. Criteria match by canonical string form.
func (s *Store) ListWhere(table string, criteria bind.Criteria, orderBy string) ([]bind.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.table(table)
	if err != nil {
		return nil, err
	}

	var matched []*row
	for _, r := range state.rows {
		if rowMatches(r, criteria) {
			matched = append(matched, r)
		}
	}
	if orderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := matched[i].columns[orderBy]
			b, _ := matched[j].columns[orderBy]
			return canonical(a) < canonical(b)
		})
	}

	out := make([]bind.Record, len(matched))
	for i, r := range matched {
		out[i] = r
	}
	return out, nil
}

// CountWhere implements bind.Store.
func (s *Store) CountWhere(table string, criteria bind.Criteria) (int, error) {
	rows, err := s.ListWhere(table, criteria, "")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Create implements bind.Store. Missing ids are assigned from a per-table
// sequence.
func (s *Store) Create(table string, columns map[string]any) (bind.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.table(table)
	if err != nil {
		return nil, err
	}

	cloned := make(map[string]any, len(columns))
	for key, value := range columns {
		cloned[key] = value
	}

	id := canonical(cloned[state.def.IDColumn])
	if id == "" {
		state.seq++
		id = strconv.Itoa(state.seq)
		cloned[state.def.IDColumn] = id
	}

	r := &row{table: table, id: id, columns: cloned}
	state.rows = append(state.rows, r)
	return r, nil
}

// Update implements bind.Store.
func (s *Store) Update(record bind.Record, columns map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.table(record.Table())
	if err != nil {
		return err
	}
	for _, r := range state.rows {
		if r.id == record.ID() {
			for key, value := range columns {
				r.columns[key] = value
			}
			return nil
		}
	}
	return bind.ErrNotFound
}

// LinkRelated implements bind.Store.
func (s *Store) LinkRelated(record bind.Record, relation, foreignID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey(record, relation)
	for _, id := range s.links[key] {
		if id == foreignID {
			return nil
		}
	}
	s.links[key] = append(s.links[key], foreignID)
	return nil
}

// UnlinkRelated implements bind.Store.
func (s *Store) UnlinkRelated(record bind.Record, relation, foreignID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey(record, relation)
	current := s.links[key]
	out := current[:0]
	for _, id := range current {
		if id != foreignID {
			out = append(out, id)
		}
	}
	s.links[key] = out
	return nil
}

// RelatedIDs implements bind.Store.
func (s *Store) RelatedIDs(record bind.Record, relation string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.links[linkKey(record, relation)]
	return append([]string(nil), ids...), nil
}

// RelationshipMetadata implements bind.Store.
func (s *Store) RelationshipMetadata(table, relation string) (bind.RelationshipMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.table(table)
	if err != nil {
		return bind.RelationshipMeta{}, err
	}
	meta, ok := state.def.Relations[relation]
	if !ok {
		return bind.RelationshipMeta{}, fmt.Errorf("memory: unknown relationship %s.%s", table, relation)
	}
	return meta, nil
}

// ColumnType implements bind.Store.
func (s *Store) ColumnType(table, column string) (bind.ColumnType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.tables[table]
	if !ok {
		return "", false
	}
	columnType, ok := state.def.Columns[column]
	return columnType, ok
}

// HasColumn implements bind.Store.
func (s *Store) HasColumn(table, column string) bool {
	_, ok := s.ColumnType(table, column)
	return ok
}

// HasRelationship implements bind.Store.
func (s *Store) HasRelationship(table, relation string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.tables[table]
	if !ok {
		return false
	}
	_, ok = state.def.Relations[relation]
	return ok
}

func rowMatches(r *row, criteria bind.Criteria) bool {
	for column, expected := range criteria {
		actual, ok := r.columns[column]
		if !ok {
			return false
		}
		if canonical(actual) != canonical(expected) {
			return false
		}
	}
	return true
}

func canonical(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}

func linkKey(record bind.Record, relation string) string {
	return record.Table() + "|" + record.ID() + "|" + relation
}
