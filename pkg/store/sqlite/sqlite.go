// Package sqlite implements the bind.Store capability over database/sql with
// the go-sqlite3 driver. Table schemas (columns, relationships) are
// registered explicitly; identifiers come from that trusted configuration
// while all values travel as query parameters.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-formbind/pkg/bind"
)

// Table declares one table's schema.
type Table struct {
	Name      string
	IDColumn  string
	Columns   map[string]bind.ColumnType
	Relations map[string]bind.RelationshipMeta
}

// Option configures a Store.
type Option func(*Store)

// WithLogger enables query debug logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store is a SQL-backed bind.Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.RWMutex
	tables map[string]Table
}

// New wraps an open database handle. The caller owns the handle's lifecycle
// and transaction scoping.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, tables: make(map[string]Table)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a sqlite database at path ( ":memory:" works) and wraps it.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	return New(db, opts...), nil
}

// DB exposes the underlying handle for schema setup and transactions.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// RegisterTable declares a table schema.
func (s *Store) RegisterTable(def Table) error {
	if def.Name == "" {
		return fmt.Errorf("sqlite: table name is required")
	}
	if def.IDColumn == "" {
		def.IDColumn = "id"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tables[def.Name]; exists {
		return fmt.Errorf("sqlite: table %q already registered", def.Name)
	}
	s.tables[def.Name] = def
	return nil
}

// MustRegisterTable panics on registration failure.
func (s *Store) MustRegisterTable(def Table) {
	if err := s.RegisterTable(def); err != nil {
		panic(err)
	}
}

func (s *Store) table(name string) (Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.tables[name]
	if !ok {
		return Table{}, fmt.Errorf("sqlite: unknown table %q", name)
	}
	return def, nil
}

// record is a loaded row snapshot.
type record struct {
	table   string
	id      string
	columns map[string]any
}

func (r *record) Table() string { return r.table }
func (r *record) ID() string    { return r.id }
func (r *record) Get(column string) (any, bool) {
	value, ok := r.columns[column]
	return value, ok
}

// selectColumns returns the deterministic column list for a table, id column
// first.
func selectColumns(def Table) []string {
	columns := make([]string, 0, len(def.Columns)+1)
	for name := range def.Columns {
		if name == def.IDColumn {
			continue
		}
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return append([]string{def.IDColumn}, columns...)
}

func (s *Store) scanRows(def Table, rows *sql.Rows) ([]bind.Record, error) {
	columns := selectColumns(def)
	var out []bind.Record
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		rec := &record{table: def.Name, columns: make(map[string]any, len(columns))}
		for i, name := range columns {
			rec.columns[name] = normalizeSQLValue(values[i])
		}
		rec.id = fmt.Sprint(rec.columns[def.IDColumn])
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FindByID implements bind.Store.
func (s *Store) FindByID(table, id string) (bind.Record, error) {
	def, err := s.table(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		strings.Join(selectColumns(def), ", "), def.Name, def.IDColumn)
	s.debug(query, id)

	rows, err := s.db.Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := s.scanRows(def, rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, bind.ErrNotFound
	}
	return records[0], nil
}

// ListWhere implements bind.Store. The order column must be registered.
func (s *Store) ListWhere(table string, criteria bind.Criteria, orderBy string) ([]bind.Record, error) {
	def, err := s.table(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(selectColumns(def), ", "), def.Name)

	where, args, err := buildWhere(def, criteria)
	if err != nil {
		return nil, err
	}
	query += where

	if orderBy != "" {
		if _, ok := def.Columns[orderBy]; !ok && orderBy != def.IDColumn {
			return nil, fmt.Errorf("sqlite: unknown order column %s.%s", table, orderBy)
		}
		query += " ORDER BY " + orderBy
	}
	s.debug(query, args...)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanRows(def, rows)
}

// CountWhere implements bind.Store.
func (s *Store) CountWhere(table string, criteria bind.Criteria) (int, error) {
	def, err := s.table(table)
	if err != nil {
		return 0, err
	}
	where, args, err := buildWhere(def, criteria)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", def.Name, where)
	s.debug(query, args...)

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Create implements bind.Store.
func (s *Store) Create(table string, columns map[string]any) (bind.Record, error) {
	def, err := s.table(table)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		if _, ok := def.Columns[name]; !ok && name != def.IDColumn {
			return nil, fmt.Errorf("sqlite: unknown column %s.%s", table, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]any, len(names))
	marks := make([]string, len(names))
	for i, name := range names {
		args[i] = columns[name]
		marks[i] = "?"
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		def.Name, strings.Join(names, ", "), strings.Join(marks, ", "))
	s.debug(query, args...)

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, err
	}

	id := fmt.Sprint(columns[def.IDColumn])
	if columns[def.IDColumn] == nil {
		lastID, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}
		id = fmt.Sprint(lastID)
	}
	return s.FindByID(table, id)
}

// Update implements bind.Store.
func (s *Store) Update(rec bind.Record, columns map[string]any) error {
	def, err := s.table(rec.Table())
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		if _, ok := def.Columns[name]; !ok && name != def.IDColumn {
			return fmt.Errorf("sqlite: unknown column %s.%s", rec.Table(), name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		sets[i] = name + " = ?"
		args = append(args, columns[name])
	}
	args = append(args, rec.ID())

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		def.Name, strings.Join(sets, ", "), def.IDColumn)
	s.debug(query, args...)

	_, err = s.db.Exec(query, args...)
	return err
}

func (s *Store) relation(table, relation string) (bind.RelationshipMeta, error) {
	def, err := s.table(table)
	if err != nil {
		return bind.RelationshipMeta{}, err
	}
	meta, ok := def.Relations[relation]
	if !ok {
		return bind.RelationshipMeta{}, fmt.Errorf("sqlite: unknown relationship %s.%s", table, relation)
	}
	return meta, nil
}

// LinkRelated implements bind.Store: mapping-table relationships insert a
// link row, direct has-many sets the child's back-reference column.
func (s *Store) LinkRelated(rec bind.Record, relation, foreignID string) error {
	meta, err := s.relation(rec.Table(), relation)
	if err != nil {
		return err
	}

	if meta.ViaTable != "" {
		query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
			meta.ViaTable, meta.JoinColumn, meta.ForeignColumn)
		s.debug(query, rec.ID(), foreignID)
		_, err := s.db.Exec(query, rec.ID(), foreignID)
		return err
	}

	foreign, err := s.table(meta.ForeignTable)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		foreign.Name, meta.JoinColumn, foreign.IDColumn)
	s.debug(query, rec.ID(), foreignID)
	_, err = s.db.Exec(query, rec.ID(), foreignID)
	return err
}

// UnlinkRelated implements bind.Store.
func (s *Store) UnlinkRelated(rec bind.Record, relation, foreignID string) error {
	meta, err := s.relation(rec.Table(), relation)
	if err != nil {
		return err
	}

	if meta.ViaTable != "" {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
			meta.ViaTable, meta.JoinColumn, meta.ForeignColumn)
		s.debug(query, rec.ID(), foreignID)
		_, err := s.db.Exec(query, rec.ID(), foreignID)
		return err
	}

	foreign, err := s.table(meta.ForeignTable)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = ? AND %s = ?",
		foreign.Name, meta.JoinColumn, foreign.IDColumn, meta.JoinColumn)
	s.debug(query, foreignID, rec.ID())
	_, err = s.db.Exec(query, foreignID, rec.ID())
	return err
}

// RelatedIDs implements bind.Store; ids come back in insertion order for
// mapping tables and id order for direct has-many.
func (s *Store) RelatedIDs(rec bind.Record, relation string) ([]string, error) {
	meta, err := s.relation(rec.Table(), relation)
	if err != nil {
		return nil, err
	}

	var query string
	if meta.ViaTable != "" {
		query = fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY rowid",
			meta.ForeignColumn, meta.ViaTable, meta.JoinColumn)
	} else {
		foreign, err := s.table(meta.ForeignTable)
		if err != nil {
			return nil, err
		}
		query = fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s",
			foreign.IDColumn, foreign.Name, meta.JoinColumn, foreign.IDColumn)
	}
	s.debug(query, rec.ID())

	rows, err := s.db.Query(query, rec.ID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RelationshipMetadata implements bind.Store.
func (s *Store) RelationshipMetadata(table, relation string) (bind.RelationshipMeta, error) {
	return s.relation(table, relation)
}

// ColumnType implements bind.Store.
func (s *Store) ColumnType(table, column string) (bind.ColumnType, bool) {
	def, err := s.table(table)
	if err != nil {
		return "", false
	}
	columnType, ok := def.Columns[column]
	return columnType, ok
}

// HasColumn implements bind.Store.
func (s *Store) HasColumn(table, column string) bool {
	_, ok := s.ColumnType(table, column)
	return ok
}

// HasRelationship implements bind.Store.
func (s *Store) HasRelationship(table, relation string) bool {
	def, err := s.table(table)
	if err != nil {
		return false
	}
	_, ok := def.Relations[relation]
	return ok
}

func buildWhere(def Table, criteria bind.Criteria) (string, []any, error) {
	if len(criteria) == 0 {
		return "", nil, nil
	}
	names := make([]string, 0, len(criteria))
	for name := range criteria {
		if _, ok := def.Columns[name]; !ok && name != def.IDColumn {
			return "", nil, fmt.Errorf("sqlite: unknown criteria column %s.%s", def.Name, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	clauses := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		clauses[i] = name + " = ?"
		args[i] = criteria[name]
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// normalizeSQLValue maps driver byte slices to strings so record values
// compare cleanly against form input.
func normalizeSQLValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}

func (s *Store) debug(query string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Debug("sqlite query", "query", query, "args", args)
}
