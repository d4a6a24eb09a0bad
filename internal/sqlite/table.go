package sqlite

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

// Execer runs the first statement of a script. *Conn runs each call as its
// own logical operation; *Session runs it inside an enclosing Do or Tx.
type Execer interface {
	Exec(script string, bind Binder, dst *types.Table) (string, error)
}

var (
	_ Execer = (*Conn)(nil)
	_ Execer = (*Session)(nil)
)

// Mapper turns raw rows of one table into entities.
type Mapper[T any] interface {
	Key(row types.Row) int64
	Map(row types.Row) T
}

// EntityTable is the query result of one table: the raw rows of the last
// select plus the entities mapped from them, keyed by id and kept in row
// order. It is meant to live for one call scope.
//
// The where and orderBy arguments of Select and SelectPage are pasted into
// the SQL text. They must come from code in this package; values supplied by
// users go through the Binder.
type EntityTable[T any] struct {
	exec    Execer
	name    string
	columns []string
	mapper  Mapper[T]

	raw   types.Table
	items map[int64]T
	ids   []int64
}

// NewEntityTable returns an empty table bound to exec. A nil mapper leaves
// the mapped products empty; only the raw rows are kept.
func NewEntityTable[T any](exec Execer, name string, columns []string, mapper Mapper[T]) *EntityTable[T] {
	return &EntityTable[T]{
		exec:    exec,
		name:    name,
		columns: columns,
		mapper:  mapper,
		items:   map[int64]T{},
	}
}

// NewRawTable returns an unmapped table selecting columns (all columns when
// none are given) from name.
func NewRawTable(exec Execer, name string, columns ...string) *EntityTable[types.Row] {
	return NewEntityTable[types.Row](exec, name, columns, nil)
}

// Name returns the SQL table name.
func (t *EntityTable[T]) Name() string { return t.name }

// Columns returns the selected column names.
func (t *EntityTable[T]) Columns() []string { return slices.Clone(t.columns) }

// Select runs an unpaged select, see SelectPage.
func (t *EntityTable[T]) Select(where string, bind Binder, orderBy string) error {
	return t.SelectPage(where, bind, orderBy, -1, -1)
}

// SelectPage selects the rows matching where, sorted by orderBy, and remaps
// the entities. Paging applies only when limit and offset are both
// non-negative. The mapped state reflects this select even when it fails: a
// failed select leaves the table empty.
func (t *EntityTable[T]) SelectPage(where string, bind Binder, orderBy string, limit, offset int64) error {
	_, err := t.exec.Exec(t.selectSQL(where, orderBy, limit, offset), bind, &t.raw)
	if err != nil {
		t.raw = nil
		err = fmt.Errorf("selecting from %s: %w", t.name, err)
	}
	t.remap()
	return err
}

func (t *EntityTable[T]) selectSQL(where, orderBy string, limit, offset int64) string {
	cols := "*"
	if len(t.columns) > 0 {
		cols = strings.Join(t.columns, ", ")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, t.name)
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY " + orderBy)
	}
	if limit >= 0 && offset >= 0 {
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", limit, offset)
	}
	b.WriteString(";")
	return b.String()
}

// Exec runs a statement against the table's connection, collecting any rows
// it returns into the raw table and remapping. Use it for writes with a
// RETURNING clause.
func (t *EntityTable[T]) Exec(stmt string, bind Binder) error {
	_, err := t.exec.Exec(stmt, bind, &t.raw)
	t.remap()
	return err
}

func (t *EntityTable[T]) remap() {
	t.items = make(map[int64]T, len(t.raw))
	t.ids = t.ids[:0]
	if t.mapper == nil {
		return
	}
	for _, row := range t.raw {
		id := t.mapper.Key(row)
		if _, dup := t.items[id]; !dup {
			t.ids = append(t.ids, id)
		}
		t.items[id] = t.mapper.Map(row)
	}
}

// Raw returns a copy of the raw rows of the last statement.
func (t *EntityTable[T]) Raw() types.Table {
	out := make(types.Table, len(t.raw))
	for i, row := range t.raw {
		out[i] = maps.Clone(row)
	}
	return out
}

// Len returns the number of mapped entities.
func (t *EntityTable[T]) Len() int { return len(t.ids) }

// Keys returns the entity ids in row order.
func (t *EntityTable[T]) Keys() []int64 { return slices.Clone(t.ids) }

// Items returns a copy of the id to entity map.
func (t *EntityTable[T]) Items() map[int64]T { return maps.Clone(t.items) }

// Get returns the entity with the given id.
func (t *EntityTable[T]) Get(id int64) (T, bool) {
	v, ok := t.items[id]
	return v, ok
}

// Ordered returns the entities in row order.
func (t *EntityTable[T]) Ordered() []T {
	out := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.items[id])
	}
	return out
}

// First returns the first entity in row order.
func (t *EntityTable[T]) First() (T, bool) {
	if len(t.ids) == 0 {
		var zero T
		return zero, false
	}
	return t.items[t.ids[0]], true
}

// Column helpers shared by the mappers. A missing or mistyped column yields
// the zero value.

func colInt(row types.Row, col string) int64 { return row.Get(col).Int(0) }

func colText(row types.Row, col string) string { return row.Get(col).Str("") }

// timeLayouts are tried in order when reading a timestamp column.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func colTime(row types.Row, col string) time.Time {
	s := colText(row, col)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// formatTime renders t the way timestamp columns store it.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// timeValue binds a timestamp, NULL for the zero time.
func timeValue(t time.Time) types.Value {
	if t.IsZero() {
		return types.Null()
	}
	return types.Text(formatTime(t))
}

// parentValue binds a parent id, NULL for the root sentinel.
func parentValue(parent int64) types.Value {
	if parent <= 0 {
		return types.Null()
	}
	return types.Integer(parent)
}
