package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

var migrationColumns = []string{"id", "applied", "created_at", "updated_at"}

type migrationMapper struct{}

func (migrationMapper) Key(row types.Row) int64 { return colInt(row, "id") }

func (migrationMapper) Map(row types.Row) types.Migration {
	return types.Migration{
		ID:        colInt(row, "id"),
		Applied:   colInt(row, "applied"),
		CreatedAt: colTime(row, "created_at"),
		UpdatedAt: colTime(row, "updated_at"),
	}
}

// NewMigrationTable returns the table holding the applied-version record.
func NewMigrationTable(exec Execer) *EntityTable[types.Migration] {
	return NewEntityTable[types.Migration](exec, "migrate", migrationColumns, migrationMapper{})
}

// LatestSchemaVersion returns the version the migrations bring a database to.
func LatestSchemaVersion() int64 {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the schema version recorded in the open database.
func (c *Conn) SchemaVersion() (int64, error) {
	var version int64
	err := c.Do(func(s *Session) error {
		v, err := schemaVersion(s)
		version = v
		return err
	})
	return version, err
}

// schemaVersion reads migrate.applied; a database without the migrate table
// is at version 0.
func schemaVersion(exec Execer) (int64, error) {
	var probe types.Table
	if _, err := exec.Exec("SELECT COUNT(*) AS n FROM pragma_table_info('migrate');", nil, &probe); err != nil {
		return 0, fmt.Errorf("probing migrate table: %w", err)
	}
	if len(probe) == 0 || colInt(probe[0], "n") == 0 {
		return 0, nil
	}

	t := NewMigrationTable(exec)
	if err := t.Select("id = ?", BindValues(types.Integer(1)), ""); err != nil {
		return 0, err
	}
	m, ok := t.Get(1)
	if !ok {
		return 0, nil
	}
	return m.Applied, nil
}

// migrateLocked applies every migration newer than the recorded version.
// Each one runs in its own transaction together with the version bump, so a
// failed step leaves the database at the previous version.
func (c *Conn) migrateLocked() error {
	s := &Session{c: c}
	current, err := schemaVersion(s)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		script := "BEGIN;\n" + m.script + "\n" +
			fmt.Sprintf("UPDATE migrate SET applied = %d WHERE id = 1;\n", m.version) +
			"COMMIT;"
		if err := s.RunScript(script); err != nil {
			_ = s.RunScript("ROLLBACK;")
			return fmt.Errorf("applying migration %04d_%s: %w", m.version, m.name, err)
		}
		current = m.version
	}
	return nil
}
