package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

// ExportStats counts the records written or loaded per backup file.
type ExportStats map[string]int

// Export writes every task, worktime, schedule and setting row to JSONL
// files in dir, replacing existing files atomically. The rows are read in
// one logical operation so the files are mutually consistent.
func Export(conn *Conn, dir string) (ExportStats, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	stats := ExportStats{}
	err := conn.Do(func(s *Session) error {
		for _, m := range jsonlFiles {
			t := NewRawTable(s, m.table, m.columns...)
			if err := t.Select("", nil, "id"); err != nil {
				return err
			}
			rows := t.Raw()
			records := make([]json.RawMessage, 0, len(rows))
			for _, row := range rows {
				rec, err := rowJSON(row, m.columns)
				if err != nil {
					return fmt.Errorf("encoding %s row: %w", m.table, err)
				}
				records = append(records, rec)
			}
			if err := writeJSONL(filepath.Join(dir, m.file), records); err != nil {
				return fmt.Errorf("writing %s: %w", m.file, err)
			}
			stats[m.file] = len(records)
		}
		return nil
	})
	return stats, err
}

// Import loads the JSONL files in dir into the database in one transaction:
// every file loads or none does. Rows replace existing rows with the same
// id. Missing files are skipped, as are malformed lines and records the
// table rejects.
func Import(conn *Conn, dir string) (ExportStats, error) {
	loaded := make(map[string][]json.RawMessage, len(jsonlFiles))
	for _, m := range jsonlFiles {
		records, err := readJSONL(filepath.Join(dir, m.file))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		loaded[m.file] = records
	}

	stats := ExportStats{}
	err := conn.Tx(func(s *Session) error {
		for _, m := range jsonlFiles {
			n, err := insertRecords(s, m.table, m.columns, loaded[m.file])
			if err != nil {
				return fmt.Errorf("loading %s into %s: %w", m.file, m.table, err)
			}
			stats[m.file] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// insertRecords upserts records into table and returns how many were
// stored. Only constraint failures are skipped; anything else aborts.
func insertRecords(s *Session, table string, columns []string, records []json.RawMessage) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	stmt := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s);",
		table,
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)
	n := 0
	for _, rec := range records {
		vals, ok := recordValues(rec, columns)
		if !ok {
			continue
		}
		if _, err := s.Exec(stmt, BindValues(vals...), nil); err != nil {
			if isConstraint(err) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// SQLITE_CONSTRAINT and its extended codes share the low byte 19.
const codeConstraint = 19

func isConstraint(err error) bool {
	var se *types.Error
	return errors.As(err, &se) && se.Code&0xff == codeConstraint
}
