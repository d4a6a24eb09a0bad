package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

var settingColumns = []string{"id", "setting_key", "value", "created_at", "updated_at"}

type settingMapper struct{}

func (settingMapper) Key(row types.Row) int64 { return colInt(row, "id") }

func (settingMapper) Map(row types.Row) types.Setting {
	return types.Setting{
		ID:        colInt(row, "id"),
		Key:       colText(row, "setting_key"),
		Value:     colText(row, "value"),
		CreatedAt: colTime(row, "created_at"),
		UpdatedAt: colTime(row, "updated_at"),
	}
}

// NewSettingTable returns an empty settings table bound to exec.
func NewSettingTable(exec Execer) *EntityTable[types.Setting] {
	return NewEntityTable[types.Setting](exec, "settings", settingColumns, settingMapper{})
}

// Settings reads and writes key/value preferences.
type Settings struct {
	exec Execer
}

// NewSettings returns the settings operations bound to exec.
func NewSettings(exec Execer) *Settings {
	return &Settings{exec: exec}
}

// Get returns the value stored under key, or types.ErrNotFound.
func (s *Settings) Get(key string) (string, error) {
	t := NewSettingTable(s.exec)
	if err := t.Select("setting_key = ?", BindValues(types.Text(key)), ""); err != nil {
		return "", err
	}
	st, ok := t.First()
	if !ok {
		return "", types.ErrNotFound
	}
	return st.Value, nil
}

// Set stores value under key, creating the key when missing.
func (s *Settings) Set(key, value string) error {
	if key == "" {
		return types.ErrInvalidName
	}
	_, err := s.exec.Exec(
		`INSERT INTO settings (setting_key, value) VALUES (?, ?)
ON CONFLICT(setting_key) DO UPDATE SET value = excluded.value;`,
		BindValues(types.Text(key), types.Text(value)), nil,
	)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// All returns every setting ordered by key.
func (s *Settings) All() ([]types.Setting, error) {
	t := NewSettingTable(s.exec)
	if err := t.Select("", nil, "setting_key"); err != nil {
		return nil, err
	}
	return t.Ordered(), nil
}
