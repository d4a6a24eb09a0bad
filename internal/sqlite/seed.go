package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

// defaultSetting is a settings row created when missing.
type defaultSetting struct {
	key   string
	value string
}

// defaultSettings are seeded on every open. Existing values are never
// overwritten.
var defaultSettings = []defaultSetting{
	{types.SettingTimezone, "0"},
	{types.SettingLogLevel, "info"},
}

const seedSettingSQL = `INSERT OR IGNORE INTO settings (setting_key, value) VALUES (?, ?);`

func (c *Conn) seedSettingsLocked() error {
	s := &Session{c: c}
	for _, d := range defaultSettings {
		if _, err := s.Exec(seedSettingSQL, BindValues(types.Text(d.key), types.Text(d.value)), nil); err != nil {
			return fmt.Errorf("seeding setting %s: %w", d.key, err)
		}
	}
	return nil
}
