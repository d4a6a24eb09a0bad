package types

import "time"

// Well-known setting keys.
const (
	SettingTimezone = "timezone"
	SettingLogLevel = "log_level"
)

// Setting is a key/value preference row.
type Setting struct {
	ID        int64     `json:"id"`
	Key       string    `json:"setting_key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
