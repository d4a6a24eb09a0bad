package types

import "time"

// Migration is the record tracking the latest applied schema version.
type Migration struct {
	ID        int64
	Applied   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
