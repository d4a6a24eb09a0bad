package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/mesh-intelligence/timecard/internal/sqlite"
	"github.com/mesh-intelligence/timecard/pkg/types"
)

const (
	timeLayout = "2006-01-02 15:04"
	dateLayout = "2006-01-02"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable returns a table writer rendering to w, limited to the terminal
// width when w is a terminal.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if width := termWidth(w); width > 0 {
		t.SetAllowedRowLength(width)
	}
	return t
}

func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// formatDuration renders d as h:mm:ss.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func formatClock(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format(timeLayout)
}

// location returns the display zone from the timezone setting, an offset
// from UTC in hours. An unset or malformed value means UTC.
func (a *app) location() *time.Location {
	v, err := sqlite.NewSettings(a.conn).Get(types.SettingTimezone)
	if err != nil {
		return time.UTC
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || hours == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+g", hours), int(hours*3600))
}
