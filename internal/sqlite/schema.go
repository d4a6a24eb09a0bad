package sqlite

// Timestamps are stored as RFC 3339 UTC text so they sort lexically.
const sqlNow = `strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

// Baseline DDL, run once when the database file is created. It leaves the
// database at schema version 1.
const (
	createStatus = `CREATE TABLE status (
    id INTEGER PRIMARY KEY,
    label TEXT NOT NULL UNIQUE
);`

	seedStatus = `INSERT INTO status (id, label) VALUES
    (1, 'in progress'),
    (2, 'incomplete'),
    (3, 'complete'),
    (4, 'not planned');`

	createTask = `CREATE TABLE task (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    parent_id INTEGER,
    name TEXT NOT NULL DEFAULT 'new task',
    detail TEXT NOT NULL DEFAULT '',
    status_id INTEGER NOT NULL DEFAULT 2 REFERENCES status(id),
    created_at TEXT NOT NULL DEFAULT (` + sqlNow + `),
    updated_at TEXT NOT NULL DEFAULT (` + sqlNow + `)
);`

	createWorktime = `CREATE TABLE worktime (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL,
    memo TEXT NOT NULL DEFAULT '',
    starting_time TEXT NOT NULL,
    finishing_time TEXT,
    created_at TEXT NOT NULL DEFAULT (` + sqlNow + `),
    updated_at TEXT NOT NULL DEFAULT (` + sqlNow + `)
);`

	createSettings = `CREATE TABLE settings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    setting_key TEXT NOT NULL UNIQUE,
    value TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (` + sqlNow + `),
    updated_at TEXT NOT NULL DEFAULT (` + sqlNow + `)
);`

	createMigrate = `CREATE TABLE migrate (
    id INTEGER PRIMARY KEY,
    applied INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (` + sqlNow + `),
    updated_at TEXT NOT NULL DEFAULT (` + sqlNow + `)
);`

	seedMigrate = `INSERT INTO migrate (id, applied) VALUES (1, 1);`
)

// touchTrigger returns a trigger keeping updated_at current on table. It
// only fires when the update did not set updated_at itself, so it does not
// recurse.
func touchTrigger(table string) string {
	return `CREATE TRIGGER IF NOT EXISTS ` + table + `_touch AFTER UPDATE ON ` + table + `
FOR EACH ROW WHEN NEW.updated_at = OLD.updated_at
BEGIN
    UPDATE ` + table + ` SET updated_at = ` + sqlNow + ` WHERE id = NEW.id;
END;`
}

// baselineDDL lists the baseline statements in dependency order.
var baselineDDL = []string{
	createStatus,
	seedStatus,
	createTask,
	createWorktime,
	createSettings,
	createMigrate,
	seedMigrate,
	touchTrigger("task"),
	touchTrigger("worktime"),
	touchTrigger("settings"),
	touchTrigger("migrate"),
}

var baselineSQL = joinScript(baselineDDL)

// migration is one forward schema step. Versions are contiguous from 1.
type migration struct {
	version int64
	name    string
	script  string
}

// migrations lists every schema step in version order. A database created by
// the baseline starts at version 1; older files without a migrate table start
// at 0 and pick up version 1 here.
var migrations = []migration{
	{
		version: 1,
		name:    "migrate_table",
		script: `CREATE TABLE IF NOT EXISTS migrate (
    id INTEGER PRIMARY KEY,
    applied INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (` + sqlNow + `),
    updated_at TEXT NOT NULL DEFAULT (` + sqlNow + `)
);
INSERT OR IGNORE INTO migrate (id, applied) VALUES (1, 0);
` + touchTrigger("migrate"),
	},
	{
		version: 2,
		name:    "schedule",
		script: `CREATE TABLE IF NOT EXISTS schedule (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL,
    starts TEXT NOT NULL,
    finishes TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (` + sqlNow + `),
    updated_at TEXT NOT NULL DEFAULT (` + sqlNow + `)
);
` + touchTrigger("schedule") + `
CREATE VIEW IF NOT EXISTS null_set_worktime AS
    SELECT id, task_id, memo, starting_time, finishing_time, created_at, updated_at
    FROM worktime WHERE finishing_time IS NULL;`,
	},
	{
		version: 3,
		name:    "lookup_indexes",
		script: `CREATE INDEX IF NOT EXISTS idx_task_parent ON task(parent_id, status_id, name);
CREATE INDEX IF NOT EXISTS idx_worktime_task ON worktime(task_id);
CREATE INDEX IF NOT EXISTS idx_worktime_open ON worktime(finishing_time);
CREATE INDEX IF NOT EXISTS idx_schedule_task ON schedule(task_id);`,
	},
}

func joinScript(stmts []string) string {
	script := ""
	for _, s := range stmts {
		script += s + "\n"
	}
	return script
}
