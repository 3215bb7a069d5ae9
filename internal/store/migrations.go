package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	surname    TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	password   TEXT NOT NULL DEFAULT '',
	admin      INTEGER NOT NULL DEFAULT 0 CHECK(admin IN (0, 1)),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	owner_id    INTEGER NOT NULL REFERENCES users(id),
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	due_at         DATETIME,
	project_id     INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	responsible_id INTEGER NOT NULL REFERENCES users(id),
	status         TEXT NOT NULL DEFAULT 'PENDING',
	comments       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL,
	task_id    INTEGER NOT NULL DEFAULT 0,
	kind       TEXT NOT NULL DEFAULT 'status_change',
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_due_at ON tasks(due_at);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_responsible ON tasks(responsible_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, read);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
	ON users(email) WHERE email <> '';

CREATE INDEX IF NOT EXISTS idx_notifications_created
	ON notifications(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
ALTER TABLE projects ADD COLUMN budget REAL NOT NULL DEFAULT 0;

CREATE TABLE IF NOT EXISTS costs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ref_type    TEXT NOT NULL CHECK(ref_type IN ('PROJECT', 'TASK')),
	ref_id      INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	amount      REAL NOT NULL,
	kind        TEXT NOT NULL,
	recorded_by INTEGER NOT NULL REFERENCES users(id),
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_costs_ref ON costs(ref_type, ref_id);
CREATE INDEX IF NOT EXISTS idx_costs_recorded_by ON costs(recorded_by);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
