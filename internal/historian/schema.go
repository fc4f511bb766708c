// Package historian implements the append-only event store that backs
// hyper-scripter's "previous args" / ignore / amend / tidy semantics
// (spec §4.4).
package historian

// SchemaVersion is the current supported schema version. Open refuses to
// open a database whose recorded version exceeds this.
const SchemaVersion = 3

// schemaV1 creates the original script_infos + events tables.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS script_infos (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  name          TEXT NOT NULL UNIQUE,
  category      TEXT NOT NULL,
  tags          TEXT NOT NULL DEFAULT '',
  created_time  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  write_time    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS events (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  script_id     INTEGER NOT NULL REFERENCES script_infos(id) ON DELETE CASCADE,
  type          TEXT NOT NULL,
  cmd           TEXT NOT NULL DEFAULT '',
  args          TEXT,
  content       TEXT,
  time          DATETIME NOT NULL,
  main_event_id INTEGER NOT NULL DEFAULT 0,
  ignored       BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_events_script_type_time ON events(script_id, type, time);
CREATE INDEX IF NOT EXISTS idx_events_main_event_id ON events(main_event_id);
`

// schemaV2 adds the cwd column needed by previous_args(dir?) — an additive
// column not present in the original table, decided in the design notes.
const schemaV2 = `
ALTER TABLE events ADD COLUMN cwd TEXT;
`

// schemaV3 adds the envs column, carrying the serialized environment that
// previous_args(dir?) returns alongside args (spec §4.4).
const schemaV3 = `
ALTER TABLE events ADD COLUMN envs TEXT;
`

// migrations returns every migration in order. They are forward-only and
// applied within a transaction, the same discipline the rest of the ambient
// stack uses for its own schema.
func migrations() []migration {
	return []migration{
		{version: 1, sql: schemaV1},
		{version: 2, sql: schemaV2},
		{version: 3, sql: schemaV3},
	}
}

type migration struct {
	version int
	sql     string
}
