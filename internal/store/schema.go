package store

const schema = `
CREATE TABLE IF NOT EXISTS reload_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    watcher TEXT NOT NULL,
    kind TEXT NOT NULL,
    path TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reload_recorded ON reload_events(recorded_at);
CREATE INDEX IF NOT EXISTS idx_reload_kind ON reload_events(kind);
CREATE INDEX IF NOT EXISTS idx_reload_watcher ON reload_events(watcher);
`
