package store

// schema is the ordered list of schema steps. PRAGMA user_version tracks how
// many have been applied; append new steps, never edit existing ones.
var schema = []string{
	// Conversation sessions and their messages. Tool calls ride along as a
	// JSON column; tool-result messages link back via tool_call_id.
	`
	CREATE TABLE sessions (
		id          TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE messages (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		role          TEXT NOT NULL,
		content       TEXT NOT NULL,
		timestamp     TEXT NOT NULL DEFAULT (datetime('now')),
		tool_calls    TEXT,
		tool_call_id  TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX idx_messages_session ON messages (session_id, id);
	`,

	// Persisted vet embeddings, grouped by collection name.
	`
	CREATE TABLE embeddings (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		collection  TEXT NOT NULL,
		content     TEXT NOT NULL,
		metadata    TEXT,
		vector      BLOB NOT NULL,
		created_at  TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX idx_embeddings_collection ON embeddings (collection);
	`,
}
