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

CREATE TABLE IF NOT EXISTS accounts (
	name               TEXT PRIMARY KEY,
	full_name          TEXT NOT NULL DEFAULT '',
	email_address      TEXT NOT NULL DEFAULT '',

	incoming_host      TEXT NOT NULL,
	incoming_port      INTEGER NOT NULL,
	incoming_user_name TEXT NOT NULL,
	incoming_password  TEXT NOT NULL DEFAULT '',
	incoming_use_ssl   INTEGER NOT NULL DEFAULT 1 CHECK(incoming_use_ssl IN (0, 1)),
	incoming_start_tls INTEGER NOT NULL DEFAULT 0 CHECK(incoming_start_tls IN (0, 1)),

	outgoing_host      TEXT NOT NULL,
	outgoing_port      INTEGER NOT NULL,
	outgoing_user_name TEXT NOT NULL,
	outgoing_password  TEXT NOT NULL DEFAULT '',
	outgoing_use_ssl   INTEGER NOT NULL DEFAULT 1 CHECK(outgoing_use_ssl IN (0, 1)),
	outgoing_start_tls INTEGER NOT NULL DEFAULT 0 CHECK(outgoing_start_tls IN (0, 1)),

	save_to_sent       INTEGER NOT NULL DEFAULT 1 CHECK(save_to_sent IN (0, 1)),
	sent_folder        TEXT NOT NULL DEFAULT '',

	created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email_address);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
