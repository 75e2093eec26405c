package jobstore

import "database/sql"

const baseSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	state TEXT NOT NULL,
	filename TEXT,
	file_size INTEGER,
	file_data BLOB,
	payment_address TEXT,
	payment_wif TEXT,
	required_satoshis INTEGER,
	admin_paid INTEGER NOT NULL DEFAULT 0,
	manifest_txid TEXT,
	download_link TEXT,
	message TEXT NOT NULL DEFAULT '',
	progress REAL NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	network TEXT
);

CREATE TABLE IF NOT EXISTS admin_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	fee_rate REAL NOT NULL,
	mainnet_primary_url TEXT,
	mainnet_fallback_url TEXT,
	testnet_url TEXT,
	admin_key_hash TEXT,
	updated_at TIMESTAMP NOT NULL
);
`

// additiveColumns lists columns added after the base schema. Each is
// applied only if missing, so re-running migrate against an
// already-migrated database is a no-op, per §4.7's additive migration
// policy.
var additiveColumns = []struct {
	table, column, ddl string
}{
	{"jobs", "track_title", "ALTER TABLE jobs ADD COLUMN track_title TEXT"},
	{"jobs", "artist", "ALTER TABLE jobs ADD COLUMN artist TEXT"},
	{"jobs", "cover_data", "ALTER TABLE jobs ADD COLUMN cover_data BLOB"},
	{"jobs", "cover_txid", "ALTER TABLE jobs ADD COLUMN cover_txid TEXT"},
	{"jobs", "lyrics", "ALTER TABLE jobs ADD COLUMN lyrics TEXT"},
}

// migrate applies the base schema and every additive column that is
// not already present.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(baseSchema); err != nil {
		return err
	}
	existing, err := columnSet(db, "jobs")
	if err != nil {
		return err
	}
	for _, col := range additiveColumns {
		if existing[col.column] {
			continue
		}
		if _, err := db.Exec(col.ddl); err != nil {
			return err
		}
	}
	return nil
}

func columnSet(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
