package store

import (
	"database/sql"
	"fmt"
)

// Migration adds a single column to an existing table. Databases created by
// earlier versions of the schema pick up new columns here instead of being
// recreated.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists all schema migrations to apply.
var pendingMigrations = []Migration{
	// Attachment capture (added after the initial scraper release)
	{"articles", "attachments_text", "TEXT"},
	// LLM evaluation columns
	{"articles", "llm_evaluation", "TEXT"},
	{"articles", "llm_reasoning", "TEXT"},
	{"articles", "llm_confidence", "REAL"},
}

// RunMigrations applies column migrations for existing databases. Missing
// tables are skipped quietly; the schema init handles those.
func RunMigrations(db *sql.DB) error {
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
	}
	return nil
}

// columnExists checks if a column exists using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks sqlite_master for the table.
func tableExists(db *sql.DB, table string) bool {
	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	return err == nil
}
