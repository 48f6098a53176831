package publish

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// buildSearchIndex creates the SQLite full-text store over the standardized
// owner fields. Owner rows are pulled from the freshly loaded DuckDB tables
// so the two stores can never disagree. Returns the number of indexed rows.
func (p *Publisher) buildSearchIndex(ctx context.Context, genDir string, duck *sql.DB) (int64, error) {
	sqlitePath := filepath.Join(genDir, sqliteFile)
	db, err := sql.Open("sqlite3", sqlitePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open SQLite: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		return 0, fmt.Errorf("failed to set SQLite pragmas: %w", err)
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE owners (
            owner_id INTEGER PRIMARY KEY,
            n_number TEXT NOT NULL,
            owner_name_std TEXT,
            address_all_std TEXT,
            city_std TEXT,
            state_std TEXT,
            zip5 TEXT
        )
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to create owners table: %w", err)
	}

	inserted, err := copyOwners(ctx, duck, db)
	if err != nil {
		return 0, err
	}
	log.Printf("Inserted %d owner records into search store", inserted)

	// FTS5 delegates row storage to the owners table; only the inverted
	// index itself lives in the virtual table.
	_, err = db.ExecContext(ctx, `
        CREATE VIRTUAL TABLE owners_fts USING fts5(
            owner_name_std,
            address_all_std,
            city_std,
            state_std,
            content=owners,
            content_rowid=owner_id
        )
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to create owners_fts: %w", err)
	}

	_, err = db.ExecContext(ctx, `
        INSERT INTO owners_fts(rowid, owner_name_std, address_all_std, city_std, state_std)
        SELECT owner_id, owner_name_std, address_all_std, city_std, state_std
        FROM owners
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to populate owners_fts: %w", err)
	}

	for _, stmt := range []string{
		"CREATE INDEX idx_owners_n_number ON owners(n_number)",
		"CREATE INDEX idx_owners_state ON owners(state_std)",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to create search filter index: %w", err)
		}
	}

	log.Printf("Created FTS5 index")
	return inserted, nil
}

// copyOwners streams the search-relevant owner columns from DuckDB into the
// SQLite store inside one transaction. Duplicate owner_ids (the same party
// owning several aircraft) keep their first row; the full detail remains in
// the analytical store.
func copyOwners(ctx context.Context, duck, db *sql.DB) (int64, error) {
	rows, err := duck.QueryContext(ctx, `
        SELECT owner_id, n_number, owner_name_std, address_all_std, city_std, state_std, zip5
        FROM owners
        ORDER BY owner_id, n_number
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to read owners from DuckDB: %w", err)
	}
	defer rows.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO owners (owner_id, n_number, owner_name_std, address_all_std, city_std, state_std, zip5)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (owner_id) DO NOTHING
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for rows.Next() {
		var (
			ownerID                          int64
			nNumber                          string
			name, addr, city, state, zip5    sql.NullString
		)
		if err := rows.Scan(&ownerID, &nNumber, &name, &addr, &city, &state, &zip5); err != nil {
			return 0, fmt.Errorf("failed to scan owner row: %w", err)
		}
		res, err := stmt.ExecContext(ctx, ownerID, nNumber, name, addr, city, state, zip5)
		if err != nil {
			return 0, fmt.Errorf("failed to insert owner %d: %w", ownerID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += n
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate owners: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit owners: %w", err)
	}
	return inserted, nil
}
