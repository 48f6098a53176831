package publish

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"

	"hangar/internal/manifest"
)

// buildAnalyticalStore loads every typed table into a fresh DuckDB database,
// builds the join-key indexes and the owners_summary table, and verifies each
// loaded row count against the normalize manifest fragment. Column types come
// straight from the Parquet schemas; nothing is re-inferred here.
func (p *Publisher) buildAnalyticalStore(ctx context.Context, genDir string, frag *manifest.Manifest) ([]manifest.TableRecord, *sql.DB, error) {
	dbPath := filepath.Join(genDir, duckdbFile)
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping DuckDB: %w", err)
	}

	records := make([]manifest.TableRecord, 0, len(p.registry.TargetTables())+1)
	for _, desc := range p.registry.TargetTables() {
		query := fmt.Sprintf(
			"CREATE TABLE %s AS SELECT * FROM read_parquet(?)", desc.Name)
		if _, err := db.ExecContext(ctx, query, p.tablePath(desc.Name)); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to load table %s: %w", desc.Name, err)
		}

		var count int64
		row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", desc.Name))
		if err := row.Scan(&count); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to count table %s: %w", desc.Name, err)
		}

		rec, _ := frag.Table(desc.Name)
		if count != rec.RowCount {
			db.Close()
			return nil, nil, &manifest.IntegrityError{
				Table:  desc.Name,
				Detail: fmt.Sprintf("loaded %d rows, manifest declares %d", count, rec.RowCount),
			}
		}
		records = append(records, manifest.TableRecord{
			Name:       desc.Name,
			RowCount:   count,
			SchemaHash: desc.Hash(),
		})
		log.Printf("Loaded %s: %d rows", desc.Name, count)
	}

	summaryCount, err := buildOwnersSummary(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	records = append(records, manifest.TableRecord{Name: "owners_summary", RowCount: summaryCount})
	log.Printf("Created owners_summary: %d rows", summaryCount)

	if err := buildIndexes(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Printf("Created indexes")

	return records, db, nil
}

// buildOwnersSummary materializes the common owner lookup pattern: one row
// per registration with the owner roll-up and registration lifecycle fields.
// Missing reference keys are tolerated throughout; LEFT joins never fail.
func buildOwnersSummary(ctx context.Context, db *sql.DB) (int64, error) {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE owners_summary AS
        SELECT
            o.n_number,
            COUNT(*) AS owner_count,
            STRING_AGG(o.owner_name_std, '; ' ORDER BY o.owner_id) AS owner_names_concat,
            BOOL_OR(o.owner_type IN ('2', '4', '5')) AS any_trust_flag,
            MAX(r.status_code) AS status_code,
            MAX(r.expiration_date) AS expiration_date
        FROM owners o
        LEFT JOIN registrations r USING (n_number)
        GROUP BY o.n_number
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to create owners_summary: %w", err)
	}

	var count int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM owners_summary").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count owners_summary: %w", err)
	}
	return count, nil
}

// buildIndexes creates an index on every declared join key. Index names are
// stable across runs so the query layer never has to change.
func buildIndexes(ctx context.Context, db *sql.DB) error {
	indexes := []string{
		"CREATE INDEX idx_aircraft_n_number ON aircraft(n_number)",
		"CREATE INDEX idx_registrations_n_number ON registrations(n_number)",
		"CREATE INDEX idx_owners_n_number ON owners(n_number)",
		"CREATE INDEX idx_owners_summary_n_number ON owners_summary(n_number)",
		"CREATE INDEX idx_aircraft_mfr_mdl_code ON aircraft(mfr_mdl_code)",
		"CREATE INDEX idx_aircraft_engine_code ON aircraft(engine_code)",
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
