package main

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

const (
	createPerformancesTableSQL = `
	CREATE TABLE IF NOT EXISTS performances (
		"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"simplified_name" TEXT,
		"traditional_name" TEXT,
		"performed_on" TEXT NOT NULL,
		"sort_key" TEXT NOT NULL DEFAULT ''
	);`

	createRefreshHistoryTableSQL = `
	CREATE TABLE IF NOT EXISTS refresh_history (
		"timestamp" TEXT NOT NULL PRIMARY KEY,
		"record_count" INTEGER NOT NULL
	);`
)

// initDB opens the database and creates the schema. The store lives in a
// ":memory:" database: every refresh replaces the whole table, nothing
// survives a restart.
func initDB(filepath string) (*sql.DB, error) {
	var err error
	db, err = sql.Open("sqlite3", filepath)
	if err != nil {
		return nil, err
	}

	// A :memory: database exists per connection; pin the pool to a single
	// connection so every query sees the same store.
	db.SetMaxOpenConns(1)

	queries := map[string]string{
		"performances":    createPerformancesTableSQL,
		"refresh_history": createRefreshHistoryTableSQL,
	}

	for name, query := range queries {
		if _, err = db.Exec(query); err != nil {
			return nil, fmt.Errorf("could not create table '%s': %w", name, err)
		}
	}

	indexQueries := []string{
		`CREATE INDEX IF NOT EXISTS idx_perf_simplified ON performances (simplified_name);`,
		`CREATE INDEX IF NOT EXISTS idx_perf_traditional ON performances (traditional_name);`,
		`CREATE INDEX IF NOT EXISTS idx_perf_date_desc ON performances (performed_on DESC);`,
	}

	for i, query := range indexQueries {
		if _, err = db.Exec(query); err != nil {
			return nil, fmt.Errorf("could not create index #%d: %w", i, err)
		}
	}

	return db, nil
}

// replaceAllRecords swaps the performances table wholesale inside one
// transaction. Readers either see the old table or the new one, never a
// half-loaded mix.
func replaceAllRecords(records []PerformanceRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin refresh transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM performances`); err != nil {
		return fmt.Errorf("could not clear performances table: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO performances (simplified_name, traditional_name, performed_on, sort_key)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("could not prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(
			rec.Simplified,
			rec.Traditional,
			rec.PerformedOn.Format("2006-01-02"),
			pinyinInitials(rec.CanonicalName()),
		)
		if err != nil {
			return fmt.Errorf("could not insert performance row: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO refresh_history (timestamp, record_count) VALUES (?, ?)`,
		nowFunc().Format("2006-01-02T15:04:05Z07:00"), len(records),
	); err != nil {
		return fmt.Errorf("could not record refresh timestamp: %w", err)
	}

	return tx.Commit()
}

// storeSummary returns the sidebar totals: retained records and distinct
// canonical song names.
func storeSummary() (StoreSummary, error) {
	var s StoreSummary
	err := db.QueryRow(`SELECT COUNT(*) FROM performances`).Scan(&s.TotalRecords)
	if err != nil {
		return s, fmt.Errorf("could not count performances: %w", err)
	}
	err = db.QueryRow(`
		SELECT COUNT(DISTINCT COALESCE(simplified_name, traditional_name))
		FROM performances`).Scan(&s.TotalSongs)
	if err != nil {
		return s, fmt.Errorf("could not count songs: %w", err)
	}
	return s, nil
}
