package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseStoredDate reads a performed_on value back out of the store.
func parseStoredDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored date %q: %w", s, err)
	}
	return t, nil
}

// formatChineseDate renders a performance date the way the page shows it,
// e.g. 2023年06月01日.
func formatChineseDate(t time.Time) string {
	return fmt.Sprintf("%04d年%02d月%02d日", t.Year(), int(t.Month()), t.Day())
}

// GetLastRefreshTime reports when the store was last rebuilt, for the page
// footers.
func GetLastRefreshTime() string {
	var lastTimestamp sql.NullString
	err := db.QueryRow(`SELECT MAX(timestamp) FROM refresh_history`).Scan(&lastTimestamp)
	if err != nil {
		log.Printf("[W] Could not get last refresh time: %v", err)
	}
	if lastTimestamp.Valid {
		parsedTime, err := time.Parse(time.RFC3339, lastTimestamp.String)
		if err == nil {
			return parsedTime.Format("2006-01-02 15:04:05")
		}
	}
	return "Never"
}
