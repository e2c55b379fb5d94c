package main

import (
	"database/sql"
	"time"
)

// PerformanceRecord is one row of the source spreadsheet: a single
// performance of a song on a given service date. A song may carry a
// simplified-Chinese name, a traditional-Chinese name, or both.
type PerformanceRecord struct {
	ID          int
	Simplified  sql.NullString
	Traditional sql.NullString
	PerformedOn time.Time
}

// CanonicalName picks the grouping identity for a record: the simplified
// name when present, otherwise the traditional one. Records with neither
// name never reach the store.
func (r PerformanceRecord) CanonicalName() string {
	if r.Simplified.Valid && r.Simplified.String != "" {
		return r.Simplified.String
	}
	return r.Traditional.String
}

// SongStat is one leaderboard entry: a canonical song name and how many
// times it was performed inside the retained window.
type SongStat struct {
	Name    string
	Count   int
	SortKey string
}

// Sort orders accepted by songStats.
const (
	orderByFrequency = "count"
	orderByPinyin    = "name"
)

// StoreSummary holds the sidebar totals.
type StoreSummary struct {
	TotalRecords int
	TotalSongs   int
}

// --- Page Data Structs for HTML Templates ---

// SearchPageData holds all data needed for the main search page template.
type SearchPageData struct {
	SearchQuery     string
	Suggestions     []string
	MatchedNames    []string
	SelectedSong    string
	Detail          []PerformanceRecord
	DetailCount     int
	Stats           []SongStat
	StatsOrder      string
	Summary         StoreSummary
	LastRefreshTime string
	SearchFailed    bool
	NoMatch         bool
}

// StatsPageData holds data for the fullscreen statistics page template.
type StatsPageData struct {
	Stats           []SongStat
	StatsOrder      string
	Summary         StoreSummary
	LastRefreshTime string
}
