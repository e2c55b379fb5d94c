package main

import (
	"fmt"
	"strings"
)

const suggestionLimit = 10

// escapeLike makes a user term safe inside a LIKE pattern. Searches are
// plain substring matches, never patterns, so the wildcards are literals.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

func scanRecords(query string, args ...interface{}) ([]PerformanceRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PerformanceRecord
	for rows.Next() {
		var rec PerformanceRecord
		var performedOn string
		if err := rows.Scan(&rec.ID, &rec.Simplified, &rec.Traditional, &performedOn); err != nil {
			return nil, err
		}
		rec.PerformedOn, err = parseStoredDate(performedOn)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// searchSongs finds every performance whose simplified or traditional name
// contains the term, case-insensitively. The OR condition yields each row
// once, so a record matching on both columns is never doubled. Callers must
// gate on a non-empty term.
func searchSongs(term string) ([]PerformanceRecord, error) {
	pattern := "%" + escapeLike(term) + "%"
	records, err := scanRecords(`
		SELECT id, simplified_name, traditional_name, performed_on
		FROM performances
		WHERE simplified_name LIKE ? ESCAPE '\'
		   OR traditional_name LIKE ? ESCAPE '\'
		ORDER BY performed_on DESC, id`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("song search for %q failed: %w", term, err)
	}
	return records, nil
}

// matchedNames collects the distinct names (both columns) present in a
// result set, in first-seen order. Used to drive the "multiple matches"
// selector on the search page.
func matchedNames(records []PerformanceRecord) []string {
	seen := map[string]struct{}{}
	var names []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, rec := range records {
		add(rec.Simplified.String)
		add(rec.Traditional.String)
	}
	return names
}

// autocompleteSuggestions returns up to suggestionLimit distinct names from
// either column that contain the partial term. Truncation is deterministic:
// candidates are sorted ascending before the cut.
func autocompleteSuggestions(partialTerm string) ([]string, error) {
	pattern := "%" + escapeLike(partialTerm) + "%"
	rows, err := db.Query(`
		SELECT DISTINCT name FROM (
			SELECT simplified_name AS name FROM performances
			UNION
			SELECT traditional_name AS name FROM performances
		)
		WHERE name IS NOT NULL
		  AND name != ''
		  AND name LIKE ? ESCAPE '\'
		ORDER BY name ASC
		LIMIT ?`,
		pattern, suggestionLimit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete for %q failed: %w", partialTerm, err)
	}
	defer rows.Close()

	var suggestions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("autocomplete scan failed: %w", err)
		}
		suggestions = append(suggestions, name)
	}
	return suggestions, rows.Err()
}

// songStats builds the leaderboard. Records group by their canonical name
// (simplified when present, traditional otherwise) so traditional-only
// songs still show up. orderBy is one of orderByFrequency (count desc,
// name asc on ties) or orderByPinyin (transliteration key asc).
func songStats(orderBy string) ([]SongStat, error) {
	var orderClause string
	switch orderBy {
	case orderByPinyin:
		orderClause = "ORDER BY sort_key ASC, name ASC"
	case orderByFrequency:
		orderClause = "ORDER BY play_count DESC, name ASC"
	default:
		return nil, fmt.Errorf("unknown stats order %q", orderBy)
	}

	query := fmt.Sprintf(`
		SELECT
			COALESCE(simplified_name, traditional_name) AS name,
			COUNT(*) AS play_count,
			MIN(sort_key) AS sort_key
		FROM performances
		GROUP BY name
		%s`, orderClause)

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("song stats query failed: %w", err)
	}
	defer rows.Close()

	var stats []SongStat
	for rows.Next() {
		var s SongStat
		if err := rows.Scan(&s.Name, &s.Count, &s.SortKey); err != nil {
			return nil, fmt.Errorf("song stats scan failed: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// songDetail returns every performance of the selected song (exact match
// on either column), newest first.
func songDetail(selectedName string) ([]PerformanceRecord, error) {
	records, err := scanRecords(`
		SELECT id, simplified_name, traditional_name, performed_on
		FROM performances
		WHERE simplified_name = ? OR traditional_name = ?
		ORDER BY performed_on DESC, id`,
		selectedName, selectedName)
	if err != nil {
		return nil, fmt.Errorf("detail lookup for %q failed: %w", selectedName, err)
	}
	return records, nil
}
