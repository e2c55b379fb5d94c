package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
)

var templateFuncs = template.FuncMap{
	"formatDate": formatChineseDate,
	"toggleOrder": func(current string) string {
		if current == orderByFrequency {
			return orderByPinyin
		}
		return orderByFrequency
	},
}

var templateCache = make(map[string]*template.Template)

func init() {

	templates := []string{
		"index.html",
		"stats.html",
	}

	navbarPath := "templates/navbar.html"

	log.Println("[I] [HTTP] Parsing all application templates...")
	for _, tmplName := range templates {
		filesToParse := []string{"templates/" + tmplName, navbarPath}

		tmpl, err := template.New(tmplName).Funcs(templateFuncs).ParseFiles(filesToParse...)
		if err != nil {
			log.Fatalf("[F] [HTTP] Could not parse template '%s': %v", tmplName, err)
		}

		templateCache[tmplName] = tmpl
	}
	log.Println("[I] [HTTP] All templates parsed and cached successfully.")
}

func renderTemplate(w http.ResponseWriter, tmplFile string, data interface{}) {
	tmpl, ok := templateCache[tmplFile]
	if !ok {
		log.Printf("[E] [HTTP] Could not find template '%s' in cache!", tmplFile)
		http.Error(w, "Could not load template", http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, data); err != nil {
		log.Printf("[E] [HTTP] Could not execute template '%s': %v", tmplFile, err)
	}
}

// ensureStore runs the reload-if-stale step shared by every handler. A
// store that never loaded successfully is a terminal condition for the
// render pass; no partial data is ever shown.
func ensureStore(w http.ResponseWriter) bool {
	if err := refreshIfStale(); err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			log.Printf("[E] [HTTP] %v", loadErr)
		} else {
			log.Printf("[E] [HTTP] Store refresh failed: %v", err)
		}
		http.Error(w, fmt.Sprintf("Performance data is unavailable: %v", err), http.StatusServiceUnavailable)
		return false
	}
	return true
}

func statsOrderParam(r *http.Request) string {
	if r.FormValue("sort") == orderByPinyin {
		return orderByPinyin
	}
	return orderByFrequency
}

// searchHandler serves the main page: search box, suggestion buttons,
// multi-match selector, per-song detail, and the sidebar leaderboard.
func searchHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !ensureStore(w) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	data := SearchPageData{
		SearchQuery:     r.FormValue("q"),
		SelectedSong:    r.FormValue("song"),
		StatsOrder:      statsOrderParam(r),
		LastRefreshTime: GetLastRefreshTime(),
	}

	var err error
	data.Stats, err = songStats(data.StatsOrder)
	if err != nil {
		log.Printf("[E] [HTTP] Stats query error: %v", err)
		http.Error(w, "Statistics query failed", http.StatusInternalServerError)
		return
	}
	data.Summary, err = storeSummary()
	if err != nil {
		log.Printf("[E] [HTTP] Summary query error: %v", err)
		http.Error(w, "Summary query failed", http.StatusInternalServerError)
		return
	}

	if data.SearchQuery != "" {
		data.Suggestions, err = autocompleteSuggestions(data.SearchQuery)
		if err != nil {
			// Suggestions are a convenience; the search itself still runs.
			log.Printf("[W] [HTTP] Autocomplete error: %v", err)
		}

		results, err := searchSongs(data.SearchQuery)
		if err != nil {
			log.Printf("[E] [HTTP] Search error: %v", err)
			data.SearchFailed = true
		} else if len(results) == 0 {
			data.NoMatch = true
		} else {
			data.MatchedNames = matchedNames(results)
			if data.SelectedSong == "" && len(data.MatchedNames) == 1 {
				data.SelectedSong = data.MatchedNames[0]
			}
		}
	}

	if data.SelectedSong != "" {
		data.Detail, err = songDetail(data.SelectedSong)
		if err != nil {
			log.Printf("[E] [HTTP] Detail error: %v", err)
			data.SearchFailed = true
		}
		data.DetailCount = len(data.Detail)
	}

	renderTemplate(w, "index.html", data)
}

// suggestHandler returns autocomplete candidates as JSON for the search
// box. Internal errors are a 500, distinct from an empty match list.
func suggestHandler(w http.ResponseWriter, r *http.Request) {
	if !ensureStore(w) {
		return
	}
	partial := r.FormValue("q")
	if partial == "" {
		http.Error(w, "Missing query parameter 'q'", http.StatusBadRequest)
		return
	}

	suggestions, err := autocompleteSuggestions(partial)
	if err != nil {
		log.Printf("[E] [HTTP] Autocomplete error: %v", err)
		http.Error(w, "Autocomplete failed", http.StatusInternalServerError)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(suggestions); err != nil {
		log.Printf("[E] [HTTP] Could not encode suggestions: %v", err)
	}
}

// statsHandler serves the fullscreen leaderboard. View mode is an explicit
// query parameter; the sidebar variant lives on the main page.
func statsHandler(w http.ResponseWriter, r *http.Request) {
	if !ensureStore(w) {
		return
	}

	order := statsOrderParam(r)
	stats, err := songStats(order)
	if err != nil {
		log.Printf("[E] [HTTP] Stats query error: %v", err)
		http.Error(w, "Statistics query failed", http.StatusInternalServerError)
		return
	}
	summary, err := storeSummary()
	if err != nil {
		log.Printf("[E] [HTTP] Summary query error: %v", err)
		http.Error(w, "Summary query failed", http.StatusInternalServerError)
		return
	}

	renderTemplate(w, "stats.html", StatsPageData{
		Stats:           stats,
		StatsOrder:      order,
		Summary:         summary,
		LastRefreshTime: GetLastRefreshTime(),
	})
}

// downloadHandler streams a song's performance history as CSV.
func downloadHandler(w http.ResponseWriter, r *http.Request) {
	if !ensureStore(w) {
		return
	}
	selected := r.FormValue("song")
	if selected == "" {
		http.Error(w, "Missing query parameter 'song'", http.StatusBadRequest)
		return
	}

	records, err := songDetail(selected)
	if err != nil {
		log.Printf("[E] [HTTP] Export error: %v", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		http.Error(w, "No performances found for that song", http.StatusNotFound)
		return
	}

	// The plain filename parameter must stay ASCII; clients that understand
	// RFC 5987 pick up the real name from filename*.
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="performance-history.csv"; filename*=UTF-8''%s`,
			url.PathEscape(exportFilename(selected))))

	if err := writePerformanceCSV(w, records); err != nil {
		log.Printf("[E] [HTTP] Could not write CSV for '%s': %v", selected, err)
	}
}
