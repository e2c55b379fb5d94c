package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	defaultTimeout   = 15 * time.Second
	maxFetchRetries  = 3

	defaultCacheTTL = 3600 * time.Second

	// Only performances from the trailing window are retained.
	retainedYears = 5
)

// Spreadsheet columns the loader requires, matched case-insensitively
// against the header row.
const (
	colYear        = "year"
	colMonth       = "month"
	colDay         = "day"
	colSimplified  = "simplified chinese"
	colTraditional = "traditional chinese"
)

// nowFunc is swapped out in tests to pin the retention window.
var nowFunc = time.Now

// retryFetchDelay is a var so tests exercising the failure path do not
// sleep through real backoff.
var retryFetchDelay = 3 * time.Second

// LoadError is the Record Store's failure contract: the data source was
// unreachable, unreadable, or missing required columns. Query-side errors
// never wear this type.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load performance data (%s): %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ReportClient holds a shared HTTP client and user agent for fetching the
// remote report file.
type ReportClient struct {
	Client    *http.Client
	UserAgent string
}

// NewReportClient creates a client with an explicit timeout so a stalled
// source surfaces as a LoadError instead of hanging a render pass.
func NewReportClient(timeout time.Duration) *ReportClient {
	return &ReportClient{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: defaultUserAgent,
	}
}

var reportClient = NewReportClient(defaultTimeout)

// fetchFile performs a GET request with the shared client, user agent, and
// retry logic. It returns the raw response body.
func (rc *ReportClient) fetchFile(url, logPrefix string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxFetchRetries; attempt++ {
		req, reqErr := http.NewRequest("GET", url, nil)
		if reqErr != nil {
			return nil, fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("User-Agent", rc.UserAgent)

		resp, doErr := rc.Client.Do(req)
		if doErr != nil {
			lastErr = doErr
			log.Printf("[W] %s Error fetching file (attempt %d/%d): %v", logPrefix, attempt, maxFetchRetries, doErr)
			time.Sleep(retryFetchDelay)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("received non-200 status: %d", resp.StatusCode)
			log.Printf("[W] %s Non-200 status (attempt %d/%d): %d", logPrefix, attempt, maxFetchRetries, resp.StatusCode)
			resp.Body.Close()
			time.Sleep(retryFetchDelay)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			log.Printf("[W] %s Error reading body (attempt %d/%d): %v", logPrefix, attempt, maxFetchRetries, readErr)
			time.Sleep(retryFetchDelay)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("all %d attempts failed, last error: %w", maxFetchRetries, lastErr)
}

// composeDate builds a date from the Year/Month/Day cells. time.Date
// normalizes overflow (Feb 30 becomes Mar 2), so the round-trip check
// rejects anything that did not survive unchanged.
func composeDate(year, month, day int) (time.Time, bool) {
	if year <= 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// parseWorkbook turns the raw xlsx bytes into the retained record set.
// Rows with unparseable or invalid dates are skipped, not errored; rows
// older than the retention window are dropped; rows with neither name are
// useless and dropped too. A missing required column is a LoadError.
func parseWorkbook(data []byte) ([]PerformanceRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Op: "parse", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &LoadError{Op: "parse", Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &LoadError{Op: "parse", Err: err}
	}
	if len(rows) < 1 {
		return nil, &LoadError{Op: "parse", Err: errors.New("sheet has no header row")}
	}

	headIdx := map[string]int{}
	for col, name := range rows[0] {
		headIdx[strings.ToLower(strings.TrimSpace(name))] = col
	}
	required := []string{colYear, colMonth, colDay, colSimplified, colTraditional}
	for _, name := range required {
		if _, ok := headIdx[name]; !ok {
			return nil, &LoadError{Op: "schema", Err: fmt.Errorf("missing required column %q", name)}
		}
	}

	cell := func(row []string, name string) string {
		idx := headIdx[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	minYear := nowFunc().Year() - retainedYears
	var records []PerformanceRecord
	skipped := 0

	for i := 1; i < len(rows); i++ {
		row := rows[i]

		year, errY := strconv.Atoi(cell(row, colYear))
		month, errM := strconv.Atoi(cell(row, colMonth))
		day, errD := strconv.Atoi(cell(row, colDay))
		if errY != nil || errM != nil || errD != nil {
			skipped++
			continue
		}

		date, ok := composeDate(year, month, day)
		if !ok {
			skipped++
			continue
		}
		if date.Year() < minYear {
			continue
		}

		rec := PerformanceRecord{
			Simplified:  toNullString(cell(row, colSimplified)),
			Traditional: toNullString(cell(row, colTraditional)),
			PerformedOn: date,
		}
		if !rec.Simplified.Valid && !rec.Traditional.Valid {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		log.Printf("[W] [Loader] Skipped %d rows with invalid dates or empty names.", skipped)
	}

	return records, nil
}

// --- Cache state ---

var (
	storeMutex  sync.Mutex
	storeLoaded bool
	loadedAt    time.Time

	dataSourceURL string
	cacheTTL      = defaultCacheTTL
)

// loadRecords does one full fetch-and-parse pass against the source URL.
func loadRecords(url string) ([]PerformanceRecord, error) {
	body, err := reportClient.fetchFile(url, "[Loader]")
	if err != nil {
		return nil, &LoadError{Op: "fetch", Err: err}
	}
	return parseWorkbook(body)
}

// notifyRefreshFn is a var so tests can observe the notification without a
// live Discord session.
var notifyRefreshFn = notifyRefresh

// refreshStore rebuilds the performances table from the source. Callers
// hold storeMutex; the refresh notification runs in its own goroutine so a
// slow Discord send can never stall request handling behind the lock.
func refreshStore() error {
	records, err := loadRecords(dataSourceURL)
	if err != nil {
		return err
	}
	if err := replaceAllRecords(records); err != nil {
		return &LoadError{Op: "store", Err: err}
	}
	storeLoaded = true
	loadedAt = nowFunc()
	log.Printf("[I] [Loader] Store refreshed: %d performances retained.", len(records))
	go notifyRefreshFn(len(records))
	return nil
}

// refreshIfStale reloads the store once the cache interval has passed.
// Concurrent callers inside the window all observe the same cached table.
// A refresh that fails after a successful load keeps serving the
// last-known-good data and only logs; a failed first load is returned so
// the caller can halt the render pass instead of showing an empty store.
func refreshIfStale() error {
	storeMutex.Lock()
	defer storeMutex.Unlock()

	if storeLoaded && nowFunc().Sub(loadedAt) < cacheTTL {
		return nil
	}

	err := refreshStore()
	if err == nil {
		return nil
	}
	if storeLoaded {
		log.Printf("[W] [Loader] Refresh failed, keeping last good data from %s: %v",
			loadedAt.Format("2006-01-02 15:04:05"), err)
		// Push the next attempt out a full interval so a dead source is
		// not hammered on every request.
		loadedAt = nowFunc()
		return nil
	}
	return err
}
