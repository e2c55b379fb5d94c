package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func parsePage(t *testing.T, rr *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	require.NoError(t, err)
	return doc
}

func TestSearchPageShowsDetailForSingleMatch(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, searchHandler, "/?q=恩典")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parsePage(t, rr)

	// Only one distinct name matches, so the page drills straight in.
	assert.Contains(t, doc.Find("h2").Text(), "恩典")
	assert.Equal(t, "2", doc.Find(".count").Text())

	// Date list is newest-first.
	dates := doc.Find("main table tr td").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	})
	require.Len(t, dates, 2)
	assert.Equal(t, "2023年06月01日", dates[0])
	assert.Equal(t, "2023年01月01日", dates[1])

	// Download link points at the selected song.
	href, ok := doc.Find(`a[href^="/download"]`).Attr("href")
	require.True(t, ok)
	assert.Contains(t, href, "song=")
}

func TestSearchPageShowsSuggestions(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, searchHandler, "/?q=恩")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parsePage(t, rr)
	suggestions := doc.Find("a.suggestion").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	})
	assert.Equal(t, []string{"恩典"}, suggestions)
}

func TestSearchPageNoMatchMessage(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, searchHandler, "/?q=不存在的歌")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parsePage(t, rr)
	assert.Contains(t, doc.Find(".warning").Text(), "没有被演唱")
}

func TestSearchPageSidebarLeaderboard(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, searchHandler, "/")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parsePage(t, rr)
	sidebar := doc.Find("aside").Text()
	assert.Contains(t, sidebar, "恩典")
	assert.Contains(t, sidebar, "平安夜")
	assert.Contains(t, sidebar, "榮耀歸主")
	// Five records, four distinct songs.
	assert.Contains(t, sidebar, "总演唱记录: 5")
	assert.Contains(t, sidebar, "歌曲总数: 4")
}

func TestSuggestHandlerReturnsJSON(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, suggestHandler, "/suggest?q=恩")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var suggestions []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &suggestions))
	assert.Equal(t, []string{"恩典"}, suggestions)
}

func TestSuggestHandlerRequiresQuery(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, suggestHandler, "/suggest")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSuggestHandlerEmptyMatchIsEmptyArray(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, suggestHandler, "/suggest?q=zzzz")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestSearchPageOffersSelectorForMultipleMatches(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	records := append(fixtureRecords(), rec("恩典之路", "", 2023, 8, 8))
	seedStore(t, records)

	rr := doRequest(t, searchHandler, "/?q=恩典")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parsePage(t, rr)
	assert.Contains(t, doc.Find("main").Text(), "找到多个匹配歌曲")
	assert.Equal(t, 0, doc.Find("h2").Length(), "no song should be auto-selected")

	// Picking one of the matches drills into it.
	rr = doRequest(t, searchHandler, "/?q=恩典&song=恩典之路")
	require.Equal(t, http.StatusOK, rr.Code)
	doc = parsePage(t, rr)
	assert.Contains(t, doc.Find("h2").Text(), "恩典之路")
	assert.Equal(t, "1", doc.Find(".count").Text())
}

func TestStatsPageFullscreen(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, statsHandler, "/stats?view=full&sort=name")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parsePage(t, rr)
	rows := doc.Find("main table tr").Length()
	// Header row plus one row per distinct song.
	assert.Equal(t, 5, rows)
}

func TestDownloadHandlerWritesBOMAndHeader(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, downloadHandler, "/download?song=恩典")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	disposition := rr.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, "attachment")
	// ASCII fallback for naive clients, percent-encoded real name for the rest.
	assert.Contains(t, disposition, `filename="performance-history.csv"`)
	assert.Contains(t, disposition, "filename*=UTF-8''%E6%81%A9%E5%85%B8_performance-history.csv")
	assert.NotContains(t, disposition, "恩典", "header must not carry raw UTF-8")

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(body, utf8BOM), "export must start with a UTF-8 BOM")

	lines := strings.Split(strings.TrimSpace(string(body[len(utf8BOM):])), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Simplified Chinese,Traditional Chinese,Date", lines[0])
	assert.Contains(t, lines[1], "2023-06-01")
	assert.Contains(t, lines[2], "2023-01-01")
}

func TestDownloadHandlerValidation(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	rr := doRequest(t, downloadHandler, "/download")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, downloadHandler, "/download?song=不存在的歌")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
