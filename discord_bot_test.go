package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSongLookupTerm(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"basic lookup", "!song 恩典", "恩典", true},
		{"multi-word term", "!song Amazing Grace", "Amazing Grace", true},
		{"extra whitespace", "!song   平安夜  ", "平安夜", true},
		{"no space boundary", "!songfoo", "", false},
		{"bare command", "!song", "", false},
		{"only whitespace", "!song    ", "", false},
		{"unrelated message", "hello there", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, ok := songLookupTerm(tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, term)
		})
	}
}

func TestParseChannelIDs(t *testing.T) {
	channels := parseChannelIDs(" 123, 456,,789 ,")
	assert.Len(t, channels, 3)
	for _, id := range []string{"123", "456", "789"} {
		_, ok := channels[id]
		assert.True(t, ok, "channel %s missing", id)
	}

	assert.Empty(t, parseChannelIDs(" , ,"))
}

func TestBuildSongReplyNoMatch(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	reply, err := buildSongReply("不存在的歌")
	require.NoError(t, err)
	assert.Contains(t, reply, "No performances of “不存在的歌”")
	assert.Contains(t, reply, "5 years")
}

func TestBuildSongReplyCountAndDates(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	seedStore(t, fixtureRecords())

	reply, err := buildSongReply("恩典")
	require.NoError(t, err)
	assert.Contains(t, reply, "**恩典**")
	assert.Contains(t, reply, "performed 2 time(s)")
	// Newest date first.
	assert.Contains(t, reply, "2023年06月01日, 2023年01月01日")
	assert.NotContains(t, reply, "…")
}

func TestBuildSongReplyPicksNewestMatch(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	records := append(fixtureRecords(), rec("恩典之路", "", 2023, 8, 8))
	seedStore(t, records)

	// Several songs match; the reply drills into the most recently
	// performed one.
	reply, err := buildSongReply("恩典")
	require.NoError(t, err)
	assert.Contains(t, reply, "**恩典之路**")
	assert.Contains(t, reply, "performed 1 time(s)")
}

func TestBuildSongReplyCapsDateList(t *testing.T) {
	pinNow(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	var records []PerformanceRecord
	for day := 1; day <= 7; day++ {
		records = append(records, rec("每周一歌", "每週一歌", 2023, 5, day))
	}
	seedStore(t, records)

	reply, err := buildSongReply("每周一歌")
	require.NoError(t, err)
	assert.Contains(t, reply, "performed 7 time(s)")
	assert.Contains(t, reply, "…")

	// Five dates plus the ellipsis, newest first, nothing older shown.
	for day := 3; day <= 7; day++ {
		assert.Contains(t, reply, fmt.Sprintf("2023年05月%02d日", day))
	}
	assert.NotContains(t, reply, "2023年05月02日")
	assert.NotContains(t, reply, "2023年05月01日")
}
