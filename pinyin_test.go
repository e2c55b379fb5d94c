package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPinyinInitials(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simplified title", "恩典", "ed"},
		{"three characters", "平安夜", "pay"},
		{"ascii passes through lowercased", "Amazing Grace", "amazinggrace"},
		{"mixed ascii and chinese", "Hosanna和散那", "hosannahsn"},
		{"digits kept", "诗篇23", "sp23"},
		{"punctuation skipped", "你真伟大!", "nzwd"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pinyinInitials(tt.in))
		})
	}
}

func TestPinyinInitialsNeverFails(t *testing.T) {
	// Unmappable runes degrade to an empty key, they never error out.
	assert.Equal(t, "", pinyinInitials("🎵🎤"))
}
