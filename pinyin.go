package main

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

var pinyinArgs = pinyin.NewArgs()

// pinyinInitials builds the sort key for a song name: the first pinyin
// letter of every Chinese character, concatenated and lowercased. ASCII
// letters and digits pass through lowercased so mixed titles still sort.
// The key is only ever used for ordering, never displayed or compared for
// equality. Total function: anything unmappable is skipped, worst case is
// an empty string.
func pinyinInitials(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r < 128 {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(unicode.ToLower(r))
			}
			continue
		}
		py := pinyin.LazyPinyin(string(r), pinyinArgs)
		if len(py) == 0 || py[0] == "" {
			continue
		}
		b.WriteByte(py[0][0])
	}
	return b.String()
}
