package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHashtags(t *testing.T) {
	cases := []struct {
		name    string
		caption string
		want    []string
	}{
		{"empty", "", []string{}},
		{"mixed scripts", "check #one and #two #두번째", []string{"one", "two", "두번째"}},
		{"bare marker", "trailing # alone", []string{}},
		{"marker at end", "done #", []string{}},
		{"duplicates kept", "#go #go #rust", []string{"go", "go", "rust"}},
		{"adjacent markers", "#a#b", []string{"a", "b"}},
		{"double marker", "##x", []string{"x"}},
		{"punctuation ends tag", "#fun! and #more,", []string{"fun", "more"}},
		{"digits and underscore", "#day_1 #2024", []string{"day_1", "2024"}},
		{"no markers", "just a caption", []string{}},
		{"newline separated", "#first\n#second", []string{"first", "second"}},
		{"accented letters", "#café #naïve", []string{"café", "naïve"}},
		{"spacing combining marks", "#हिंदी वीडियो", []string{"हिंदी"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractHashtags(tc.caption))
		})
	}
}

func TestExtractHashtagsIdempotent(t *testing.T) {
	captions := []string{"", "#a b #c", "여행 #서울 #여행 #서울", "###", "#x#y#z tail"}
	for _, c := range captions {
		assert.Equal(t, ExtractHashtags(c), ExtractHashtags(c), "caption %q", c)
	}
}
