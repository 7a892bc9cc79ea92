package composer

import (
	"unicode"
	"unicode/utf8"
)

const hashtagMarker = '#'

// ExtractHashtags returns the tag of every maximal run of word characters that
// directly follows a '#', left to right, without the marker. Duplicates are
// kept. Word characters are Unicode letters, marks, digits and '_', so tags in
// any script (#두번째) are recognised.
func ExtractHashtags(caption string) []string {
	tags := []string{}
	for i := 0; i < len(caption); {
		r, size := utf8.DecodeRuneInString(caption[i:])
		i += size
		if r != hashtagMarker {
			continue
		}
		start := i
		for i < len(caption) {
			r, size := utf8.DecodeRuneInString(caption[i:])
			if !isWordRune(r) {
				break
			}
			i += size
		}
		if i > start {
			tags = append(tags, caption[start:i])
		}
	}
	return tags
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
