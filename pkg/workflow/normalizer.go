package workflow

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	trailingIndexRe = regexp.MustCompile(`_[0-9]+$`)
	nonKeyCharsRe   = regexp.MustCompile(`[^A-Za-z0-9_]`)
	nonAlnumRunRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// FullCodeMarker is the reserved step name whose content is rendered outside
// the ordered step list.
const FullCodeMarker = "full_code"

// Normalize maps a raw event name onto its canonical step key. Producers may
// emit repeated occurrences of the same logical step with a numeric suffix
// (analyzing_problem_1, analyzing_problem_2); those collapse onto one key.
func Normalize(rawEventName string) string {
	key := trailingIndexRe.ReplaceAllString(rawEventName, "")
	key = nonKeyCharsRe.ReplaceAllString(key, "")
	return strings.ToLower(key)
}

// TitleOf derives the display title from a raw event name. Used only when a
// step is first created; later events never retitle it.
func TitleOf(rawEventName string) string {
	name := trailingIndexRe.ReplaceAllString(rawEventName, "")
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// IsFullCode reports whether a raw event name addresses the full-code slot.
// Matching is tolerant of spacing and casing ("Full Code", "full_code").
func IsFullCode(rawEventName string) bool {
	key := strings.ToLower(strings.TrimSpace(rawEventName))
	key = nonAlnumRunRe.ReplaceAllString(key, "_")
	key = strings.Trim(key, "_")
	return key == FullCodeMarker
}
