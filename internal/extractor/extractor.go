// Package extractor finds elements carrying href/src references in raw markup.
//
// Matching is pattern based: markup stored in a content store is
// often fragmentary or malformed, and the segments returned here must splice
// back into the original text byte-for-byte.
package extractor

import (
	"iter"
	"regexp"

	"github.com/user/linkfinder-service/internal/entity"
)

// One alternative per quote character so the closing quote always matches the
// opening one. Groups per alternative: opening, tag, attribute, value, closing.
var referencePattern = regexp.MustCompile(
	`(?i)` +
		`(<([^<>\s]+)\s(?:[^<>]*?\s)?(href|src)=")([^"]*)("[^<>]*>)` +
		`|` +
		`(<([^<>\s]+)\s(?:[^<>]*?\s)?(href|src)=')([^']*)('[^<>]*>)`,
)

const groupsPerQuote = 5

// All returns a lazy sequence over every reference occurrence in text.
// Ranging over it again restarts the scan from the beginning.
func All(text string) iter.Seq[entity.Occurrence] {
	return func(yield func(entity.Occurrence) bool) {
		pos, index := 0, 0
		for pos < len(text) {
			loc := referencePattern.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				return
			}
			occ, ok := fromMatch(text[pos:], loc)
			if ok {
				occ.Index = index
				occ.Offset = pos + loc[0]
				index++
				if !yield(occ) {
					return
				}
			}
			pos += loc[1]
		}
	}
}

// Extract collects every occurrence in text.
func Extract(text string) []entity.Occurrence {
	var out []entity.Occurrence
	for occ := range All(text) {
		out = append(out, occ)
	}
	return out
}

// Count returns the number of occurrences in text without keeping them.
func Count(text string) int {
	n := 0
	for range All(text) {
		n++
	}
	return n
}

// ParseElement decomposes a single element. It fails unless element is
// exactly one match, so a rebuilt element never drops surrounding text.
func ParseElement(element string) (entity.Occurrence, bool) {
	loc := referencePattern.FindStringSubmatchIndex(element)
	if loc == nil || loc[0] != 0 || loc[1] != len(element) {
		return entity.Occurrence{}, false
	}
	return fromMatch(element, loc)
}

func fromMatch(s string, loc []int) (entity.Occurrence, bool) {
	// loc[0:2] is the whole match; alternative k starts at group 1+k*groupsPerQuote.
	for alt := 0; alt < 2; alt++ {
		first := 1 + alt*groupsPerQuote
		if loc[2*first] < 0 {
			continue
		}
		group := func(i int) string {
			start, end := loc[2*(first+i)], loc[2*(first+i)+1]
			if start < 0 {
				return ""
			}
			return s[start:end]
		}
		occ := entity.Occurrence{
			Opening:   group(0),
			Tag:       group(1),
			Attribute: group(2),
			Value:     group(3),
			Closing:   group(4),
		}
		if occ.Opening == "" || occ.Closing == "" {
			return entity.Occurrence{}, false
		}
		return occ, true
	}
	return entity.Occurrence{}, false
}
