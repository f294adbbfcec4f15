// Package metrics derives size features from customer text and transcripts
// for telemetry. Nothing here retains the text itself.
package metrics

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Features are local size features of one piece of text.
type Features struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Han   int `json:"han"` // CJK ideographs; customer text is mostly Chinese
	Lines int `json:"lines"`
}

func CountFeatures(s string) Features {
	f := Features{Bytes: len(s), Runes: utf8.RuneCountInString(s)}
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			f.Han++
		}
	}
	if s != "" {
		f.Lines = 1 + strings.Count(s, "\n")
	}
	return f
}
