// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"io"
	"regexp"
	"sort"
	"strings"
)

// ReconstructAbstract rebuilds plain text from an OpenAlex inverted
// index, which maps each word to the positions it occupies.
func ReconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}

	type placed struct {
		pos  int
		word string
	}
	var words []placed
	for word, positions := range index {
		for _, pos := range positions {
			words = append(words, placed{pos: pos, word: word})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].pos < words[j].pos })

	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.word
	}
	return strings.Join(parts, " ")
}

var jatsTagPattern = regexp.MustCompile(`</?jats:[^>]+>|</?[a-z]+[^>]*>`)

// stripJATS removes the JATS XML markup Crossref embeds in abstracts.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	clean := jatsTagPattern.ReplaceAllString(abstract, " ")
	return strings.Join(strings.Fields(clean), " ")
}

func readAll(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return body, nil
}
