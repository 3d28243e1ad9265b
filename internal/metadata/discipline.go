// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import "strings"

// disciplineKeywords maps each tracked discipline to title/abstract cues.
var disciplineKeywords = map[string][]string{
	"chemistry": {
		"chem", "catal", "polymer", "electrolyte", "battery", "solar cell",
		"photovolta", "synthesis", "reaction", "spectroscopy", "nmr",
		"electrochem", "materials chemistry",
	},
	"physics": {
		"quantum", "particle", "condensed", "superconduct", "graphene",
		"fusion", "plasma", "astroph", "cosmolog", "optics", "photon",
		"relativity",
	},
	"biology": {
		"genome", "protein", "cell", "crispr", "immun", "microbi",
		"evolution", "neuro", "cancer", "metabol", "rna", "virus", "pathogen",
	},
	"engineering": {
		"robot", "control", "mechanical", "electrical", "sensor", "chip",
		"semiconductor", "signal", "power", "thermal", "manufactur", "civil",
		"aerospace",
	},
	"mathematics": {
		"theorem", "proof", "algebra", "geometry", "topology", "number theory",
		"optimization", "differential", "probability", "statistics",
	},
}

// openAlexConceptMap translates top-level OpenAlex concept names to the
// discipline vocabulary the routing rules use.
var openAlexConceptMap = map[string]string{
	"chemistry":         "chemistry",
	"physics":           "physics",
	"biology":           "biology",
	"medicine":          "biology",
	"engineering":       "engineering",
	"materials science": "engineering",
	"computer science":  "engineering",
	"mathematics":       "mathematics",
}

// InferDiscipline picks the discipline whose cues appear most often in
// the title and abstract. The fallback applies when nothing matches; an
// empty fallback yields "general".
func InferDiscipline(title, abstract, fallback string) string {
	text := strings.ToLower(title + " " + abstract)

	best, bestCount := "", 0
	for discipline, cues := range disciplineKeywords {
		count := 0
		for _, cue := range cues {
			if strings.Contains(text, cue) {
				count++
			}
		}
		if count > bestCount || (count == bestCount && count > 0 && discipline < best) {
			best, bestCount = discipline, count
		}
	}
	if bestCount > 0 {
		return best
	}
	if fallback != "" {
		return fallback
	}
	return "general"
}

// disciplineFromConcepts prefers OpenAlex's own top-level concept tags
// and falls back to keyword inference.
func disciplineFromConcepts(concepts []openAlexTopic, title, abstract string) string {
	bestScore := 0.0
	best := ""
	for _, c := range concepts {
		if c.Level != 0 {
			continue
		}
		mapped, ok := openAlexConceptMap[strings.ToLower(c.DisplayName)]
		if !ok {
			continue
		}
		if c.Score > bestScore {
			best, bestScore = mapped, c.Score
		}
	}
	if best != "" {
		return best
	}
	return InferDiscipline(title, abstract, "")
}
