// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score computes the five-factor editorial suitability profile
// for a candidate from its metadata snapshot. Each factor is computed
// independently over [0,5]; a missing metadata field contributes 0 to its
// factor, never a sentinel that looks like a real score. Scoring is
// deterministic and pure: the same candidate and snapshot always produce
// the same profile.
package score

import (
	"regexp"
	"strings"

	"github.com/thebeakers/triage-engine/pkg/types"
)

// topVenues and strongVenues are lower-cased substrings matched against
// the venue name for the significance factor.
var topVenues = []string{
	"nature",
	"science",
	"cell",
	"physical review letters",
	"journal of the american chemical society",
	"proceedings of the national academy",
	"the lancet",
	"new england journal of medicine",
}

var strongVenues = []string{
	"nature communications",
	"science advances",
	"elife",
	"nano letters",
	"physical review",
	"angewandte chemie",
	"plos biology",
	"journal of machine learning research",
}

// mechanismCues signal a result that changes what becomes feasible or
// believed, nudging significance upward.
var mechanismCues = []string{
	"first demonstration",
	"direct observation",
	"new class of",
	"previously thought impossible",
	"overturns",
	"long-standing",
	"enables",
}

// methodsCues are methods vocabulary counted toward the evidence factor.
var methodsCues = []string{
	"randomized",
	"controlled",
	"double-blind",
	"replicat",
	"benchmark",
	"baseline",
	"validated",
	"cohort",
	"in vivo",
	"simulation",
	"ablation",
}

// quantPattern matches quantitative reporting: percentages, uncertainty,
// p-values, sample sizes.
var quantPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*%|±|\bp\s*[<=]\s*0?\.\d+|\bn\s*=\s*\d+`)

// independenceCues signal multiple independent validations.
var independenceCues = []string{
	"independent",
	"across multiple",
	"reproduced",
	"meta-analysis",
}

// teachingCues signal a teachable mechanism reachable with undergraduate
// prerequisites.
var teachingCues = []string{
	"mechanism",
	"principle",
	"pathway",
	"model of",
	"explains",
	"how ",
	"because",
	"which means",
}

// coreDisciplines are subjects with a standard undergraduate curriculum
// to hook into.
var coreDisciplines = map[string]bool{
	"biology":     true,
	"chemistry":   true,
	"physics":     true,
	"mathematics": true,
	"engineering": true,
	"ai":          true,
}

// mediaCues signal cheap diagram/audio/quiz production: a clean figure or
// story object.
var mediaCues = []string{
	"figure",
	"image",
	"video",
	"dataset",
	"visualiz",
	"microscop",
	"structure of",
	"map of",
	"diagram",
	"animation",
}

// hypeCues are superlatives suggesting the headline overstates the
// evidence. Hits in the headline weigh double.
var hypeCues = []string{
	"breakthrough",
	"revolutionary",
	"revolutionize",
	"first ever",
	"first-ever",
	"world's first",
	"unprecedented",
	"game-chang",
	"miracle",
	"holy grail",
	"paradigm shift",
	"stunning",
	"could change everything",
}

// Score computes the suitability profile for a candidate from its
// metadata snapshot. Feed-supplied headline and teaser stand in when the
// snapshot omits title or abstract.
func Score(c types.Candidate, meta types.CandidateMeta) types.ScoreProfile {
	title := firstNonEmpty(meta.Title, c.Headline)
	abstract := firstNonEmpty(meta.Abstract, c.Teaser)
	discipline := firstNonEmpty(meta.Discipline, c.Category)

	p := types.ScoreProfile{
		Significance:    significance(meta.Venue, abstract),
		Evidence:        evidence(abstract),
		Teachability:    teachability(abstract, discipline),
		MediaAffordance: mediaAffordance(title, abstract),
		HypePenalty:     hypePenalty(title, abstract),
	}
	return p.Clamp()
}

// significance scores venue reputation tier plus mechanism cues in the
// abstract.
func significance(venue, abstract string) int {
	v := strings.ToLower(venue)
	base := 0
	switch {
	case v == "":
		base = 0
	case containsAny(v, topVenues) > 0:
		base = 4
	case containsAny(v, strongVenues) > 0:
		base = 3
	default:
		base = 2
	}
	if containsAny(strings.ToLower(abstract), mechanismCues) > 0 {
		base++
	}
	return base
}

// evidence scores abstract length and structure: methods vocabulary,
// quantitative reporting, and independence signals.
func evidence(abstract string) int {
	a := strings.ToLower(abstract)
	if a == "" {
		return 0
	}
	score := 1
	if len(a) >= 400 {
		score++
	}
	if containsAny(a, methodsCues) > 0 {
		score++
	}
	if quantPattern.MatchString(a) {
		score++
	}
	if containsAny(a, independenceCues) > 0 {
		score++
	}
	return score
}

// teachability scores the presence of a teachable mechanism and a
// curriculum hook.
func teachability(abstract, discipline string) int {
	a := strings.ToLower(abstract)
	if a == "" {
		return 0
	}
	score := 1
	hits := containsAny(a, teachingCues)
	if hits > 0 {
		score += 2
	}
	if hits > 1 {
		score++
	}
	if coreDisciplines[strings.ToLower(discipline)] {
		score++
	}
	return score
}

// mediaAffordance scores figure and data density cues.
func mediaAffordance(title, abstract string) int {
	text := strings.ToLower(title + " " + abstract)
	hits := containsAny(text, mediaCues)
	switch {
	case hits == 0:
		return 0
	case hits == 1:
		return 2
	case hits == 2:
		return 3
	case hits == 3:
		return 4
	default:
		return 5
	}
}

// hypePenalty scores superlative-language density; headline hits count
// double because the headline is what readers see.
func hypePenalty(title, abstract string) int {
	return 2*containsAny(strings.ToLower(title), hypeCues) +
		containsAny(strings.ToLower(abstract), hypeCues)
}

// containsAny counts how many distinct cues occur in text.
func containsAny(text string, cues []string) int {
	hits := 0
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			hits++
		}
	}
	return hits
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
