package engine

import "strings"

// suggestThreshold is the minimum word-set similarity for proposing a
// correction in an allowed-values violation message.
const suggestThreshold = 0.5

// suggest returns the allowed value closest to v when the similarity clears
// the threshold.
func suggest(v string, allowed []string) (string, bool) {
	best := ""
	bestScore := 0.0
	for _, a := range allowed {
		if s := wordSimilarity(v, a); s > bestScore {
			best, bestScore = a, s
		}
	}
	if bestScore >= suggestThreshold {
		return best, true
	}
	return "", false
}

// wordSimilarity computes Jaccard similarity on lowercased word sets.
func wordSimilarity(a, b string) float64 {
	wordsA := wordSet(strings.ToLower(a))
	wordsB := wordSet(strings.ToLower(b))

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}

	union := len(wordsA)
	for w := range wordsB {
		if !wordsA[w] {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
