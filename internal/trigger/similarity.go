package trigger

import "strings"

// SimilarityScorer measures how alike two message texts are, in [0,1].
// The default word-overlap metric is crude; anything smarter (embeddings,
// edit distance) can be dropped in without touching the evaluator.
type SimilarityScorer interface {
	Score(a, b string) float64
}

// WordOverlapScorer scores two texts as the number of shared distinct words
// divided by the word count of the longer text.
type WordOverlapScorer struct{}

func (WordOverlapScorer) Score(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	shared := 0
	seen := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := setA[w]; ok {
			shared++
		}
	}

	longest := len(wordsA)
	if len(wordsB) > longest {
		longest = len(wordsB)
	}
	return float64(shared) / float64(longest)
}
