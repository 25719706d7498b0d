// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package classifier

import (
	"math"
	"sort"

	"github.com/seangeo/winnow/pkg/schema"
)

// Classifier is the capability interface a tagger uses for its numeric work.
// Keeping it an interface leaves room for classifiers other than Naive Bayes.
type Classifier interface {
	// Probability estimates P(tag|token) from the training pools. The random
	// background pool may be empty.
	Probability(positive, negative, random *Pool, tokenID int, bias float64) float64

	// SelectClues picks the clues relevant for an item, strongest first.
	SelectClues(clues *ClueList, item *schema.Item) []*Clue

	// Classify combines the selected clues into a strength in [0,1].
	Classify(clues []*Clue, bias float64) float64
}

// NaiveBayes implements Classifier with the Robinson-Fisher method.
type NaiveBayes struct{}

func (NaiveBayes) Probability(positive, negative, random *Pool, tokenID int, bias float64) float64 {
	foregrounds := []ProbToken{
		{TokenCount: positive.TokenFrequency(tokenID), PoolSize: positive.TotalTokens()},
	}
	backgrounds := []ProbToken{
		{TokenCount: negative.TokenFrequency(tokenID), PoolSize: negative.TotalTokens()},
		{TokenCount: random.TokenFrequency(tokenID), PoolSize: random.TotalTokens()},
	}

	return probability(foregrounds, backgrounds,
		positive.TotalTokens(),
		negative.TotalTokens()+random.TotalTokens(), bias)
}

func (NaiveBayes) SelectClues(clues *ClueList, item *schema.Item) []*Clue {
	selected := make([]*Clue, 0, len(item.Tokens))
	for token := range item.Tokens {
		if c := clues.Get(token); c != nil && c.Strength >= minClueStrength {
			selected = append(selected, c)
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		if selected[i].Strength != selected[j].Strength {
			return selected[i].Strength > selected[j].Strength
		}
		return selected[i].TokenID < selected[j].TokenID
	})

	return selected
}

func (NaiveBayes) Classify(clues []*Clue, bias float64) float64 {
	n := len(clues)
	if n == 0 {
		return 0.5
	}

	sumLn, sumLnInverse := 0.0, 0.0
	for _, c := range clues {
		sumLn += math.Log(c.Probability)
		sumLnInverse += math.Log(1.0 - c.Probability)
	}

	h := Chi2Q(-2.0*sumLn, 2*n)
	s := Chi2Q(-2.0*sumLnInverse, 2*n)
	score := (1.0 + h - s) / 2.0

	score = 0.5 + (score-0.5)*bias
	return math.Max(0.0, math.Min(1.0, score))
}
