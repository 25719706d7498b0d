// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package classifier

import "math"

// Robinson's s and x parameters for the unknown word adjustment.
const (
	unknownWordStrength = 0.45
	unknownWordProb     = 0.5
	sTimesX             = unknownWordStrength * unknownWordProb
)

// A ProbToken carries a token's occurrence count within one pool ("cloud")
// together with that pool's total token count.
type ProbToken struct {
	TokenCount int
	PoolSize   int
}

// Probability computes the Bayesian probability that a token indicates the
// foreground side rather than the background side.
//
// Each side may consist of several clouds. A cloud contributes its ratio
// token_count/pool_size; a side's raw probability is the mean over the clouds
// that actually contain the token. The ratio of the two sides is then
// corrected for low evidence with Robinson's s/(s+n) technique, where n
// cross-scales each side's probability by the other side's total size.
func Probability(foregrounds, backgrounds []ProbToken, foregroundSize, backgroundSize int) float64 {
	return probability(foregrounds, backgrounds, foregroundSize, backgroundSize, 1.0)
}

// probability additionally re-weights the foreground contribution by bias.
func probability(foregrounds, backgrounds []ProbToken, foregroundSize, backgroundSize int, bias float64) float64 {
	if foregroundSize <= 0 && backgroundSize <= 0 {
		return unknownWordProb
	}
	if foregroundSize < 1 {
		foregroundSize = 1
	}
	if backgroundSize < 1 {
		backgroundSize = 1
	}

	fgProb := sideProbability(foregrounds) * bias
	bgProb := sideProbability(backgrounds)

	prob := unknownWordProb
	if fgProb+bgProb > 0 {
		prob = fgProb / (fgProb + bgProb)
	}

	n := fgProb*float64(backgroundSize) + bgProb*float64(foregroundSize)
	return (sTimesX + n*prob) / (unknownWordStrength + n)
}

func sideProbability(clouds []ProbToken) float64 {
	sum, count := 0.0, 0
	for _, c := range clouds {
		if c.PoolSize > 0 && c.TokenCount > 0 {
			sum += float64(c.TokenCount) / float64(c.PoolSize)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Chi2Q is the survival function of the chi-squared distribution for even
// degrees of freedom, computed as the iterative series
//
//	e^(-x/2) * sum k=0..df/2 of (x/2)^k / k!
//
// clamped to [0,1]. Odd or non-positive degrees of freedom yield -1.
func Chi2Q(x float64, df int) float64 {
	if df <= 0 || df%2 != 0 {
		return -1.0
	}

	m := x / 2.0
	term := math.Exp(-m)
	sum := term
	for k := 1; k <= df/2; k++ {
		term *= m / float64(k)
		sum += term
	}

	return math.Min(sum, 1.0)
}
