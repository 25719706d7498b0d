// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package classifier

import (
	"math"
	"testing"

	"github.com/seangeo/winnow/pkg/schema"
)

func assertEqualF(t *testing.T, want, got float64) {
	t.Helper()
	if math.Abs(want-got) > 1e-5 {
		t.Errorf("got: %.11f \nwant: %.11f", got, want)
	}
}

func TestProbability(t *testing.T) {
	// Each case: a positive cloud, a negative cloud and a random background
	// cloud, given as (token count, pool size) pairs.
	cases := []struct {
		pc, ps, nc, ns, bc, bs int
		want                   float64
	}{
		{5, 20, 5, 10, 0, 0, 0.33912483912},
		{5, 20, 5, 10, 0, 15, 0.33782435130},
		{5, 20, 5, 10, 10, 80, 0.44530060883},
		{0, 0, 5, 10, 0, 0, 0.23684210526},
		{5, 20, 0, 0, 0, 0, 0.67857142857},
		{5, 20, 5, 20, 0, 0, 0.5},
		{0, 0, 0, 0, 0, 0, 0.5},
	}

	for _, c := range cases {
		foregrounds := []ProbToken{{c.pc, c.ps}}
		backgrounds := []ProbToken{{c.nc, c.ns}, {c.bc, c.bs}}
		got := Probability(foregrounds, backgrounds, c.ps, c.ns+c.bs)
		assertEqualF(t, c.want, got)
	}
}

func TestProbabilityHookWithBias(t *testing.T) {
	i1 := schema.NewItem("1", map[int]int{1: 5, 2: 15})
	i2 := schema.NewItem("2", map[int]int{1: 5, 2: 5})

	randomBg := NewPool()
	positivePool := NewPool()
	negativePool := NewPool()
	positivePool.AddItem(i1)
	negativePool.AddItem(i2)

	nb := NaiveBayes{}
	unbiasedProb := nb.Probability(positivePool, negativePool, randomBg, 1, 1.0)
	biasedProb := nb.Probability(positivePool, negativePool, randomBg, 1, 1.1)

	assertEqualF(t, 0.33912483912, unbiasedProb)
	assertEqualF(t, 0.35978739003, biasedProb)
	if biasedProb <= unbiasedProb {
		t.Errorf("bias > 1 must raise the probability, got %f <= %f", biasedProb, unbiasedProb)
	}
}

func TestChi2DegreesOfFreedomMustBeEven(t *testing.T) {
	assertEqualF(t, -1.0, Chi2Q(10, 11))
}

func TestChi2DegreesOfFreedomMustBeGreaterThan0(t *testing.T) {
	assertEqualF(t, -1.0, Chi2Q(10, 0))
}

func TestChi2Q(t *testing.T) {
	assertEqualF(t, 1.0, Chi2Q(100, 300))
	assertEqualF(t, 0.0, Chi2Q(1000, 300))
	assertEqualF(t, 0.82913752732, Chi2Q(375, 400))
	assertEqualF(t, 0.52169717971, Chi2Q(300, 300))
}
