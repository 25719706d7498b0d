// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package classifier

import (
	"testing"

	"github.com/seangeo/winnow/pkg/schema"
)

func testClueList() *ClueList {
	cl := NewClueList()
	cl.Add(1, 0.75)
	cl.Add(2, 0.51)
	cl.Add(3, 0.1)
	cl.Add(4, 0.95)
	return cl
}

func TestClueSelectionFiltersOutWeakClues(t *testing.T) {
	nb := NaiveBayes{}
	item := schema.NewItem("1", map[int]int{1: 1, 2: 1})

	clues := nb.SelectClues(testClueList(), item)
	if len(clues) != 1 {
		t.Fatalf("expected 1 clue, got %d", len(clues))
	}
	if clues[0].TokenID != 1 {
		t.Errorf("expected token 1, got %d", clues[0].TokenID)
	}
}

func TestClueSelectionSortedByStrength(t *testing.T) {
	nb := NaiveBayes{}
	item := schema.NewItem("1", map[int]int{1: 1, 2: 1, 4: 1})

	clues := nb.SelectClues(testClueList(), item)
	if len(clues) != 2 {
		t.Fatalf("expected 2 clues, got %d", len(clues))
	}
	if clues[0].TokenID != 4 || clues[1].TokenID != 1 {
		t.Errorf("expected tokens [4 1], got [%d %d]", clues[0].TokenID, clues[1].TokenID)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		tokens []int
		want   float64
	}{
		{[]int{10}, 0.5},
		{[]int{2}, 0.5},
		{[]int{4}, 0.89947100800},
		{[]int{4, 2}, 0.89947100800},
		{[]int{4, 1}, 0.90383289433},
		{[]int{4, 3}, 0.59043855740},
		{[]int{3, 4}, 0.59043855740},
		{[]int{3}, 0.16771702260},
		{[]int{1, 2, 3, 4}, 0.69125149517},
	}

	nb := NaiveBayes{}
	cl := testClueList()

	for _, c := range cases {
		tokens := make(map[int]int, len(c.tokens))
		for _, token := range c.tokens {
			tokens[token] = 1
		}
		item := schema.NewItem("1", tokens)
		got := nb.Classify(nb.SelectClues(cl, item), 1.0)
		assertEqualF(t, c.want, got)
	}
}

func TestClassifyWithBias(t *testing.T) {
	nb := NaiveBayes{}
	cl := testClueList()
	item := schema.NewItem("1", map[int]int{4: 1})

	biased := nb.Classify(nb.SelectClues(cl, item), 1.1)
	unbiased := nb.Classify(nb.SelectClues(cl, item), 1.0)
	if biased <= unbiased {
		t.Errorf("bias > 1 must raise the strength, got %f <= %f", biased, unbiased)
	}
	if biased > 1.0 {
		t.Errorf("strength must be clamped to [0,1], got %f", biased)
	}
	assertEqualF(t, 0.5+(unbiased-0.5)*1.1, biased)
}

func TestClueStrength(t *testing.T) {
	c := NewClue(1, 0.75)
	assertEqualF(t, 0.5, c.Strength)
	c = NewClue(1, 0.1)
	assertEqualF(t, 0.8, c.Strength)
	c = NewClue(1, 0.5)
	assertEqualF(t, 0.0, c.Strength)
}
