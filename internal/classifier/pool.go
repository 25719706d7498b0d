// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package classifier

import "github.com/seangeo/winnow/pkg/schema"

// A Pool accumulates token frequencies over a set of example items. Items are
// only ever added during training; after that the pool is read-only.
type Pool struct {
	counts      map[int]int
	totalTokens int
}

func NewPool() *Pool {
	return &Pool{counts: make(map[int]int)}
}

func (p *Pool) AddItem(item *schema.Item) {
	for token, count := range item.Tokens {
		p.counts[token] += count
		p.totalTokens += count
	}
}

func (p *Pool) TokenFrequency(token int) int {
	return p.counts[token]
}

func (p *Pool) TotalTokens() int {
	return p.totalTokens
}

func (p *Pool) NumTokens() int {
	return len(p.counts)
}

// Tokens returns the distinct token ids present in the pool.
func (p *Pool) Tokens() []int {
	tokens := make([]int, 0, len(p.counts))
	for token := range p.counts {
		tokens = append(tokens, token)
	}
	return tokens
}
