// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tagger builds classifiers for single tags from Atom training
// documents and manages them in a cache with an exclusive checkout protocol.
package tagger

import (
	"errors"
	"time"

	"github.com/seangeo/winnow/internal/classifier"
	"github.com/seangeo/winnow/pkg/schema"
)

type State int

const (
	StateLoaded State = iota
	StatePartiallyTrained
	StateTrained
	StatePrecomputed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StatePartiallyTrained:
		return "partially trained"
	case StateTrained:
		return "trained"
	case StatePrecomputed:
		return "precomputed"
	}
	return "unknown"
}

// ItemStore is how a tagger resolves the item ids named by a training
// document. RequestItems adds entries to the store and schedules them for
// feature extraction.
type ItemStore interface {
	FetchItem(id string) (*schema.Item, bool)
	RequestItems(entries []schema.Entry)
}

// A Tagger is the trained artifact that classifies items against one tag.
// It is built from a fetched training document, trained against the item
// cache and precomputed before it can classify.
type Tagger struct {
	TagID          string
	TagName        string
	UserID         int
	TrainingURL    string
	TaggingsURL    string
	Bias           float64
	Updated        time.Time
	LastClassified time.Time

	PositiveExamples []string
	NegativeExamples []string

	MissingPositiveExamples []string
	MissingNegativeExamples []string

	positivePool     *classifier.Pool
	negativePool     *classifier.Pool
	randomBackground *classifier.Pool
	clues            *classifier.ClueList

	state   State
	atom    []byte
	entries map[string][]byte
	nb      classifier.Classifier
}

// Build parses an Atom training document into a Tagger in the loaded state.
// Entries carrying a category are positive examples; entries carrying a
// negative-example link are negative examples.
func Build(doc []byte) (*Tagger, error) {
	feed, err := parseFeed(doc)
	if err != nil {
		return nil, err
	}

	t := &Tagger{
		TagID:            feed.ID,
		TagName:          feed.Title,
		UserID:           feed.userIDValue(),
		TrainingURL:      feed.linkHref(selfRel),
		TaggingsURL:      feed.linkHref(editRel),
		Bias:             feed.biasValue(),
		Updated:          feed.updatedTime(),
		LastClassified:   feed.classifiedTime(),
		randomBackground: classifier.NewPool(),
		state:            StateLoaded,
		atom:             append([]byte(nil), doc...),
		entries:          make(map[string][]byte, len(feed.Entries)),
		nb:               classifier.NaiveBayes{},
	}

	for i := range feed.Entries {
		entry := &feed.Entries[i]
		if len(entry.Categories) > 0 {
			t.PositiveExamples = append(t.PositiveExamples, entry.ID)
		}
		if entry.hasLink(negativeExampleRel) {
			t.NegativeExamples = append(t.NegativeExamples, entry.ID)
		}
		t.entries[entry.ID] = entry.source()
	}

	return t, nil
}

func (t *Tagger) State() State {
	return t.state
}

// Atom returns the training document the tagger was built from.
func (t *Tagger) Atom() []byte {
	return t.atom
}

// Train resolves the example ids against the item cache and builds the
// positive and negative pools. Ids not present in the cache are recorded in
// the missing example lists; if any exist the tagger ends up only partially
// trained.
func (t *Tagger) Train(items ItemStore) State {
	t.positivePool = classifier.NewPool()
	t.negativePool = classifier.NewPool()
	t.MissingPositiveExamples = trainPool(t.positivePool, items, t.PositiveExamples)
	t.MissingNegativeExamples = trainPool(t.negativePool, items, t.NegativeExamples)

	if len(t.MissingPositiveExamples) > 0 || len(t.MissingNegativeExamples) > 0 {
		t.state = StatePartiallyTrained
	} else {
		t.state = StateTrained
	}

	return t.state
}

func trainPool(pool *classifier.Pool, items ItemStore, examples []string) (missing []string) {
	for _, id := range examples {
		if item, ok := items.FetchItem(id); ok {
			pool.AddItem(item)
		} else {
			missing = append(missing, id)
		}
	}
	return missing
}

var errNotTrained = errors.New("tagger must be fully trained before precomputing")

// Precompute builds the clue list from the training pools. Tokens whose
// probability works out to exactly 0.5 carry no evidence and get no clue.
func (t *Tagger) Precompute() error {
	if t.state != StateTrained {
		return errNotTrained
	}

	t.clues = classifier.NewClueList()
	seen := make(map[int]bool)
	for _, token := range t.positivePool.Tokens() {
		seen[token] = true
		t.precomputeToken(token)
	}
	for _, token := range t.negativePool.Tokens() {
		if !seen[token] {
			t.precomputeToken(token)
		}
	}

	t.state = StatePrecomputed
	return nil
}

func (t *Tagger) precomputeToken(token int) {
	// Bias is applied to the combined classification, not per token.
	p := t.nb.Probability(t.positivePool, t.negativePool, t.randomBackground, token, 1.0)
	if p != 0.5 {
		t.clues.Add(token, p)
	}
}

// NumClues returns the size of the precomputed clue list.
func (t *Tagger) NumClues() int {
	if t.clues == nil {
		return 0
	}
	return t.clues.Size()
}

// Classify scores a single item against this tag.
func (t *Tagger) Classify(item *schema.Item) *schema.Tagging {
	clues := t.nb.SelectClues(t.clues, item)
	strength := t.nb.Classify(clues, t.Bias)

	return &schema.Tagging{
		TagName:  t.TagName,
		UserID:   t.UserID,
		TagID:    t.TagID,
		ItemID:   item.ID,
		Strength: strength,
	}
}

// missingEntries pairs the missing example ids with their source from the
// training document, ready for addition to the item cache.
func (t *Tagger) missingEntries() []schema.Entry {
	ids := make([]string, 0, len(t.MissingPositiveExamples)+len(t.MissingNegativeExamples))
	ids = append(ids, t.MissingPositiveExamples...)
	ids = append(ids, t.MissingNegativeExamples...)

	entries := make([]schema.Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, schema.Entry{ID: id, Atom: t.entries[id]})
	}
	return entries
}
