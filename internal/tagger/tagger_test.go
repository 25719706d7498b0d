// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package tagger

import (
	"fmt"
	"testing"
	"time"

	"github.com/seangeo/winnow/pkg/schema"
)

const completeTagDoc = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:classifier="http://peerworks.org/classifier">
  <id>http://trunk.mindloom.org:80/seangeo/tags/a-religion</id>
  <title>a-religion</title>
  <updated>2009-01-10T20:20:42Z</updated>
  <classifier:classified>2009-01-01T10:00:00Z</classifier:classified>
  <link rel="self" href="http://trunk.mindloom.org:80/seangeo/tags/a-religion/training.atom"/>
  <link rel="http://peerworks.org/classifier/edit" href="http://trunk.mindloom.org:80/seangeo/tags/a-religion/classifier_taggings.atom"/>
  <entry>
    <id>urn:peerworks.org:entry#709254</id>
    <category term="a-religion"/>
  </entry>
  <entry>
    <id>urn:peerworks.org:entry#753459</id>
    <category term="a-religion"/>
  </entry>
  <entry>
    <id>urn:peerworks.org:entry#886294</id>
    <link rel="http://peerworks.org/classifier/negative-example" href="http://trunk.mindloom.org:80/seangeo/tags/a-religion"/>
  </entry>
</feed>`

const incompleteTagDoc = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:classifier="http://peerworks.org/classifier">
  <id>http://trunk.mindloom.org:80/seangeo/tags/a-religion</id>
  <updated>2009-01-10T20:20:42Z</updated>
  <link rel="self" href="http://trunk.mindloom.org:80/seangeo/tags/a-religion/training.atom"/>
  <entry>
    <id>urn:peerworks.org:entry#709254</id>
    <category term="a-religion"/>
  </entry>
  <entry>
    <id>urn:peerworks.org:entry#1000000</id>
    <category term="a-religion"/>
  </entry>
  <entry>
    <id>urn:peerworks.org:entry#1000001</id>
    <link rel="http://peerworks.org/classifier/negative-example" href="http://trunk.mindloom.org:80/seangeo/tags/a-religion"/>
  </entry>
</feed>`

const biasedTagDoc = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:classifier="http://peerworks.org/classifier">
  <id>http://example.org/tags/biased</id>
  <updated>2009-01-10T20:20:42Z</updated>
  <classifier:bias>1.2</classifier:bias>
  <link rel="self" href="http://example.org/tags/biased/training.atom"/>
</feed>`

// mockItems is an in-memory stand-in for the item cache.
type mockItems struct {
	items     map[string]*schema.Item
	requested []string
}

func newMockItems() *mockItems {
	return &mockItems{items: map[string]*schema.Item{
		"urn:peerworks.org:entry#709254": schema.NewItem("urn:peerworks.org:entry#709254", map[int]int{1: 3, 2: 1}),
		"urn:peerworks.org:entry#753459": schema.NewItem("urn:peerworks.org:entry#753459", map[int]int{1: 1, 3: 2}),
		"urn:peerworks.org:entry#886294": schema.NewItem("urn:peerworks.org:entry#886294", map[int]int{2: 4, 4: 2}),
	}}
}

func (m *mockItems) FetchItem(id string) (*schema.Item, bool) {
	item, ok := m.items[id]
	return item, ok
}

func (m *mockItems) RequestItems(entries []schema.Entry) {
	for _, e := range entries {
		m.requested = append(m.requested, e.ID)
	}
}

func TestBuildTagger(t *testing.T) {
	tagger, err := Build([]byte(completeTagDoc))
	if err != nil {
		t.Fatal(err)
	}

	if tagger.TagID != "http://trunk.mindloom.org:80/seangeo/tags/a-religion" {
		t.Errorf("wrong tag id: %s", tagger.TagID)
	}
	if tagger.TagName != "a-religion" {
		t.Errorf("wrong tag name: %s", tagger.TagName)
	}
	if tagger.TrainingURL != "http://trunk.mindloom.org:80/seangeo/tags/a-religion/training.atom" {
		t.Errorf("wrong training url: %s", tagger.TrainingURL)
	}
	if tagger.TaggingsURL != "http://trunk.mindloom.org:80/seangeo/tags/a-religion/classifier_taggings.atom" {
		t.Errorf("wrong taggings url: %s", tagger.TaggingsURL)
	}
	if want := time.Date(2009, 1, 10, 20, 20, 42, 0, time.UTC); !tagger.Updated.Equal(want) {
		t.Errorf("wrong updated time: %v", tagger.Updated)
	}
	if want := time.Date(2009, 1, 1, 10, 0, 0, 0, time.UTC); !tagger.LastClassified.Equal(want) {
		t.Errorf("wrong last classified time: %v", tagger.LastClassified)
	}
	if tagger.Bias != 1.0 {
		t.Errorf("bias must default to 1.0, got %f", tagger.Bias)
	}
	if tagger.State() != StateLoaded {
		t.Errorf("expected loaded state, got %v", tagger.State())
	}

	wantPositive := []string{"urn:peerworks.org:entry#709254", "urn:peerworks.org:entry#753459"}
	if len(tagger.PositiveExamples) != len(wantPositive) {
		t.Fatalf("expected %d positive examples, got %d", len(wantPositive), len(tagger.PositiveExamples))
	}
	for i, id := range wantPositive {
		if tagger.PositiveExamples[i] != id {
			t.Errorf("positive example %d: got %s want %s", i, tagger.PositiveExamples[i], id)
		}
	}
	if len(tagger.NegativeExamples) != 1 || tagger.NegativeExamples[0] != "urn:peerworks.org:entry#886294" {
		t.Errorf("wrong negative examples: %v", tagger.NegativeExamples)
	}
}

func TestBuildTaggerReadsBias(t *testing.T) {
	tagger, err := Build([]byte(biasedTagDoc))
	if err != nil {
		t.Fatal(err)
	}
	if tagger.Bias != 1.2 {
		t.Errorf("expected bias 1.2, got %f", tagger.Bias)
	}
}

func TestBuildTaggerRejectsBadDocument(t *testing.T) {
	if _, err := Build([]byte("<feed")); err == nil {
		t.Error("expected an error for a malformed document")
	}
}

func TestTrainComplete(t *testing.T) {
	tagger, _ := Build([]byte(completeTagDoc))
	state := tagger.Train(newMockItems())

	if state != StateTrained {
		t.Fatalf("expected trained, got %v", state)
	}
	if len(tagger.MissingPositiveExamples) != 0 || len(tagger.MissingNegativeExamples) != 0 {
		t.Errorf("expected no missing examples")
	}
	if tagger.positivePool.TotalTokens() != 7 {
		t.Errorf("wrong positive pool size: %d", tagger.positivePool.TotalTokens())
	}
	if tagger.negativePool.TotalTokens() != 6 {
		t.Errorf("wrong negative pool size: %d", tagger.negativePool.TotalTokens())
	}
}

func TestTrainWithMissingItems(t *testing.T) {
	tagger, _ := Build([]byte(incompleteTagDoc))
	state := tagger.Train(newMockItems())

	if state != StatePartiallyTrained {
		t.Fatalf("expected partially trained, got %v", state)
	}
	if len(tagger.MissingPositiveExamples) != 1 || tagger.MissingPositiveExamples[0] != "urn:peerworks.org:entry#1000000" {
		t.Errorf("wrong missing positive examples: %v", tagger.MissingPositiveExamples)
	}
	if len(tagger.MissingNegativeExamples) != 1 || tagger.MissingNegativeExamples[0] != "urn:peerworks.org:entry#1000001" {
		t.Errorf("wrong missing negative examples: %v", tagger.MissingNegativeExamples)
	}
}

func TestPrecompute(t *testing.T) {
	tagger, _ := Build([]byte(completeTagDoc))
	tagger.Train(newMockItems())
	if err := tagger.Precompute(); err != nil {
		t.Fatal(err)
	}

	if tagger.State() != StatePrecomputed {
		t.Fatalf("expected precomputed, got %v", tagger.State())
	}
	if tagger.NumClues() == 0 {
		t.Error("expected clues for unevenly distributed tokens")
	}
}

func TestPrecomputeRequiresTraining(t *testing.T) {
	tagger, _ := Build([]byte(completeTagDoc))
	if err := tagger.Precompute(); err == nil {
		t.Error("expected an error when precomputing an untrained tagger")
	}
}

func TestPrecomputeWithIdenticalPoolsYieldsNoClues(t *testing.T) {
	// Every token occurs with identical counts on both sides, so no token
	// carries evidence.
	doc := `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <id>http://example.org/tags/even</id>
  <updated>2009-01-10T20:20:42Z</updated>
  <link rel="self" href="http://example.org/tags/even/training.atom"/>
  <entry><id>a</id><category term="even"/></entry>
  <entry><id>b</id><link rel="http://peerworks.org/classifier/negative-example" href="x"/></entry>
</feed>`

	items := &mockItems{items: map[string]*schema.Item{
		"a": schema.NewItem("a", map[int]int{1: 2, 2: 2}),
		"b": schema.NewItem("b", map[int]int{1: 2, 2: 2}),
	}}

	tagger, err := Build([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	tagger.Train(items)
	if err := tagger.Precompute(); err != nil {
		t.Fatal(err)
	}
	if tagger.NumClues() != 0 {
		t.Errorf("expected no clues, got %d", tagger.NumClues())
	}
}

func TestClassifyCorpus(t *testing.T) {
	items := newMockItems()
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("urn:peerworks.org:entry#%d", 900000+i)
		items.items[id] = schema.NewItem(id, map[int]int{1: i + 1, 2: 1, 4: i%3 + 1})
	}

	tagger, _ := Build([]byte(completeTagDoc))
	tagger.Train(items)
	if err := tagger.Precompute(); err != nil {
		t.Fatal(err)
	}

	classified := 0
	for id := range items.items {
		item, _ := items.FetchItem(id)
		tagging := tagger.Classify(item)
		if tagging.Strength < 0.0 || tagging.Strength > 1.0 {
			t.Errorf("strength out of range for %s: %f", id, tagging.Strength)
		}
		if tagging.TagID != "http://trunk.mindloom.org:80/seangeo/tags/a-religion" {
			t.Errorf("wrong tag id: %s", tagging.TagID)
		}
		classified++
	}
	if classified != 13 {
		t.Errorf("expected 13 classified items, got %d", classified)
	}
}

func TestClassifyProducesTagging(t *testing.T) {
	items := newMockItems()
	tagger, _ := Build([]byte(completeTagDoc))
	tagger.Train(items)
	if err := tagger.Precompute(); err != nil {
		t.Fatal(err)
	}

	for id := range items.items {
		item, _ := items.FetchItem(id)
		tagging := tagger.Classify(item)
		if tagging.TagID != tagger.TagID {
			t.Errorf("tagging tag id %s does not match document id %s", tagging.TagID, tagger.TagID)
		}
		if tagging.TagName != "a-religion" {
			t.Errorf("wrong tag name on tagging: %s", tagging.TagName)
		}
		if tagging.ItemID != id {
			t.Errorf("wrong item id: %s", tagging.ItemID)
		}
		if tagging.Strength < 0.0 || tagging.Strength > 1.0 {
			t.Errorf("strength out of range: %f", tagging.Strength)
		}
	}
}
