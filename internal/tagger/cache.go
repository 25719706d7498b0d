// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package tagger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/seangeo/winnow/internal/fetch"
	"github.com/seangeo/winnow/pkg/log"
	"github.com/seangeo/winnow/pkg/schema"
	"golang.org/x/time/rate"
)

var (
	// ErrCheckedOut is transient; the caller must retry after the current
	// holder releases the tagger.
	ErrCheckedOut = errors.New("Tagger already being processed")

	// ErrNotFound means neither the cache nor the tag service could provide
	// the tagger.
	ErrNotFound = errors.New("tag could not be found")

	// ErrPendingItemAddition is transient; training items are missing from
	// the item cache and have been scheduled for extraction.
	ErrPendingItemAddition = errors.New("tag is waiting for items to be added to the item cache")

	// ErrNoTagIndex is returned by FetchTags when no index is configured or
	// no usable copy exists.
	ErrNoTagIndex = errors.New("could not find tag index")
)

const prefetchQueueSize = 64

type CacheOptions struct {
	TagIndexURL string
	Credentials *schema.Credentials

	// Concurrent background prefetches. Defaults to 4.
	PrefetchWorkers int
}

// An IndexEntry is one tag listed by the tag index document.
type IndexEntry struct {
	TrainingURL string
	UserID      int
}

// Cache holds one tagger per training URL. A tagger may be used by at most
// one caller at a time: GetTagger checks the tagger out, Release checks it
// back in. A single mutex guards the tagger map, the checkout set, the
// failed set and the tag index copy.
type Cache struct {
	mu         sync.Mutex
	taggers    map[string]*Tagger
	checkedOut map[string]struct{}
	failed     map[string]struct{}

	tagIndex        []IndexEntry
	tagIndexUpdated time.Time

	items     ItemStore
	retriever fetch.Func
	opts      CacheOptions

	prefetch chan string
	limiter  *rate.Limiter
	wg       sync.WaitGroup
	closed   chan struct{}
}

// NewCache creates a tagger cache backed by the given item store and
// document retriever, and starts the background prefetch workers.
func NewCache(items ItemStore, retriever fetch.Func, opts CacheOptions) *Cache {
	if opts.PrefetchWorkers <= 0 {
		opts.PrefetchWorkers = 4
	}

	c := &Cache{
		taggers:    make(map[string]*Tagger),
		checkedOut: make(map[string]struct{}),
		failed:     make(map[string]struct{}),
		items:      items,
		retriever:  retriever,
		opts:       opts,
		prefetch:   make(chan string, prefetchQueueSize),
		limiter:    rate.NewLimiter(rate.Limit(opts.PrefetchWorkers), opts.PrefetchWorkers),
		closed:     make(chan struct{}),
	}

	for i := 0; i < opts.PrefetchWorkers; i++ {
		c.wg.Add(1)
		go c.prefetcher()
	}

	return c
}

// Close stops the background prefetch workers and the index watcher.
func (c *Cache) Close() {
	close(c.closed)
	c.wg.Wait()
}

// checkout marks url as checked out. If the url is already checked out by
// someone else it returns ErrCheckedOut. Otherwise the cached tagger (which
// may be nil if the url has never been cached) is returned and the url is
// checked out either way.
func (c *Cache) checkout(url string) (*Tagger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, taken := c.checkedOut[url]; taken {
		return nil, ErrCheckedOut
	}

	c.checkedOut[url] = struct{}{}
	return c.taggers[url], nil
}

// Release checks the tagger identified by url back in. Every successful
// checkout must be balanced by exactly one release.
func (c *Cache) Release(url string) {
	c.mu.Lock()
	delete(c.checkedOut, url)
	c.mu.Unlock()
}

func (c *Cache) insert(t *Tagger) {
	c.mu.Lock()
	if _, replacing := c.taggers[t.TrainingURL]; replacing {
		log.Debugf("replacing %s in cache", t.TrainingURL)
	}
	c.taggers[t.TrainingURL] = t
	c.mu.Unlock()
}

// GetTagger returns the precomputed tagger for a training URL, fetching and
// training it as required. On success the tagger remains checked out until
// the caller passes its URL to Release. All error returns leave the URL
// released.
//
// Outcomes:
//   - (tagger, nil): a trained and precomputed tagger, checked out.
//   - ErrCheckedOut: someone else holds the tagger, retry later.
//   - ErrPendingItemAddition: training items were missing from the item
//     cache and have been scheduled for extraction, retry later.
//   - ErrNotFound: the document could not be fetched.
func (c *Cache) GetTagger(url string) (*Tagger, error) {
	if url == "" {
		return nil, ErrNotFound
	}

	tagger, err := c.checkout(url)
	if err != nil {
		return nil, err
	}

	isNew := false
	if tagger == nil {
		if tagger, err = c.fetchTagger(url, time.Time{}); err != nil {
			c.Release(url)
			return nil, err
		}
		isNew = true
	} else if updated, err := c.fetchTagger(url, tagger.Updated); err == nil && updated != nil {
		tagger = updated
		isNew = true
	} else {
		log.Debugf("tag %s not modified, using cached version", url)
	}

	if err := c.prepare(tagger); err != nil {
		c.Release(url)
		return nil, err
	}

	if isNew {
		c.insert(tagger)
	}

	if tagger.State() != StatePrecomputed {
		c.Release(url)
		return nil, fmt.Errorf("unaccounted for tagger state: %v", tagger.State())
	}

	return tagger, nil
}

// GetTaggerWithoutFetching behaves like GetTagger but only considers the
// in-memory cache, never the tag service.
func (c *Cache) GetTaggerWithoutFetching(url string) (*Tagger, error) {
	tagger, err := c.checkout(url)
	if err != nil {
		return nil, err
	}

	if tagger == nil {
		c.Release(url)
		return nil, ErrNotFound
	}

	if err := c.prepare(tagger); err != nil {
		c.Release(url)
		return nil, err
	}

	return tagger, nil
}

// fetchTagger retrieves the training document and builds a tagger from it.
// A nil tagger with nil error means the document was not modified.
func (c *Cache) fetchTagger(url string, ifModifiedSince time.Time) (*Tagger, error) {
	status, body, err := c.retriever(url, ifModifiedSince, c.opts.Credentials)
	switch status {
	case fetch.NotModified:
		return nil, nil
	case fetch.OK:
		tagger, err := Build(body)
		if err != nil {
			log.Infof("the tag document at %s was badly formed", url)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, err)
		}
		// Don't trust the atom document to report its own URL correctly.
		tagger.TrainingURL = url
		return tagger, nil
	default:
		if err == nil {
			err = fmt.Errorf("fetch of %s failed", url)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, err)
	}
}

// prepare trains a freshly built tagger and precomputes its clues. A tagger
// with missing training items schedules them for extraction and surfaces
// ErrPendingItemAddition; it must not be kept.
func (c *Cache) prepare(t *Tagger) error {
	if t.State() != StateLoaded {
		return nil
	}

	if t.Train(c.items) == StatePartiallyTrained {
		c.items.RequestItems(t.missingEntries())
		return ErrPendingItemAddition
	}

	return t.Precompute()
}

// IsCached reports whether a tagger for the training URL is in the cache.
func (c *Cache) IsCached(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.taggers[url]
	return ok
}

// IsFailed reports whether a background fetch for the URL has failed. The
// mark is not cleared by a later successful fetch.
func (c *Cache) IsFailed(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.failed[url]
	return ok
}

func (c *Cache) markFailed(url string) {
	c.mu.Lock()
	c.failed[url] = struct{}{}
	c.mu.Unlock()
}

// FetchTaggerInBackground schedules a prefetch of the tagger so a later
// GetTagger finds it already trained. Failures only mark the URL as failed.
func (c *Cache) FetchTaggerInBackground(url string) {
	select {
	case c.prefetch <- url:
	default:
		log.Warnf("prefetch queue full, dropping %s", url)
	}
}

func (c *Cache) prefetcher() {
	defer c.wg.Done()

	for {
		select {
		case <-c.closed:
			return
		case url := <-c.prefetch:
			if err := c.limiter.Wait(context.Background()); err != nil {
				return
			}

			if _, err := c.GetTagger(url); err != nil {
				log.Debugf("background fetch of %s: %v", url, err)
				c.markFailed(url)
			} else {
				c.Release(url)
			}
		}
	}
}

// StartIndexWatcher periodically refreshes the tag index and prefetches the
// taggers it lists, so foreground callers mostly hit warm cache entries.
func (c *Cache) StartIndexWatcher(interval time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.closed:
				return
			case <-ticker.C:
				entries, err := c.FetchTags()
				if err != nil {
					log.Warnf("tag index refresh failed: %v", err)
					continue
				}
				for _, e := range entries {
					c.FetchTaggerInBackground(e.TrainingURL)
				}
			}
		}
	}()
}
