// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package tagger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/seangeo/winnow/internal/fetch"
	"github.com/seangeo/winnow/pkg/log"
)

// parseTagIndex reads the tag index document: an Atom feed whose entries
// each point at a tag training document. Entries may carry the owning user
// in the classifier namespace.
func parseTagIndex(doc []byte) ([]IndexEntry, time.Time, error) {
	feed, err := parseFeed(doc)
	if err != nil {
		return nil, time.Time{}, err
	}

	entries := make([]IndexEntry, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		url := e.linkHref(trainingRel)
		if url == "" {
			url = e.linkHref(selfRel)
		}
		if url == "" {
			url = e.ID
		}
		if url == "" {
			continue
		}

		userID := 0
		if e.UserID != "" {
			userID, _ = strconv.Atoi(e.UserID)
		}

		entries = append(entries, IndexEntry{TrainingURL: url, UserID: userID})
	}

	return entries, feed.updatedTime(), nil
}

// FetchTags returns the ordered tag index, refreshing it from the index URL
// with a conditional GET. On network or parse errors a previously cached
// copy is returned instead; without one the fetch fails.
func (c *Cache) FetchTags() ([]IndexEntry, error) {
	if c.opts.TagIndexURL == "" {
		return nil, fmt.Errorf("%w: no tag index defined", ErrNoTagIndex)
	}

	c.mu.Lock()
	cached := c.tagIndex
	since := c.tagIndexUpdated
	c.mu.Unlock()

	status, body, err := c.retriever(c.opts.TagIndexURL, since, c.opts.Credentials)
	if status == fetch.OK && body != nil {
		entries, updated, perr := parseTagIndex(body)
		if perr != nil {
			if cached != nil {
				log.Warnf("parser error in tag index, returning cached copy: %v", perr)
				return cached, nil
			}
			return nil, fmt.Errorf("%w: parser error in tag index: %s", ErrNoTagIndex, perr)
		}

		c.mu.Lock()
		c.tagIndex = entries
		c.tagIndexUpdated = updated
		c.mu.Unlock()
		return entries, nil
	}

	if cached != nil {
		log.Debug("returning cached version of tag index")
		return cached, nil
	}

	if err == nil {
		err = fmt.Errorf("fetch status %v", status)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoTagIndex, err)
}

// TagURLsForUser resolves the training URLs of the tags owned by a user.
func (c *Cache) TagURLsForUser(userID int) ([]string, error) {
	entries, err := c.FetchTags()
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.UserID == userID {
			urls = append(urls, e.TrainingURL)
		}
	}
	return urls, nil
}
