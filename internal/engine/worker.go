// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package engine

import (
	"errors"
	"time"

	"github.com/seangeo/winnow/internal/tagger"
	"github.com/seangeo/winnow/pkg/log"
)

func (e *Engine) classifierWorker(id int) {
	defer e.wg.Done()
	log.Debugf("classifier worker %d started", id)

	for {
		e.waitWhileSuspended()

		job := e.queue.DequeueOrWait()
		if job == nil {
			log.Debugf("classifier worker %d finished", id)
			return
		}
		if e.killed.Load() {
			job.setState(JobCancelled)
			return
		}

		e.waitWhileSuspended()
		e.processJob(job)
	}
}

func (e *Engine) processJob(job *ClassificationJob) {
	e.stats.recordWait(time.Since(job.enqueuedAt))

	if job.Cancelled() {
		job.setState(JobCancelled)
		return
	}

	switch job.Type() {
	case TagJob:
		if done := e.classifyTag(job, job.TagURL(), 0, 100); done {
			e.finishJob(job)
		}
	case UserJob:
		e.processUserJob(job)
	default:
		job.fail(JobErrorBadJobType, "")
	}
}

func (e *Engine) processUserJob(job *ClassificationJob) {
	urls, err := e.taggers.TagURLsForUser(job.UserID())
	if err != nil {
		job.fail(JobErrorNoTagsForUser, err.Error())
		return
	}
	if len(urls) == 0 {
		job.fail(JobErrorNoTagsForUser, "")
		return
	}

	span := 100.0 / float64(len(urls))
	for i, url := range urls {
		if job.Cancelled() {
			job.setState(JobCancelled)
			return
		}
		if done := e.classifyTag(job, url, float64(i)*span, span); !done {
			// The job was re-enqueued or failed; either way this pass ends.
			return
		}
	}

	e.finishJob(job)
}

func (e *Engine) finishJob(job *ClassificationJob) {
	job.setState(JobComplete)
	e.stats.recordJobProcessed()
}

// classifyTag runs one tag through training, calculating and classifying,
// mapping progress onto [base, base+span]. It returns false when the job
// did not finish this pass (re-enqueued on a transient error, cancelled, or
// failed).
func (e *Engine) classifyTag(job *ClassificationJob, url string, base, span float64) bool {
	job.setState(JobTraining)
	trainingStart := time.Now()

	t, err := e.taggers.GetTagger(url)
	if err != nil {
		return e.handleTaggerError(job, url, err)
	}
	defer e.taggers.Release(url)

	e.stats.recordTraining(time.Since(trainingStart))

	if job.Cancelled() {
		job.setState(JobCancelled)
		return false
	}

	// The calculating stage is a no-op in the common path: the cache hands
	// out precomputed taggers. The phase exists for progress reporting.
	job.setState(JobCalculating)
	calculatingStart := time.Now()
	e.stats.recordCalculating(time.Since(calculatingStart))

	job.setState(JobClassifying)
	classifyingStart := time.Now()

	ids, err := e.items.ItemIDs()
	if err != nil {
		job.fail(JobErrorUnknown, err.Error())
		return false
	}

	classified := 0
	for i, id := range ids {
		if job.Cancelled() {
			job.setState(JobCancelled)
			return false
		}

		item, ok := e.items.FetchItem(id)
		if !ok {
			continue
		}

		tagging := t.Classify(item)
		if err := e.taggings.Store(tagging); err != nil {
			log.Errorf("storing tagging for %s: %v", id, err)
		}
		classified++
		job.setProgress(base + span*float64(i+1)/float64(len(ids)))
	}

	e.stats.recordClassifying(time.Since(classifyingStart), classified)
	log.Infof("classified %d items for %s", classified, url)
	return true
}

// handleTaggerError maps tagger cache errors onto job transitions. The
// transient conditions re-enqueue the job with a delay, bounded by the
// attempt limit.
func (e *Engine) handleTaggerError(job *ClassificationJob, url string, err error) bool {
	switch {
	case errors.Is(err, tagger.ErrCheckedOut):
		e.retryLater(job, JobErrorCheckedOut)
	case errors.Is(err, tagger.ErrPendingItemAddition):
		e.retryLater(job, JobErrorPendingItemAddition)
	case errors.Is(err, tagger.ErrNotFound):
		job.fail(JobErrorNoSuchTag, err.Error())
	default:
		job.fail(JobErrorUnknown, err.Error())
	}
	return false
}

func (e *Engine) retryLater(job *ClassificationJob, code JobErrorCode) {
	job.mu.Lock()
	job.attempts++
	attempts := job.attempts
	job.mu.Unlock()

	if attempts >= e.opts.MaxAttempts {
		job.fail(code, "")
		return
	}

	job.setState(JobWaiting)
	log.Debugf("re-enqueueing job %s (attempt %d): %v", job.ID(), attempts, jobErrorMsgs[code])

	time.AfterFunc(e.opts.RetryDelay, func() {
		if job.Cancelled() {
			job.setState(JobCancelled)
			return
		}
		if e.running.Load() {
			e.queue.Enqueue(job)
		}
	})
}

func (e *Engine) insertionWorker(id int) {
	defer e.wg.Done()
	log.Debugf("insertion worker %d started", id)

	for {
		select {
		case <-e.done:
			return
		case entryID, ok := <-e.items.ExtractionRequests():
			if !ok {
				return
			}
			e.extractFeatures(entryID)
		}
	}
}

func (e *Engine) extractFeatures(entryID string) {
	start := time.Now()

	atom, err := e.items.EntryAtom(entryID)
	if err != nil {
		log.Errorf("no source for entry %s: %v", entryID, err)
		return
	}

	tokens, err := e.tokenizer.Tokenize(entryID, atom)
	if err != nil {
		log.Errorf("feature extraction for %s failed: %v", entryID, err)
		return
	}

	if err := e.items.StoreTokens(entryID, tokens); err != nil {
		log.Errorf("storing tokens for %s failed: %v", entryID, err)
		return
	}

	e.stats.recordInsertion(time.Since(start))
}
