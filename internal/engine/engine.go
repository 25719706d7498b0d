// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package engine runs classification jobs on a worker pool. Jobs move
// through waiting -> training -> calculating -> classifying -> complete and
// live in the engine's job map until they are auto-deleted.
package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/seangeo/winnow/internal/tagger"
	"github.com/seangeo/winnow/pkg/log"
	"github.com/seangeo/winnow/pkg/schema"
)

var ErrNotRunning = errors.New("classification engine is not running")

// TaggerSource is the slice of the tagger cache the engine depends on.
type TaggerSource interface {
	GetTagger(url string) (*tagger.Tagger, error)
	Release(url string)
	TagURLsForUser(userID int) ([]string, error)
}

// ItemCorpus is the slice of the item cache the engine depends on.
type ItemCorpus interface {
	ItemIDs() ([]string, error)
	FetchItem(id string) (*schema.Item, bool)
	ExtractionRequests() <-chan string
	EntryAtom(id string) ([]byte, error)
	StoreTokens(id string, tokens map[int]int) error
}

// TaggingStore persists the taggings a job produces.
type TaggingStore interface {
	Store(tagging *schema.Tagging) error
}

// Tokenizer turns an entry's Atom source into a token frequency map.
type Tokenizer interface {
	Tokenize(entryID string, atom []byte) (map[int]int, error)
}

type Options struct {
	ClassifierWorkers int
	InsertionWorkers  int

	// Completed jobs are deleted this long after completion.
	AutoDeleteAfter time.Duration

	// Transient tagger errors re-enqueue the job after this delay. A job gets
	// at most MaxAttempts tries at the tagger; the last failed try fails it.
	RetryDelay  time.Duration
	MaxAttempts int
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.ClassifierWorkers <= 0 {
		opts.ClassifierWorkers = 1
	}
	if opts.InsertionWorkers <= 0 {
		opts.InsertionWorkers = 1
	}
	if opts.AutoDeleteAfter <= 0 {
		opts.AutoDeleteAfter = 15 * time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	return opts
}

type Engine struct {
	opts Options

	queue *JobQueue

	jobsMu sync.Mutex
	jobs   map[string]*ClassificationJob

	taggers   TaggerSource
	items     ItemCorpus
	taggings  TaggingStore
	tokenizer Tokenizer

	stats statsRecorder

	suspendMu   sync.Mutex
	suspendCond *sync.Cond
	suspended   bool

	running   atomic.Bool
	killed    atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
	scheduler gocron.Scheduler
}

func New(taggers TaggerSource, items ItemCorpus, taggings TaggingStore, tokenizer Tokenizer, opts Options) *Engine {
	e := &Engine{
		opts:      opts.withDefaults(),
		queue:     NewJobQueue(),
		jobs:      make(map[string]*ClassificationJob),
		taggers:   taggers,
		items:     items,
		taggings:  taggings,
		tokenizer: tokenizer,
		done:      make(chan struct{}),
	}
	e.suspendCond = sync.NewCond(&e.suspendMu)
	return e
}

// Start spawns the classifier and insertion workers and the auto-delete
// sweeper.
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}

	for i := 0; i < e.opts.ClassifierWorkers; i++ {
		e.wg.Add(1)
		go e.classifierWorker(i)
	}
	for i := 0; i < e.opts.InsertionWorkers; i++ {
		e.wg.Add(1)
		go e.insertionWorker(i)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	if _, err := s.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(e.sweepExpiredJobs),
	); err != nil {
		return err
	}
	s.Start()
	e.scheduler = s

	log.Infof("classification engine started with %d classifier and %d insertion workers",
		e.opts.ClassifierWorkers, e.opts.InsertionWorkers)
	return nil
}

// Stop drains the queue and joins the workers.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}

	e.Resume()
	e.queue.Close()
	close(e.done)
	e.wg.Wait()

	if e.scheduler != nil {
		e.scheduler.Shutdown()
	}
	log.Info("classification engine stopped")
}

// Kill abandons all in-flight work immediately.
func (e *Engine) Kill() {
	e.killed.Store(true)

	e.jobsMu.Lock()
	for _, job := range e.jobs {
		job.Cancel()
	}
	e.jobsMu.Unlock()

	e.Stop()
}

// Suspend parks the workers at the next job boundary. Queued jobs are kept.
func (e *Engine) Suspend() {
	e.suspendMu.Lock()
	e.suspended = true
	e.suspendMu.Unlock()
}

// Resume unparks the workers.
func (e *Engine) Resume() {
	e.suspendMu.Lock()
	e.suspended = false
	e.suspendCond.Broadcast()
	e.suspendMu.Unlock()
}

func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// waitWhileSuspended parks the calling worker between jobs.
func (e *Engine) waitWhileSuspended() {
	e.suspendMu.Lock()
	for e.suspended && !e.killed.Load() {
		e.suspendCond.Wait()
	}
	e.suspendMu.Unlock()
}

// AddTagJob enqueues a classification job for a single tag training URL.
func (e *Engine) AddTagJob(tagURL string) (*ClassificationJob, error) {
	return e.addJob(newTagJob(tagURL))
}

// AddUserJob enqueues a classification job covering all of a user's tags.
func (e *Engine) AddUserJob(userID int) (*ClassificationJob, error) {
	return e.addJob(newUserJob(userID))
}

func (e *Engine) addJob(job *ClassificationJob) (*ClassificationJob, error) {
	if !e.running.Load() {
		return nil, ErrNotRunning
	}

	e.sweepExpiredJobs()

	e.jobsMu.Lock()
	e.jobs[job.ID()] = job
	e.jobsMu.Unlock()

	e.queue.Enqueue(job)
	log.Debugf("enqueued %s job %s", job.Type(), job.ID())
	return job, nil
}

// FetchJob returns a job by id, or nil if it does not exist (anymore).
func (e *Engine) FetchJob(id string) *ClassificationJob {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	return e.jobs[id]
}

// RemoveJob removes a terminal job from the system. Live jobs are kept.
func (e *Engine) RemoveJob(id string) bool {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()

	job, ok := e.jobs[id]
	if !ok || !job.State().Terminal() {
		return false
	}
	delete(e.jobs, id)
	return true
}

func (e *Engine) NumJobsInSystem() int {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	return len(e.jobs)
}

func (e *Engine) NumWaitingJobs() int {
	return e.queue.Len()
}

func (e *Engine) PerformanceStats() PerformanceStats {
	return e.stats.snapshot()
}

// sweepExpiredJobs deletes completed jobs older than the auto-delete
// window. Runs on every enqueue and periodically from the scheduler.
func (e *Engine) sweepExpiredJobs() {
	cutoff := time.Now().Add(-e.opts.AutoDeleteAfter)

	e.jobsMu.Lock()
	for id, job := range e.jobs {
		if job.completedBefore(cutoff) {
			log.Debugf("auto-deleting job %s", id)
			delete(e.jobs, id)
		}
	}
	e.jobsMu.Unlock()
}
