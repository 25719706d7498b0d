// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type JobType int

const (
	TagJob JobType = iota
	UserJob
)

func (t JobType) String() string {
	if t == UserJob {
		return "user"
	}
	return "tag"
}

type JobState int

const (
	JobWaiting JobState = iota
	JobTraining
	JobCalculating
	JobClassifying
	JobComplete
	JobCancelled
	JobError
)

var jobStateMsgs = map[JobState]string{
	JobWaiting:     "Waiting",
	JobTraining:    "Training",
	JobCalculating: "Calculating",
	JobClassifying: "Classifying",
	JobComplete:    "Complete",
	JobCancelled:   "Cancelled",
	JobError:       "Error",
}

func (s JobState) String() string {
	return jobStateMsgs[s]
}

// Terminal reports whether a job in this state will never run again.
func (s JobState) Terminal() bool {
	return s == JobComplete || s == JobCancelled || s == JobError
}

type JobErrorCode int

const (
	JobNoError JobErrorCode = iota
	JobErrorNoSuchTag
	JobErrorNoTagsForUser
	JobErrorBadJobType
	JobErrorCheckedOut
	JobErrorPendingItemAddition
	JobErrorUnknown
)

var jobErrorMsgs = map[JobErrorCode]string{
	JobNoError:                  "",
	JobErrorNoSuchTag:           "Tag does not exist",
	JobErrorNoTagsForUser:       "User has no tags to classify",
	JobErrorBadJobType:          "Unknown classification job type",
	JobErrorCheckedOut:          "Tag is in use by another job",
	JobErrorPendingItemAddition: "Tag is waiting for items to be added to the item cache",
	JobErrorUnknown:             "Unknown error",
}

// A ClassificationJob tracks one queued classification request through its
// state machine. All mutable fields are guarded by the mutex except the
// cancellation flag, which workers poll between items.
type ClassificationJob struct {
	mu sync.Mutex

	id      string
	jobType JobType
	tagURL  string
	userID  int

	state    JobState
	errCode  JobErrorCode
	errMsg   string
	progress float64
	attempts int

	enqueuedAt  time.Time
	startedAt   time.Time
	trainedAt   time.Time
	calculated  time.Time
	classified  time.Time
	completedAt time.Time

	cancelled atomic.Bool
}

func newTagJob(tagURL string) *ClassificationJob {
	return &ClassificationJob{
		id:         uuid.NewString(),
		jobType:    TagJob,
		tagURL:     tagURL,
		state:      JobWaiting,
		enqueuedAt: time.Now(),
	}
}

func newUserJob(userID int) *ClassificationJob {
	return &ClassificationJob{
		id:         uuid.NewString(),
		jobType:    UserJob,
		userID:     userID,
		state:      JobWaiting,
		enqueuedAt: time.Now(),
	}
}

func (j *ClassificationJob) ID() string     { return j.id }
func (j *ClassificationJob) Type() JobType  { return j.jobType }
func (j *ClassificationJob) TagURL() string { return j.tagURL }
func (j *ClassificationJob) UserID() int    { return j.userID }

func (j *ClassificationJob) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *ClassificationJob) StateMsg() string {
	return j.State().String()
}

func (j *ClassificationJob) Error() JobErrorCode {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errCode
}

func (j *ClassificationJob) ErrorMsg() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.errMsg != "" {
		return j.errMsg
	}
	return jobErrorMsgs[j.errCode]
}

func (j *ClassificationJob) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Cancel requests cancellation; workers honor it at the next phase or item
// boundary.
func (j *ClassificationJob) Cancel() {
	j.cancelled.Store(true)
}

func (j *ClassificationJob) Cancelled() bool {
	return j.cancelled.Load()
}

// Duration is the time from enqueue to completion, or to now for live jobs.
func (j *ClassificationJob) Duration() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.completedAt.IsZero() {
		return j.completedAt.Sub(j.enqueuedAt)
	}
	return time.Since(j.enqueuedAt)
}

// setProgress is monotone: a job's progress never moves backwards.
func (j *ClassificationJob) setProgress(p float64) {
	j.mu.Lock()
	if p > j.progress {
		if p > 100 {
			p = 100
		}
		j.progress = p
	}
	j.mu.Unlock()
}

func (j *ClassificationJob) setState(s JobState) {
	now := time.Now()

	j.mu.Lock()
	j.state = s
	switch s {
	case JobTraining:
		if j.startedAt.IsZero() {
			j.startedAt = now
		}
	case JobCalculating:
		j.trainedAt = now
	case JobClassifying:
		j.calculated = now
	case JobComplete:
		j.classified = now
		j.completedAt = now
		j.progress = 100
	case JobCancelled, JobError:
		j.completedAt = now
	}
	j.mu.Unlock()
}

func (j *ClassificationJob) fail(code JobErrorCode, msg string) {
	j.mu.Lock()
	j.errCode = code
	j.errMsg = msg
	j.mu.Unlock()
	j.setState(JobError)
}

// completedBefore reports whether the job reached a terminal state before
// the cutoff, which makes it eligible for auto-deletion.
func (j *ClassificationJob) completedBefore(cutoff time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.Terminal() && !j.completedAt.IsZero() && j.completedAt.Before(cutoff)
}
