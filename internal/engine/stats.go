// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package engine

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PerformanceStats accumulates per-phase timings across all workers.
type PerformanceStats struct {
	ClassificationJobsProcessed int     `json:"classification_jobs_processed"`
	ClassificationWaitTime      float64 `json:"classification_wait_time"`
	TrainingTime                float64 `json:"training_time"`
	CalculatingTime             float64 `json:"calculating_time"`
	ClassifyingTime             float64 `json:"classifying_time"`
	TagsClassified              int     `json:"tags_classified"`
	ItemsClassified             int     `json:"items_classified"`

	InsertionJobsProcessed int     `json:"insertion_jobs_processed"`
	InsertionTime          float64 `json:"insertion_time"`
}

var (
	metricJobsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winnow_classification_jobs_processed_total",
		Help: "Number of classification jobs run to completion.",
	})
	metricItemsClassified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winnow_items_classified_total",
		Help: "Number of items classified.",
	})
	metricPhaseSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winnow_job_phase_seconds_total",
		Help: "Time spent per classification job phase.",
	}, []string{"phase"})
	metricInsertionsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winnow_insertion_jobs_processed_total",
		Help: "Number of feature extraction jobs processed.",
	})
)

// statsRecorder guards the accumulated statistics with a dedicated lock.
type statsRecorder struct {
	mu    sync.Mutex
	stats PerformanceStats
}

func (r *statsRecorder) recordWait(d time.Duration) {
	r.mu.Lock()
	r.stats.ClassificationWaitTime += d.Seconds()
	r.mu.Unlock()
	metricPhaseSeconds.WithLabelValues("wait").Add(d.Seconds())
}

func (r *statsRecorder) recordTraining(d time.Duration) {
	r.mu.Lock()
	r.stats.TrainingTime += d.Seconds()
	r.mu.Unlock()
	metricPhaseSeconds.WithLabelValues("training").Add(d.Seconds())
}

func (r *statsRecorder) recordCalculating(d time.Duration) {
	r.mu.Lock()
	r.stats.CalculatingTime += d.Seconds()
	r.mu.Unlock()
	metricPhaseSeconds.WithLabelValues("calculating").Add(d.Seconds())
}

func (r *statsRecorder) recordClassifying(d time.Duration, items int) {
	r.mu.Lock()
	r.stats.ClassifyingTime += d.Seconds()
	r.stats.ItemsClassified += items
	r.stats.TagsClassified++
	r.mu.Unlock()
	metricPhaseSeconds.WithLabelValues("classifying").Add(d.Seconds())
	metricItemsClassified.Add(float64(items))
}

func (r *statsRecorder) recordJobProcessed() {
	r.mu.Lock()
	r.stats.ClassificationJobsProcessed++
	r.mu.Unlock()
	metricJobsProcessed.Inc()
}

func (r *statsRecorder) recordInsertion(d time.Duration) {
	r.mu.Lock()
	r.stats.InsertionJobsProcessed++
	r.stats.InsertionTime += d.Seconds()
	r.mu.Unlock()
	metricInsertionsProcessed.Inc()
}

func (r *statsRecorder) snapshot() PerformanceStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
