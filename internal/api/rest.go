// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api is the HTTP control plane over the classification engine.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seangeo/winnow/internal/engine"
	"github.com/seangeo/winnow/pkg/log"
)

type RestApi struct {
	Engine *engine.Engine
}

func (api *RestApi) MountRoutes(r *mux.Router) {
	r = r.PathPrefix("/classifier").Subrouter()
	r.StrictSlash(true)

	r.HandleFunc("/jobs/", api.createJob).Methods(http.MethodPost, http.MethodPut)
	r.HandleFunc("/jobs/{id}", api.getJob).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", api.removeJob).Methods(http.MethodDelete)
	r.HandleFunc("/status/", api.getStatus).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// CreateJobApiRequest model
type CreateJobApiRequest struct {
	// Tag training URL for a tag job
	TagURL string `json:"tag_url,omitempty"`
	// User id for a user job
	UserID *int `json:"user_id,omitempty"`
}

// JobApiResponse model
type JobApiResponse struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	State    string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error_message,omitempty"`
	Duration float64 `json:"duration"`
}

// StatusApiResponse model
type StatusApiResponse struct {
	Running      bool                    `json:"running"`
	JobsInSystem int                     `json:"num_jobs_in_system"`
	WaitingJobs  int                     `json:"num_waiting_jobs"`
	Performance  engine.PerformanceStats `json:"performance"`
}

// ErrorApiResponse model
type ErrorApiResponse struct {
	Message string `json:"msg"`
}

func jobResponse(job *engine.ClassificationJob) JobApiResponse {
	return JobApiResponse{
		ID:       job.ID(),
		Type:     job.Type().String(),
		State:    job.StateMsg(),
		Progress: job.Progress(),
		Error:    job.ErrorMsg(),
		Duration: job.Duration().Seconds(),
	}
}

func handleError(err error, statusCode int, rw http.ResponseWriter) {
	log.Warnf("REST ERROR : %s", err.Error())
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(ErrorApiResponse{Message: err.Error()})
}

func (api *RestApi) createJob(rw http.ResponseWriter, r *http.Request) {
	var req CreateJobApiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(fmt.Errorf("parsing request body failed: %w", err), http.StatusBadRequest, rw)
		return
	}

	var job *engine.ClassificationJob
	var err error
	switch {
	case req.TagURL != "" && req.UserID == nil:
		job, err = api.Engine.AddTagJob(req.TagURL)
	case req.UserID != nil && req.TagURL == "":
		job, err = api.Engine.AddUserJob(*req.UserID)
	default:
		handleError(fmt.Errorf("exactly one of tag_url or user_id is required"), http.StatusBadRequest, rw)
		return
	}
	if err != nil {
		handleError(err, http.StatusServiceUnavailable, rw)
		return
	}

	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(http.StatusCreated)
	json.NewEncoder(rw).Encode(jobResponse(job))
}

func (api *RestApi) getJob(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job := api.Engine.FetchJob(id)
	if job == nil {
		handleError(fmt.Errorf("no job with id %s", id), http.StatusNotFound, rw)
		return
	}

	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(jobResponse(job))
}

func (api *RestApi) removeJob(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job := api.Engine.FetchJob(id)
	if job == nil {
		handleError(fmt.Errorf("no job with id %s", id), http.StatusNotFound, rw)
		return
	}

	// Live jobs are cancelled; once the cancellation has taken effect, a
	// later removal attempt succeeds.
	if !api.Engine.RemoveJob(id) {
		job.Cancel()
		handleError(fmt.Errorf("job %s is still running, cancellation requested", id), http.StatusConflict, rw)
		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func (api *RestApi) getStatus(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(StatusApiResponse{
		Running:      api.Engine.IsRunning(),
		JobsInSystem: api.Engine.NumJobsInSystem(),
		WaitingJobs:  api.Engine.NumWaitingJobs(),
		Performance:  api.Engine.PerformanceStats(),
	})
}
