package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/engine"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// SubmitJobRequest is the POST /v1/jobs body.
type SubmitJobRequest struct {
	SourceURL      string `json:"source_url"`
	SourceFilename string `json:"source_filename,omitempty"`
	PlatformHint   string `json:"platform_hint,omitempty"`
	Mode           string `json:"mode,omitempty"`
	CropPixels     int    `json:"crop_pixels,omitempty"`
	CropPosition   string `json:"crop_position,omitempty"`
	Queue          string `json:"queue,omitempty"`
	WebhookURL     string `json:"webhook_url,omitempty"`
	WebhookSecret  string `json:"webhook_secret,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	CostCredits    int64  `json:"cost_credits,omitempty"`
}

func (a *API) submitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	j, err := a.eng.Enqueue(r.Context(), engine.EnqueueRequest{
		SourceURL:      req.SourceURL,
		SourceFilename: req.SourceFilename,
		PlatformHint:   req.PlatformHint,
		Mode:           req.Mode,
		CropPixels:     req.CropPixels,
		CropPosition:   req.CropPosition,
		Queue:          req.Queue,
		WebhookURL:     req.WebhookURL,
		WebhookSecret:  req.WebhookSecret,
		UserID:         req.UserID,
		CostCredits:    req.CostCredits,
	})
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a.writeJSON(w, http.StatusAccepted, j)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid job id: "+err.Error())
		return
	}

	j, err := a.eng.GetJob(r.Context(), jobID)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, j)
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid job id: "+err.Error())
		return
	}

	events, err := a.eng.ListEvents(r.Context(), jobID)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, events)
}

func (a *API) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid job id: "+err.Error())
		return
	}

	if err := a.eng.Cancel(r.Context(), jobID); err != nil {
		if errors.Is(err, blanklogo.ErrInvalidTransition) {
			a.writeError(w, http.StatusConflict, "only queued jobs can be cancelled")
			return
		}
		a.writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	status := job.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = job.StatusQueued
	}

	jobs, err := a.eng.Store().ListJobsByStatus(r.Context(), status, job.ListOpts{
		Queue:  r.URL.Query().Get("queue"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, jobs)
}

// writeStoreError maps store sentinel errors to HTTP statuses.
func (a *API) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, blanklogo.ErrJobNotFound) {
		a.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	a.writeError(w, http.StatusInternalServerError, err.Error())
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
