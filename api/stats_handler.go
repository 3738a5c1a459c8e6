package api

import (
	"net/http"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// JobCountsResponse is the GET /v1/stats body.
type JobCountsResponse struct {
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	var resp JobCountsResponse
	for _, status := range []job.Status{
		job.StatusQueued, job.StatusProcessing, job.StatusCompleted,
		job.StatusFailed, job.StatusCancelled,
	} {
		count, err := a.eng.Store().CountJobs(r.Context(), job.CountOpts{Status: status})
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		switch status {
		case job.StatusQueued:
			resp.Queued = count
		case job.StatusProcessing:
			resp.Processing = count
		case job.StatusCompleted:
			resp.Completed = count
		case job.StatusFailed:
			resp.Failed = count
		case job.StatusCancelled:
			resp.Cancelled = count
		}
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if err := a.eng.Store().Ping(r.Context()); err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
