package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// RunJob handles GET /api/cron/{job}. The response is the job's stats plus a
// success flag; a batch-level failure is a 500 carrying the partial counts.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name, ok := cronRoutes[mux.Vars(r)["job"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown job")
		return
	}
	run, ok := h.jobs[name]
	if !ok {
		writeError(w, http.StatusNotFound, "Job not configured")
		return
	}

	stats, runErr := run(r.Context())
	body, err := flatten(stats)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	status := http.StatusOK
	body["success"] = runErr == nil
	if runErr != nil {
		slog.Error("cron job failed", "job", name, "error", runErr.Error())
		body["error"] = runErr.Error()
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, body)
}

// flatten turns a stats struct into a JSON object map.
func flatten(stats any) (map[string]any, error) {
	body := map[string]any{}
	if stats == nil {
		return body, nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}
