package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fosdem/framexform/lib/pipeline"
)

// @Summary	List the configured jobs
// @Router		/api/jobs [get]
// @Tags		jobs
// @Produce	json
// @Success	200
func (a *Api) listJobs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(a.pipeline.JobNames())
	if err != nil {
		http.Error(w, fmt.Sprintf("couldn't encode jobs: %s", err), http.StatusInternalServerError)
		return
	}
}

// @Summary	Run a job once and describe its output
// @Router		/api/jobs/{job} [post]
// @Tags		jobs
// @Param		job	path	string	true	"Name of the job to run"
// @Produce	json
// @Success	200
// @Failure	404	{string}	string	"The job does not exist"
// @Failure	422	{string}	string	"The conversion failed"
// @Failure	503	{string}	string	"The server is shutting down"
func (a *Api) runJob(w http.ResponseWriter, req *http.Request) {
	res, ok := a.run(w, req.PathValue("job"))
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Run-Id", res.ID)
	err := json.NewEncoder(w).Encode(res)
	if err != nil {
		a.log.Warn("could not write response", "err", err)
	}
}

func (a *Api) run(w http.ResponseWriter, name string) (*pipeline.Result, bool) {
	res, err := a.pipeline.Run(name)
	if errors.Is(err, pipeline.ErrNoSuchJob) {
		http.Error(w, "Job does not exist", http.StatusNotFound)
		return nil, false
	}
	if errors.Is(err, pipeline.ErrClosed) {
		http.Error(w, "Shutting down", http.StatusServiceUnavailable)
		return nil, false
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("could not run job: %s", err), http.StatusUnprocessableEntity)
		return nil, false
	}
	return res, true
}
