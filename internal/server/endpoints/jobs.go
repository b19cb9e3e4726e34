package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quorumtitle/abstractor/internal/api"
	"github.com/quorumtitle/abstractor/internal/jobs"
	"github.com/quorumtitle/abstractor/internal/svcctx"
)

// jobFrom resolves the path's job ID against the registry, writing a 404 on
// a miss.
func jobFrom(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	registry := svcctx.JobsFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusServiceUnavailable, "job registry not initialized")
		return nil, false
	}
	job, ok := registry.Get(r.PathValue("jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return nil, false
	}
	return job, true
}

// JobStatusResponse is the polling view of a running job.
type JobStatusResponse struct {
	Status     jobs.Status `json:"status"`
	Progress   int         `json:"progress"`
	Stage      string      `json:"stage"`
	HasFunding bool        `json:"has_funding_pdf"`
	Entity     bool        `json:"entity_borrower"`
	Error      string      `json:"error,omitempty"`
}

// JobStatusEndpoint handles GET /api/abstract/jobs/{jobID}/status.
type JobStatusEndpoint struct{}

var _ api.Endpoint = (*JobStatusEndpoint)(nil)

func (e *JobStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/abstract/jobs/{jobID}/status", e.handler
}

func (e *JobStatusEndpoint) RequiresInit() bool { return true }

func (e *JobStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := jobFrom(w, r)
	if !ok {
		return
	}
	snap := job.Snapshot()

	resp := JobStatusResponse{
		Status:     snap.Status,
		Progress:   snap.Progress,
		Stage:      snap.Stage,
		HasFunding: snap.HasFunding,
		Entity:     snap.Entity,
	}
	if snap.Status == jobs.StatusFailed || snap.Status == jobs.StatusCancelled {
		resp.Error = snap.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *JobStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Poll a job's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp JobStatusResponse
			if err := client.Get(cmd.Context(), "/api/abstract/jobs/"+args[0]+"/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// JobResultResponse is the completed job payload.
type JobResultResponse struct {
	Success     bool   `json:"success"`
	Fields      any    `json:"fields"`
	Validation  any    `json:"validation"`
	Pipeline    any    `json:"pipeline,omitempty"`
	CanGenerate bool   `json:"can_generate"`
	FileCount   int    `json:"file_count"`
	FileNames   []string `json:"file_names"`
}

// JobResultEndpoint handles GET /api/abstract/jobs/{jobID}/result.
type JobResultEndpoint struct{}

var _ api.Endpoint = (*JobResultEndpoint)(nil)

func (e *JobResultEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/abstract/jobs/{jobID}/result", e.handler
}

func (e *JobResultEndpoint) RequiresInit() bool { return true }

func (e *JobResultEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := jobFrom(w, r)
	if !ok {
		return
	}
	snap := job.Snapshot()
	if snap.Status != jobs.StatusCompleted {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Job not completed yet (status: %s)", snap.Status))
		return
	}

	writeJSON(w, http.StatusOK, JobResultResponse{
		Success:     true,
		Fields:      snap.Result,
		Validation:  snap.Validation,
		Pipeline:    snap.Pipeline,
		CanGenerate: snap.CanGenerate,
		FileCount:   snap.FileCount,
		FileNames:   snap.FileNames,
	})
}

func (e *JobResultEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "result <job-id>",
		Short: "Fetch a completed job's File Abstract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp JobResultResponse
			if err := client.Get(cmd.Context(), "/api/abstract/jobs/"+args[0]+"/result", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CancelResponse acknowledges a cancellation.
type CancelResponse struct {
	Success bool `json:"success"`
}

// CancelJobEndpoint handles POST /api/abstract/jobs/{jobID}/cancel.
type CancelJobEndpoint struct{}

var _ api.Endpoint = (*CancelJobEndpoint)(nil)

func (e *CancelJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/abstract/jobs/{jobID}/cancel", e.handler
}

func (e *CancelJobEndpoint) RequiresInit() bool { return true }

func (e *CancelJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := jobFrom(w, r)
	if !ok {
		return
	}
	if job.Status() != jobs.StatusRunning {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Job is not running (status: %s)", job.Status()))
		return
	}
	job.Cancel()
	job.MarkCancelled()
	writeJSON(w, http.StatusOK, CancelResponse{Success: true})
}

func (e *CancelJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CancelResponse
			if err := client.Post(cmd.Context(), "/api/abstract/jobs/"+args[0]+"/cancel", nil, &resp); err != nil {
				return err
			}
			fmt.Println("Job cancelled")
			return nil
		},
	}
}
