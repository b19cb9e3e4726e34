package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quorumtitle/abstractor/internal/api"
	"github.com/quorumtitle/abstractor/internal/metrics"
	"github.com/quorumtitle/abstractor/internal/svcctx"
)

// MetricsResponse reports aggregated provider usage since server start.
type MetricsResponse struct {
	Summary metrics.Summary  `json:"summary"`
	JobIDs  []string         `json:"job_ids"`
	Records []metrics.Metric `json:"records,omitempty"`
}

// MetricsEndpoint handles GET /api/metrics. With ?job_id= the raw records
// for that job are included.
type MetricsEndpoint struct{}

var _ api.Endpoint = (*MetricsEndpoint)(nil)

func (e *MetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics", e.handler
}

func (e *MetricsEndpoint) RequiresInit() bool { return true }

func (e *MetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rec := svcctx.MetricsFrom(r.Context())
	if rec == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}

	resp := MetricsResponse{
		Summary: rec.Summary(),
		JobIDs:  rec.JobIDs(),
	}
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		resp.Records = rec.ForJob(jobID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *MetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show provider usage and token totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/metrics"
			if jobID != "" {
				path += "?job_id=" + jobID
			}
			var resp MetricsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "Include raw records for this job ID")
	return cmd
}
