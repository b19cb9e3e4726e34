package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quorumtitle/abstractor/internal/api"
)

// IdentityRequest carries the manually collected identity fields.
type IdentityRequest struct {
	SSN string `json:"ssn"`
	DOB string `json:"dob"`
}

// IdentityResponse acknowledges the submission.
type IdentityResponse struct {
	Success bool `json:"success"`
}

// SubmitIdentityEndpoint handles POST /api/abstract/jobs/{jobID}/identity.
// SSN and DOB are never extracted from documents; they arrive here while
// the pipeline waits.
type SubmitIdentityEndpoint struct{}

var _ api.Endpoint = (*SubmitIdentityEndpoint)(nil)

func (e *SubmitIdentityEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/abstract/jobs/{jobID}/identity", e.handler
}

func (e *SubmitIdentityEndpoint) RequiresInit() bool { return true }

func (e *SubmitIdentityEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := jobFrom(w, r)
	if !ok {
		return
	}

	var req IdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SSN) == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}
	if strings.TrimSpace(req.DOB) == "" {
		writeError(w, http.StatusBadRequest, "Date of birth is required")
		return
	}

	job.SubmitIdentity(strings.TrimSpace(req.SSN), strings.TrimSpace(req.DOB))
	writeJSON(w, http.StatusOK, IdentityResponse{Success: true})
}

func (e *SubmitIdentityEndpoint) Command(getServerURL func() string) *cobra.Command {
	var ssn, dob string
	cmd := &cobra.Command{
		Use:   "identity <job-id>",
		Short: "Submit SSN and date of birth for a waiting job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp IdentityResponse
			err := client.Post(cmd.Context(), "/api/abstract/jobs/"+args[0]+"/identity",
				IdentityRequest{SSN: ssn, DOB: dob}, &resp)
			if err != nil {
				return err
			}
			fmt.Println("Identity submitted")
			return nil
		},
	}
	cmd.Flags().StringVar(&ssn, "ssn", "", "Government ID (SSN, license, or passport)")
	cmd.Flags().StringVar(&dob, "dob", "", "Date of birth")
	cmd.MarkFlagRequired("ssn")
	cmd.MarkFlagRequired("dob")
	return cmd
}
