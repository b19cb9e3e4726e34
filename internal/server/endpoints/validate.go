package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quorumtitle/abstractor/internal/abstract"
	"github.com/quorumtitle/abstractor/internal/api"
	"github.com/quorumtitle/abstractor/internal/validate"
)

// ValidateRequest wraps user-edited abstract fields for re-validation.
type ValidateRequest struct {
	Fields *abstract.FileAbstract `json:"fields"`
}

// ValidateResponse reports the validation outcome.
type ValidateResponse struct {
	Success     bool             `json:"success"`
	Validation  *validate.Result `json:"validation"`
	CanGenerate bool             `json:"can_generate"`
}

// ValidateOnlyEndpoint handles POST /api/abstract/validate. The frontend
// calls this after manual edits, before offering generation.
type ValidateOnlyEndpoint struct{}

var _ api.Endpoint = (*ValidateOnlyEndpoint)(nil)

func (e *ValidateOnlyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/abstract/validate", e.handler
}

func (e *ValidateOnlyEndpoint) RequiresInit() bool { return true }

func (e *ValidateOnlyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Fields == nil {
		writeError(w, http.StatusBadRequest, "No fields provided")
		return
	}

	result := validate.Abstract(req.Fields, 0)
	writeJSON(w, http.StatusOK, ValidateResponse{
		Success:     true,
		Validation:  result,
		CanGenerate: result.CanGenerate(),
	})
}

func (e *ValidateOnlyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <fields.json>",
		Short: "Validate edited File Abstract fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := readFieldsFile(args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp ValidateResponse
			if err := client.Post(cmd.Context(), "/api/abstract/validate", ValidateRequest{Fields: fields}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
