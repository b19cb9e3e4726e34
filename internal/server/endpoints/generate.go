package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quorumtitle/abstractor/internal/abstract"
	"github.com/quorumtitle/abstractor/internal/api"
	"github.com/quorumtitle/abstractor/internal/render"
	"github.com/quorumtitle/abstractor/internal/svcctx"
	"github.com/quorumtitle/abstractor/internal/validate"
)

// GenerateErrorResponse is returned when validation blocks generation.
type GenerateErrorResponse struct {
	Error            string   `json:"error"`
	ValidationErrors []string `json:"validation_errors"`
}

// GenerateEndpoint handles POST /api/abstract/generate. Generation is gated
// server side: fields are re-validated and any error refuses the request,
// regardless of what the caller claims.
type GenerateEndpoint struct{}

var _ api.Endpoint = (*GenerateEndpoint)(nil)

func (e *GenerateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/abstract/generate", e.handler
}

func (e *GenerateEndpoint) RequiresInit() bool { return true }

func (e *GenerateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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
	if len(result.Errors) > 0 {
		writeJSON(w, http.StatusBadRequest, GenerateErrorResponse{
			Error:            "Cannot generate - unresolved validation errors",
			ValidationErrors: result.Errors,
		})
		return
	}

	template, err := loadTemplate(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc, err := render.Docx(template, req.Fields)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to generate document: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.Filename(req.Fields)))
	w.Write(doc)
}

// loadTemplate resolves the DOCX template from config, falling back to
// template.docx in the abstractor home directory.
func loadTemplate(r *http.Request) ([]byte, error) {
	path := ""
	if mgr := svcctx.ConfigFrom(r.Context()); mgr != nil {
		path = mgr.Get().Render.TemplatePath
	}
	if path == "" {
		h := svcctx.HomeFrom(r.Context())
		if h == nil {
			return nil, fmt.Errorf("template path not configured")
		}
		path = filepath.Join(h.Path(), "template.docx")
	}

	template, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template file not found: %s", path)
	}
	return template, nil
}

func (e *GenerateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "generate <fields.json>",
		Short: "Generate the File Abstract document from validated fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := readFieldsFile(args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			data, err := client.PostBytes(cmd.Context(), "/api/abstract/generate", ValidateRequest{Fields: fields})
			if err != nil {
				return err
			}
			if output == "" {
				output = render.Filename(fields)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Args = cobra.ExactArgs(1)
	return cmd
}

// readFieldsFile loads a FileAbstract from a JSON file on disk.
func readFieldsFile(path string) (*abstract.FileAbstract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var fields abstract.FileAbstract
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid fields file %s: %w", path, err)
	}
	return &fields, nil
}
