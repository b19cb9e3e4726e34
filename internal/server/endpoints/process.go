package endpoints

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quorumtitle/abstractor/internal/api"
	"github.com/quorumtitle/abstractor/internal/pipeline"
	"github.com/quorumtitle/abstractor/internal/svcctx"
)

// ProcessResponse acknowledges an accepted upload.
type ProcessResponse struct {
	JobID string `json:"job_id"`
}

// ProcessEndpoint handles POST /api/abstract/process with multipart uploads.
// It registers a job, kicks off the pipeline in the background, and returns
// the job ID immediately.
type ProcessEndpoint struct{}

var _ api.Endpoint = (*ProcessEndpoint)(nil)

func (e *ProcessEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/abstract/process", e.handler
}

func (e *ProcessEndpoint) RequiresInit() bool { return true }

func (e *ProcessEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 100 << 20 // 100MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads := r.MultipartForm.File["documents"]
	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	if len(uploads) > 10 {
		writeError(w, http.StatusBadRequest, "too many files (max 10)")
		return
	}

	var files []pipeline.File
	var names []string
	for _, fh := range uploads {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", fh.Filename))
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read %s: %v", fh.Filename, err))
			return
		}
		files = append(files, pipeline.File{Name: fh.Filename, Data: data})
		names = append(names, fh.Filename)
	}

	svc := svcctx.ServicesFrom(r.Context())
	if svc == nil || svc.Jobs == nil || svc.Registry == nil {
		writeError(w, http.StatusServiceUnavailable, "services not initialized")
		return
	}

	client, err := svc.Registry.Default()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("no extraction provider available: %v", err))
		return
	}

	cfg := pipeline.Config{}
	if svc.Config != nil {
		p := svc.Config.Get().Pipeline
		cfg.ChunkMaxPages = p.ChunkMaxPages
		cfg.Concurrency = p.Concurrency
		cfg.IdentityWait = time.Duration(p.IdentityWaitMinutes) * time.Minute
	}

	job := svc.Jobs.Create(len(files), names)
	runner := pipeline.NewRunner(client, cfg, svc.Logger)
	runner.Metrics = svc.Metrics

	// The run outlives the request.
	go runner.Run(context.Background(), job, files)

	writeJSON(w, http.StatusAccepted, ProcessResponse{JobID: job.ID()})
}

func (e *ProcessEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "process <file.pdf> [file.pdf...]",
		Short: "Upload PDFs and start an extraction job",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProcessResponse
			if err := client.PostFiles(cmd.Context(), "/api/abstract/process", args, nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Job started: %s\n", resp.JobID)
			return nil
		},
	}
}
