package endpoints

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/quorumtitle/abstractor/internal/api"
)

// FundingPDFEndpoint handles GET /api/abstract/jobs/{jobID}/funding-pdf,
// serving the detected funding package for user review.
type FundingPDFEndpoint struct{}

var _ api.Endpoint = (*FundingPDFEndpoint)(nil)

func (e *FundingPDFEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/abstract/jobs/{jobID}/funding-pdf", e.handler
}

func (e *FundingPDFEndpoint) RequiresInit() bool { return true }

func (e *FundingPDFEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := jobFrom(w, r)
	if !ok {
		return
	}
	pdf := job.FundingPDF()
	if len(pdf) == 0 {
		writeError(w, http.StatusNotFound, "Funding PDF not available")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="funding-package.pdf"`)
	w.Write(pdf)
}

func (e *FundingPDFEndpoint) Command(getServerURL func() string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "funding-pdf <job-id>",
		Short: "Download a job's funding package PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, err := client.GetBytes(cmd.Context(), "/api/abstract/jobs/"+args[0]+"/funding-pdf")
			if err != nil {
				return err
			}
			if output == "" {
				output = "funding-package.pdf"
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}
