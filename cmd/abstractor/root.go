package main

import (
	"github.com/spf13/cobra"

	"github.com/quorumtitle/abstractor/internal/api"
	"github.com/quorumtitle/abstractor/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "abstractor",
	Short: "Foreclosure File Abstract extraction from PDF document batches",
	Long: `Abstractor turns a batch of Texas nonjudicial foreclosure PDFs into a
single validated File Abstract and a filled DOCX document.

The pipeline includes:
  - PDF splitting into page-bounded chunks
  - Concurrent LLM extraction with deterministic merging
  - ServiceLink substitute-trustee table parsing (no LLM involved)
  - Validation with confidence scoring and a targeted repair pass
  - Gated DOCX generation from a placeholder template`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.abstractor/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "abstractor home directory (default: ~/.abstractor)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
