// Package pipeline drives a full extraction run: classify uploads, parse the
// ServiceLink listing deterministically, chunk and extract the rest with AI,
// then validate, repair, and wait for manual identity input.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/quorumtitle/abstractor/internal/abstract"
	"github.com/quorumtitle/abstractor/internal/chunker"
	"github.com/quorumtitle/abstractor/internal/extract"
	"github.com/quorumtitle/abstractor/internal/jobs"
	"github.com/quorumtitle/abstractor/internal/metrics"
	"github.com/quorumtitle/abstractor/internal/providers"
	"github.com/quorumtitle/abstractor/internal/servicelink"
	"github.com/quorumtitle/abstractor/internal/validate"
)

// File is one uploaded PDF.
type File struct {
	Name string
	Data []byte
}

// Config tunes a runner. Zero values fall back to defaults.
type Config struct {
	// ChunkMaxPages is the page count above which a PDF gets split.
	ChunkMaxPages int
	// Concurrency is the extraction worker count.
	Concurrency int
	// IdentityWait bounds the manual SSN/DOB rendezvous.
	IdentityWait time.Duration
	// IdentityPoll is how often the rendezvous re-checks the job.
	IdentityPoll time.Duration
}

func (c Config) withDefaults() Config {
	if c.ChunkMaxPages <= 0 {
		c.ChunkMaxPages = chunker.DefaultMaxPages
	}
	if c.Concurrency <= 0 {
		c.Concurrency = extract.DefaultConcurrency
	}
	if c.IdentityWait <= 0 {
		c.IdentityWait = 30 * time.Minute
	}
	if c.IdentityPoll <= 0 {
		c.IdentityPoll = 500 * time.Millisecond
	}
	return c
}

// Runner executes extraction runs against a document provider.
type Runner struct {
	client providers.DocumentClient
	cfg    Config
	logger *slog.Logger

	// Metrics, when set, receives one record per provider call.
	Metrics *metrics.Recorder

	// extractText converts a ServiceLink PDF to text. Swappable in tests.
	extractText func(ctx context.Context, pdf []byte) (string, error)

	// split chunks a PDF. Swappable in tests.
	split func(data []byte, filename string, maxPages int) ([]chunker.Chunk, error)
}

// NewRunner builds a runner around a provider client.
func NewRunner(client providers.DocumentClient, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		client:      client,
		cfg:         cfg.withDefaults(),
		logger:      logger,
		extractText: servicelink.ExtractText,
		split:       chunker.Split,
	}
}

// Run processes an upload set and drives the job to a terminal state. It is
// meant to run in its own goroutine; all outcomes land on the job.
func (r *Runner) Run(ctx context.Context, job *jobs.Job, files []File) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("pipeline panic", "job", job.ID(), "panic", rec)
			job.Fail(fmt.Sprintf("internal error: %v", rec))
		}
	}()

	if len(files) == 0 {
		job.Fail("no PDF files in upload")
		return
	}

	// Cancellation propagates to in-flight provider calls.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.watchCancel(ctx, cancel, job)

	a := abstract.New()
	merger := &abstract.Merger{}
	var pipelineErrors []string

	// The funding package stays on the job for preview and generation.
	if funding := findFundingPackage(files); funding != nil {
		job.SetFundingPDF(funding.Data)
	}

	// ServiceLink listings are structured text and never go through AI.
	job.SetStage("Splitting", 3)
	var listing *File
	var extractable []File
	for i := range files {
		if servicelink.IsListingFile(files[i].Name) {
			listing = &files[i]
		} else {
			extractable = append(extractable, files[i])
		}
	}

	var countyMap map[string]servicelink.CountyData
	if listing != nil {
		text, err := r.extractText(ctx, listing.Data)
		if err != nil {
			r.logger.Error("servicelink text extraction failed", "job", job.ID(), "file", listing.Name, "error", err)
		} else {
			countyMap = servicelink.ParseByCounty(text)
		}
	}

	var allChunks []chunker.Chunk
	for _, f := range extractable {
		chunks, err := r.split(f.Data, f.Name, r.cfg.ChunkMaxPages)
		if err != nil {
			r.logger.Error("pdf split failed", "job", job.ID(), "file", f.Name, "error", err)
			pipelineErrors = append(pipelineErrors, fmt.Sprintf("Could not split %q: %v", f.Name, err))
			continue
		}
		allChunks = append(allChunks, chunks...)
	}

	if r.checkCancelled(job) {
		return
	}
	job.SetStage("Extracting", 3)

	orch := extract.NewOrchestrator(r.client, merger, r.cfg.Concurrency, r.logger)
	orch.Metrics = r.Metrics
	orch.JobID = job.ID()
	orch.OnProgress = func(done, total int) {
		job.SetProgress(3 + int(math.Round(float64(done)/float64(total)*75)))
	}
	chunkResults, err := orch.Run(ctx, allChunks, a)
	if err != nil {
		if job.Cancelled() {
			job.MarkCancelled()
		} else {
			job.Fail(fmt.Sprintf("extraction aborted: %v", err))
		}
		return
	}
	if r.checkCancelled(job) {
		return
	}

	chunksWithData := 0
	for _, cr := range chunkResults {
		if cr.FieldsFound > 0 {
			chunksWithData++
		}
	}

	// Post-extraction hardening.
	a.ApplyLegalSplit()
	pipelineErrors = append(pipelineErrors, r.applyServiceLink(a, listing != nil, countyMap)...)

	// Without an Assignment of DOT the original grantee still holds the lien.
	if a.CurrentGrantee == "" && a.OriginalGrantee != "" {
		a.CurrentGrantee = a.OriginalGrantee
	}

	// Corporate grantors have no SSN or DOB; clients use this to skip the
	// identity prompt.
	job.SetEntityBorrower(abstract.IsEntityBorrower(a.GrantorName))

	structuralErrors := validate.Structural(a)

	if r.checkCancelled(job) {
		return
	}
	job.SetStage("Validating", 80)
	v := validate.Abstract(a, chunksWithData)
	v.AddErrors(structuralErrors...)
	v.AddErrors(pipelineErrors...)

	// Repair pass.
	pipeline := &jobs.PipelineInfo{ChunkResults: chunkResults, Errors: pipelineErrors}
	if r.checkCancelled(job) {
		return
	}
	job.SetProgress(83)
	if len(v.Errors) > 0 || len(v.MissingFields) > 0 {
		fieldsToRepair := extract.IdentifyRepairFields(v)
		if len(fieldsToRepair) > 0 {
			job.SetStage("Repairing", 85)
			pipeline.RepairRan = true
			pipeline.RepairFieldsAttempted = fieldsToRepair

			relevant := extract.RelevantChunks(chunkResults, allChunks)
			orch.OnProgress = func(done, total int) {
				job.SetProgress(85 + int(math.Round(float64(done)/float64(total)*10)))
			}
			fixed, err := orch.RunRepair(ctx, relevant, a, fieldsToRepair, v.Errors)
			if err != nil {
				job.MarkCancelled()
				return
			}
			pipeline.RepairFieldsFixed = fixed

			job.SetProgress(96)
			v = validate.Abstract(a, chunksWithData)
		}
	}

	// Manual identity rendezvous. Identity input must never mask a
	// structural or ServiceLink failure.
	if structuralPassed(v) && len(job.FundingPDF()) > 0 {
		if !r.waitForIdentity(ctx, job, a) {
			if job.Cancelled() {
				job.MarkCancelled()
				return
			}
			r.logger.Warn("identity wait expired", "job", job.ID())
		}
	}

	// Final validation after the identity merge. Structural and pipeline
	// findings persist across re-validation.
	v = validate.Abstract(a, chunksWithData)
	v.AddErrors(validate.Structural(a)...)
	v.AddErrors(pipelineErrors...)

	if r.checkCancelled(job) {
		return
	}
	job.Complete(a, v, pipeline)
	r.logger.Info("pipeline complete", "job", job.ID(),
		"confidence", v.Confidence, "errors", len(v.Errors), "warnings", len(v.Warnings))
}

// applyServiceLink resolves the extracted county against the parsed listing.
// A match overrides all five listing fields outright; a miss empties them
// and records a pipeline error.
func (r *Runner) applyServiceLink(a *abstract.FileAbstract, listingPresent bool, countyMap map[string]servicelink.CountyData) []string {
	if countyMap == nil {
		if listingPresent {
			return []string{"ServiceLink PDF detected but text extraction/parsing failed. PDF may be image-based."}
		}
		return nil
	}
	if a.County == "" {
		return nil
	}

	normalized := servicelink.NormalizeCounty(a.County)
	if data, ok := countyMap[normalized]; ok {
		a.ServiceLinkTrustees = data.Trustees
		a.SaleHours = data.SaleHours
		a.CountySeat = data.CountySeat
		a.SaleLocation = data.SaleLocation
		a.ServiceLinkDate = data.Date
		return nil
	}

	a.ServiceLinkTrustees = []string{}
	a.SaleHours = ""
	a.CountySeat = ""
	a.SaleLocation = ""
	a.ServiceLinkDate = ""

	available := make([]string, 0, len(countyMap))
	for k := range countyMap {
		available = append(available, k)
	}
	sort.Strings(available)
	return []string{fmt.Sprintf("ServiceLink county match failed: %q (normalized: %q) not found. Available: %s",
		a.County, normalized, strings.Join(available, ", "))}
}

// waitForIdentity blocks until manual SSN and DOB arrive, the wait expires,
// or the job is cancelled. Returns false on expiry or cancellation. Values
// already extracted from documents short-circuit the wait.
func (r *Runner) waitForIdentity(ctx context.Context, job *jobs.Job, a *abstract.FileAbstract) bool {
	mergeManual := func() {
		ssn, dob := job.Identity()
		if ssn != "" && a.SSN == "" {
			a.SSN = ssn
		}
		if dob != "" && a.DOB == "" {
			a.DOB = dob
		}
	}

	ssn, dob := job.Identity()
	if (a.SSN != "" || ssn != "") && (a.DOB != "" || dob != "") {
		mergeManual()
		return true
	}

	job.SetStage("Waiting for ID input", 97)

	deadline := time.Now().Add(r.cfg.IdentityWait)
	ticker := time.NewTicker(r.cfg.IdentityPoll)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		if job.Cancelled() {
			return false
		}
		ssn, dob = job.Identity()
		if ssn != "" && dob != "" {
			mergeManual()
			return true
		}
	}
	return false
}

// structuralPassed reports whether validation is free of structural and
// ServiceLink failures.
func structuralPassed(v *validate.Result) bool {
	for _, e := range v.Errors {
		if strings.Contains(e, "STRUCTURAL ERROR") || strings.Contains(e, "ServiceLink") {
			return false
		}
	}
	return true
}

func (r *Runner) checkCancelled(job *jobs.Job) bool {
	if job.Cancelled() {
		job.MarkCancelled()
		return true
	}
	return false
}

// watchCancel cancels the run context once the job's cancel flag is set.
func (r *Runner) watchCancel(ctx context.Context, cancel context.CancelFunc, job *jobs.Job) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if job.Cancelled() {
				cancel()
				return
			}
		}
	}
}

func findFundingPackage(files []File) *File {
	for i := range files {
		lower := strings.ToLower(files[i].Name)
		if strings.Contains(lower, "fund") || strings.Contains(lower, "pkg") || strings.Contains(lower, "package") {
			return &files[i]
		}
	}
	return nil
}
