// Package jobs tracks asynchronous abstract extraction runs in memory.
package jobs

import (
	"sync"
	"time"

	"github.com/quorumtitle/abstractor/internal/abstract"
	"github.com/quorumtitle/abstractor/internal/extract"
	"github.com/quorumtitle/abstractor/internal/validate"
)

// Status represents the current state of a job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// PipelineInfo carries per-run diagnostics exposed alongside the result.
type PipelineInfo struct {
	ChunkResults          []extract.ChunkResult `json:"chunk_results,omitempty"`
	RepairRan             bool                  `json:"repair_ran"`
	RepairFieldsAttempted []string              `json:"repair_fields_attempted,omitempty"`
	RepairFieldsFixed     int                   `json:"repair_fields_fixed"`
	Errors                []string              `json:"errors,omitempty"`
}

// Job is one extraction run. All state transitions go through the mutex;
// the pipeline goroutine and HTTP handlers touch jobs concurrently.
type Job struct {
	mu sync.Mutex

	id        string
	createdAt time.Time

	status   Status
	progress int
	stage    string
	errMsg   string

	cancelled bool

	fileCount int
	fileNames []string

	result      *abstract.FileAbstract
	validation  *validate.Result
	pipeline    *PipelineInfo
	canGenerate bool

	fundingPDF     []byte
	entityBorrower bool

	manualSSN string
	manualDOB string
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// CreatedAt returns when the job was registered.
func (j *Job) CreatedAt() time.Time { return j.createdAt }

// SetStage records the current pipeline stage and progress percentage.
func (j *Job) SetStage(stage string, progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stage = stage
	j.progress = progress
}

// SetProgress updates progress without changing the stage. Progress never
// moves backwards: extraction workers report out of completion order, so a
// slow chunk may publish a stale percentage after a faster sibling.
func (j *Job) SetProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if progress > j.progress {
		j.progress = progress
	}
}

// Cancel flags the job for cancellation. Workers poll Cancelled between
// steps; the flag does not interrupt an in-flight provider call.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelled = true
}

// Cancelled reports whether cancellation was requested.
func (j *Job) Cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// MarkCancelled transitions the job to its terminal cancelled state.
func (j *Job) MarkCancelled() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusCancelled
	j.stage = "Cancelled"
	if j.errMsg == "" {
		j.errMsg = "Job cancelled by user"
	}
}

// Fail transitions the job to failed with the given message.
func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusFailed
	j.errMsg = msg
	j.stage = "Failed"
}

// Complete records the finished abstract and its validation outcome.
func (j *Job) Complete(result *abstract.FileAbstract, validation *validate.Result, pipeline *PipelineInfo) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusCompleted
	j.progress = 100
	j.stage = "Complete"
	j.result = result
	j.validation = validation
	j.pipeline = pipeline
	j.canGenerate = validation != nil && validation.CanGenerate()
}

// SetEntityBorrower marks the grantor as a corporate entity, which has no
// SSN or DOB to collect.
func (j *Job) SetEntityBorrower(v bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entityBorrower = v
}

// EntityBorrower reports whether the grantor was detected as an entity.
func (j *Job) EntityBorrower() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entityBorrower
}

// SetFundingPDF stores the funding package bytes for preview and generation.
func (j *Job) SetFundingPDF(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fundingPDF = data
}

// FundingPDF returns the stored funding package, or nil.
func (j *Job) FundingPDF() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fundingPDF
}

// SubmitIdentity stores the manually collected SSN and DOB. The pipeline's
// identity wait observes these via Identity.
func (j *Job) SubmitIdentity(ssn, dob string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.manualSSN = ssn
	j.manualDOB = dob
}

// Identity returns the manually submitted SSN and DOB, empty if none yet.
func (j *Job) Identity() (ssn, dob string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.manualSSN, j.manualDOB
}

// Result returns the completed abstract and validation, nil until done.
func (j *Job) Result() (*abstract.FileAbstract, *validate.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.validation
}

// CanGenerate reports whether the finished abstract passed validation
// cleanly enough to allow document generation.
func (j *Job) CanGenerate() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.canGenerate
}

// Status returns the job's current status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Snapshot is a point-in-time, JSON-ready view of a job.
type Snapshot struct {
	JobID       string                 `json:"job_id"`
	Status      Status                 `json:"status"`
	Progress    int                    `json:"progress"`
	Stage       string                 `json:"stage"`
	Error       string                 `json:"error,omitempty"`
	FileCount   int                    `json:"file_count,omitempty"`
	FileNames   []string               `json:"file_names,omitempty"`
	Result      *abstract.FileAbstract `json:"result,omitempty"`
	Validation  *validate.Result       `json:"validation,omitempty"`
	Pipeline    *PipelineInfo          `json:"pipeline,omitempty"`
	CanGenerate bool                   `json:"can_generate"`
	HasFunding  bool                   `json:"has_funding_pdf"`
	Entity      bool                   `json:"entity_borrower"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Snapshot copies the job state under the lock.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		JobID:       j.id,
		Status:      j.status,
		Progress:    j.progress,
		Stage:       j.stage,
		Error:       j.errMsg,
		FileCount:   j.fileCount,
		FileNames:   append([]string(nil), j.fileNames...),
		Result:      j.result,
		Validation:  j.validation,
		Pipeline:    j.pipeline,
		CanGenerate: j.canGenerate,
		HasFunding:  len(j.fundingPDF) > 0,
		Entity:      j.entityBorrower,
		CreatedAt:   j.createdAt,
	}
}
