package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/quorumtitle/abstractor/internal/chunker"
	"github.com/quorumtitle/abstractor/internal/jobs"
	"github.com/quorumtitle/abstractor/internal/providers"
)

const listingText = `ServiceLink Sub-Trustee Listing Updated 03-15-2025 ` +
	`Collin 10am-1pm Jane Smith, Bob Jones, The sale will occur at the Collin County Courthouse, McKinney, Texas`

// fullResponse is a first-pass extraction that satisfies every check.
const fullResponse = `{
	"grantor_name": "Acme Holdings LLC",
	"grantor_rep": "John Q. Member",
	"grantor_rep_title": "Managing Member",
	"common_address": "123 Main St, McKinney, TX 75069",
	"county": "Collin County, Texas",
	"ein": "12-3456789",
	"note_date": "January 15, 2020",
	"note_amount": "$250,000.00",
	"note_maturity_date": "January 15, 2050",
	"interest_rate": "6.25%",
	"loan_servicer": "Servicing Corp of Texas",
	"dot_effective_date": "January 15, 2020",
	"dot_recording_date": "January 22, 2020",
	"dot_instrument_number": "20200122000123456",
	"trustee": "Jane Smith",
	"original_grantee": "First National Bank",
	"legal_description_recording": "Lot 4, Block B, Sunset Addition, Collin County, Texas, per the Smith Survey",
	"legal_description_metes_bounds": "BEGINNING AT a point on the north line of Main Street; THENCE north 100 feet"
}`

func newTestRunner(t *testing.T, client providers.DocumentClient) *Runner {
	t.Helper()
	r := NewRunner(client, Config{
		IdentityWait: 200 * time.Millisecond,
		IdentityPoll: 10 * time.Millisecond,
	}, nil)
	r.extractText = func(ctx context.Context, pdf []byte) (string, error) {
		return listingText, nil
	}
	r.split = func(data []byte, filename string, maxPages int) ([]chunker.Chunk, error) {
		return []chunker.Chunk{
			{Index: 0, Total: 1, StartPage: 1, EndPage: 4, Filename: filename, Data: data},
		}, nil
	}
	return r
}

func testFiles() []File {
	return []File{
		{Name: "Recorded DOT.pdf", Data: []byte("%PDF-dot")},
		{Name: "ServiceLink Listing.pdf", Data: []byte("%PDF-sl")},
	}
}

func runToCompletion(t *testing.T, r *Runner, job *jobs.Job, files []File) jobs.Snapshot {
	t.Helper()
	r.Run(context.Background(), job, files)
	snap := job.Snapshot()
	if snap.Status != jobs.StatusCompleted {
		t.Fatalf("job status = %q (error %q), want completed", snap.Status, snap.Error)
	}
	return snap
}

func TestRunHappyPath(t *testing.T) {
	client := providers.NewMockClient()
	client.ResponseText = fullResponse

	reg := jobs.NewRegistry(time.Hour, time.Hour, nil)
	defer reg.Close()
	job := reg.Create(2, []string{"Recorded DOT.pdf", "ServiceLink Listing.pdf"})

	r := newTestRunner(t, client)
	snap := runToCompletion(t, r, job, testFiles())

	a := snap.Result
	if a == nil {
		t.Fatal("no result on completed job")
	}

	// ServiceLink data comes from the deterministic parser, not the AI.
	if len(a.ServiceLinkTrustees) != 2 || a.ServiceLinkTrustees[0] != "Jane Smith" {
		t.Errorf("servicelink_trustees = %v", a.ServiceLinkTrustees)
	}
	if a.CountySeat != "McKinney" || a.SaleHours != "10am-1pm" {
		t.Errorf("county data = %q / %q", a.CountySeat, a.SaleHours)
	}
	if !strings.HasPrefix(a.SaleLocation, "The sale will occur") {
		t.Errorf("sale_location = %q", a.SaleLocation)
	}

	// No Assignment of DOT was found, so the original grantee carries over.
	if a.CurrentGrantee != "First National Bank" {
		t.Errorf("current_grantee = %q", a.CurrentGrantee)
	}

	if snap.Validation == nil || len(snap.Validation.Errors) != 0 {
		t.Errorf("validation errors: %+v", snap.Validation)
	}
	if !snap.CanGenerate {
		t.Error("expected can_generate true")
	}
	if snap.Progress != 100 || snap.Stage != "Complete" {
		t.Errorf("progress/stage = %d/%q", snap.Progress, snap.Stage)
	}
}

func TestRunCountyMismatchEmptiesListingFields(t *testing.T) {
	client := providers.NewMockClient()
	client.ResponseText = strings.Replace(fullResponse, "Collin County, Texas", "Harris County, Texas", 1)

	reg := jobs.NewRegistry(time.Hour, time.Hour, nil)
	defer reg.Close()
	job := reg.Create(2, nil)

	r := newTestRunner(t, client)
	r.Run(context.Background(), job, testFiles())
	snap := job.Snapshot()

	if snap.Status != jobs.StatusCompleted {
		t.Fatalf("status = %q", snap.Status)
	}
	a := snap.Result
	if a.ServiceLinkTrustees == nil || len(a.ServiceLinkTrustees) != 0 {
		t.Errorf("trustees = %#v, want empty non-nil", a.ServiceLinkTrustees)
	}
	if a.SaleLocation != "" || a.CountySeat != "" {
		t.Errorf("listing fields not cleared: %q / %q", a.SaleLocation, a.CountySeat)
	}

	found := false
	for _, e := range snap.Validation.Errors {
		if strings.Contains(e, "ServiceLink county match failed") && strings.Contains(e, "harris") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing county match error: %v", snap.Validation.Errors)
	}
	if snap.CanGenerate {
		t.Error("county mismatch must block generation")
	}
}

func TestRunNoListingFile(t *testing.T) {
	client := providers.NewMockClient()
	client.ResponseText = fullResponse

	reg := jobs.NewRegistry(time.Hour, time.Hour, nil)
	defer reg.Close()
	job := reg.Create(1, nil)

	r := newTestRunner(t, client)
	r.Run(context.Background(), job, []File{{Name: "Recorded DOT.pdf", Data: []byte("%PDF-dot")}})
	snap := job.Snapshot()

	if snap.Status != jobs.StatusCompleted {
		t.Fatalf("status = %q", snap.Status)
	}
	// The AI never supplies trustees here and no listing exists, so the
	// mandatory trustee check fails.
	found := false
	for _, e := range snap.Validation.Errors {
		if strings.Contains(e, "ServiceLink trustees missing") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected mandatory trustee error, got %v", snap.Validation.Errors)
	}
}

func TestRunIdentityRendezvous(t *testing.T) {
	client := providers.NewMockClient()
	client.ResponseText = fullResponse

	reg := jobs.NewRegistry(time.Hour, time.Hour, nil)
	defer reg.Close()
	job := reg.Create(2, nil)

	files := append(testFiles(), File{Name: "Funding Package.pdf", Data: []byte("%PDF-fund")})

	// Submit identity while the pipeline is waiting on it.
	go func() {
		for job.Snapshot().Stage != "Waiting for ID input" {
			time.Sleep(5 * time.Millisecond)
		}
		job.SubmitIdentity("123-45-6789", "03/04/1980")
	}()

	r := newTestRunner(t, client)
	snap := runToCompletion(t, r, job, files)

	if snap.Result.SSN != "123-45-6789" || snap.Result.DOB != "03/04/1980" {
		t.Errorf("identity not merged: %q / %q", snap.Result.SSN, snap.Result.DOB)
	}
	if !snap.HasFunding {
		t.Error("funding PDF not stored on job")
	}
}

func TestRunIdentityWaitExpires(t *testing.T) {
	client := providers.NewMockClient()
	client.ResponseText = fullResponse

	reg := jobs.NewRegistry(time.Hour, time.Hour, nil)
	defer reg.Close()
	job := reg.Create(2, nil)

	files := append(testFiles(), File{Name: "Funding Package.pdf", Data: []byte("%PDF-fund")})

	r := newTestRunner(t, client)
	snap := runToCompletion(t, r, job, files)

	// Expiry is not fatal; the job completes without identity.
	if snap.Result.SSN != "" || snap.Result.DOB != "" {
		t.Errorf("identity populated unexpectedly: %q / %q", snap.Result.SSN, snap.Result.DOB)
	}
}

func TestRunCancellation(t *testing.T) {
	client := providers.NewMockClient()
	client.ResponseText = fullResponse
	client.Latency = 50 * time.Millisecond

	reg := jobs.NewRegistry(time.Hour, time.Hour, nil)
	defer reg.Close()
	job := reg.Create(2, nil)

	job.Cancel()
	r := newTestRunner(t, client)
	r.Run(context.Background(), job, testFiles())

	if job.Status() != jobs.StatusCancelled {
		t.Errorf("status = %q, want cancelled", job.Status())
	}
}

func TestRunNoFiles(t *testing.T) {
	reg := jobs.NewRegistry(time.Hour, time.Hour, nil)
	defer reg.Close()
	job := reg.Create(0, nil)

	r := newTestRunner(t, providers.NewMockClient())
	r.Run(context.Background(), job, nil)

	if job.Status() != jobs.StatusFailed {
		t.Errorf("status = %q, want failed", job.Status())
	}
}

func TestRunRepairPass(t *testing.T) {
	client := providers.NewMockClient()
	// First pass omits the trustee; the repair pass supplies it.
	first := strings.Replace(fullResponse, `"trustee": "Jane Smith",`, "", 1)
	client.ResponseFunc = func(req *providers.DocumentRequest) (string, error) {
		if strings.Contains(req.Prompt, "FIELDS TO RE-EXTRACT") {
			return `{"trustee": "Jane Smith"}`, nil
		}
		return first, nil
	}

	reg := jobs.NewRegistry(time.Hour, time.Hour, nil)
	defer reg.Close()
	job := reg.Create(2, nil)

	r := newTestRunner(t, client)
	snap := runToCompletion(t, r, job, testFiles())

	if snap.Result.Trustee != "Jane Smith" {
		t.Errorf("trustee = %q, want repaired value", snap.Result.Trustee)
	}
	if snap.Pipeline == nil || !snap.Pipeline.RepairRan {
		t.Fatal("repair pass did not run")
	}
	hasTrustee := false
	for _, f := range snap.Pipeline.RepairFieldsAttempted {
		if f == "trustee" {
			hasTrustee = true
		}
	}
	if !hasTrustee {
		t.Errorf("repair fields = %v", snap.Pipeline.RepairFieldsAttempted)
	}
	if snap.Pipeline.RepairFieldsFixed < 1 {
		t.Errorf("fields fixed = %d", snap.Pipeline.RepairFieldsFixed)
	}
}

func TestFindFundingPackage(t *testing.T) {
	tests := []struct {
		name  string
		files []File
		want  string
	}{
		{"by fund", []File{{Name: "Loan Funding.pdf"}}, "Loan Funding.pdf"},
		{"by pkg", []File{{Name: "closing-pkg.pdf"}}, "closing-pkg.pdf"},
		{"by package", []File{{Name: "Closing Package.pdf"}}, "Closing Package.pdf"},
		{"none", []File{{Name: "Recorded DOT.pdf"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findFundingPackage(tt.files)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("got %q, want none", got.Name)
			case tt.want != "" && (got == nil || got.Name != tt.want):
				t.Errorf("got %v, want %q", got, tt.want)
			}
		})
	}
}
