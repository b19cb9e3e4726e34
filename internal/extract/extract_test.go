package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/quorumtitle/abstractor/internal/abstract"
	"github.com/quorumtitle/abstractor/internal/chunker"
	"github.com/quorumtitle/abstractor/internal/metrics"
	"github.com/quorumtitle/abstractor/internal/providers"
	"github.com/quorumtitle/abstractor/internal/validate"
)

func testChunks() []chunker.Chunk {
	return []chunker.Chunk{
		{Index: 0, Total: 2, StartPage: 1, EndPage: 15, Filename: "Recorded DOT.pdf", Data: []byte("%PDF-a")},
		{Index: 1, Total: 2, StartPage: 16, EndPage: 22, Filename: "Recorded DOT.pdf", Data: []byte("%PDF-b")},
		{Index: 2, Total: 1, StartPage: 1, EndPage: 4, Filename: "Funding Package.pdf", Data: []byte("%PDF-c")},
	}
}

func TestOrchestratorRun(t *testing.T) {
	t.Run("merges all chunks with authority precedence", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ResponseFunc = func(req *providers.DocumentRequest) (string, error) {
			if strings.Contains(req.Filename, "Funding") {
				return `{"grantor_name": "Wrong Name LLC", "note_amount": "$1,500.00", "loan_servicer": "Servicing Corp"}`, nil
			}
			return `{"grantor_name": "Acme Holdings LLC", "county": "Collin County, Texas"}`, nil
		}

		o := NewOrchestrator(client, &abstract.Merger{}, 3, nil)
		a := abstract.New()
		// Authoritative chunks run first, so the funding value must not win.
		results, err := o.Run(context.Background(), testChunks(), a)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("got %d results, want 3", len(results))
		}
		if a.GrantorName != "Acme Holdings LLC" {
			t.Errorf("grantor_name = %q, want authoritative value", a.GrantorName)
		}
		if a.NoteAmount != "1500.00" {
			t.Errorf("note_amount = %q, want normalized 1500.00", a.NoteAmount)
		}
		if a.LoanServicer != "Servicing Corp" {
			t.Errorf("loan_servicer = %q", a.LoanServicer)
		}
	})

	t.Run("results keep chunk order", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ResponseText = `{"county": "Dallas County"}`

		o := NewOrchestrator(client, &abstract.Merger{}, 3, nil)
		results, err := o.Run(context.Background(), testChunks(), abstract.New())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if results[0].Pages != "1-15" || results[1].Pages != "16-22" || results[2].Pages != "1-4" {
			t.Errorf("pages out of order: %+v", results)
		}
		for i, r := range results {
			if r.FieldsFound != 1 {
				t.Errorf("result %d fields_found = %d, want 1", i, r.FieldsFound)
			}
		}
	})

	t.Run("failed chunk yields zero fields", func(t *testing.T) {
		client := providers.NewMockClient()
		calls := 0
		var mu sync.Mutex
		client.ResponseFunc = func(req *providers.DocumentRequest) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return "", fmt.Errorf("connection reset")
			}
			return `{"trustee": "Jane Smith"}`, nil
		}

		o := NewOrchestrator(client, &abstract.Merger{}, 1, nil)
		results, err := o.Run(context.Background(), testChunks(), abstract.New())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if results[0].FieldsFound != 0 {
			t.Errorf("failed chunk fields_found = %d, want 0", results[0].FieldsFound)
		}
		if results[1].FieldsFound != 1 {
			t.Errorf("second chunk fields_found = %d, want 1", results[1].FieldsFound)
		}
	})

	t.Run("reports progress per chunk", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ResponseText = `{}`

		var mu sync.Mutex
		var seen []int
		o := NewOrchestrator(client, &abstract.Merger{}, 1, nil)
		o.OnProgress = func(done, total int) {
			mu.Lock()
			seen = append(seen, done)
			mu.Unlock()
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
		}

		if _, err := o.Run(context.Background(), testChunks(), abstract.New()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(seen) != 3 || seen[2] != 3 {
			t.Errorf("progress callbacks = %v", seen)
		}
	})

	t.Run("cancelled context stops the pool", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := providers.NewMockClient()
		o := NewOrchestrator(client, &abstract.Merger{}, 3, nil)
		if _, err := o.Run(ctx, testChunks(), abstract.New()); err == nil {
			t.Fatal("expected cancellation error")
		}
	})

	t.Run("no chunks is a no-op", func(t *testing.T) {
		o := NewOrchestrator(providers.NewMockClient(), &abstract.Merger{}, 3, nil)
		results, err := o.Run(context.Background(), nil, abstract.New())
		if err != nil || results != nil {
			t.Errorf("got (%v, %v), want (nil, nil)", results, err)
		}
	})
}

func TestOrchestratorRunRepair(t *testing.T) {
	t.Run("merges only requested fields", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ResponseText = `{"county": "Collin County", "grantor_name": "Should Not Merge"}`

		a := abstract.New()
		o := NewOrchestrator(client, &abstract.Merger{}, 3, nil)
		fixed, err := o.RunRepair(context.Background(), testChunks()[:1], a,
			[]string{"county"}, []string{"Missing required field: county"})
		if err != nil {
			t.Fatalf("RunRepair: %v", err)
		}
		if fixed != 1 {
			t.Errorf("fixed = %d, want 1", fixed)
		}
		if a.County != "Collin County" {
			t.Errorf("county = %q", a.County)
		}
		if a.GrantorName != "" {
			t.Errorf("unrequested field merged: %q", a.GrantorName)
		}
	})

	t.Run("null repair values change nothing", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ResponseText = `{"county": null}`

		a := abstract.New()
		o := NewOrchestrator(client, &abstract.Merger{}, 3, nil)
		fixed, err := o.RunRepair(context.Background(), testChunks()[:1], a,
			[]string{"county"}, nil)
		if err != nil {
			t.Fatalf("RunRepair: %v", err)
		}
		if fixed != 0 || a.County != "" {
			t.Errorf("fixed = %d, county = %q", fixed, a.County)
		}
	})

	// Prompt building and before/after snapshots read the abstract while
	// sibling workers merge into it; run wide so the race detector sees
	// overlapping reads and writes if the snapshots ever bypass the merge
	// lock.
	t.Run("concurrent repair workers share the abstract safely", func(t *testing.T) {
		client := providers.NewMockClient()
		calls := 0
		var mu sync.Mutex
		client.ResponseFunc = func(req *providers.DocumentRequest) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return fmt.Sprintf(`{"county": "County %d", "sale_location": "Courthouse %d"}`, calls, calls), nil
		}

		chunks := make([]chunker.Chunk, 16)
		for i := range chunks {
			chunks[i] = chunker.Chunk{
				Index: i, Total: 16,
				StartPage: i*10 + 1, EndPage: i*10 + 10,
				Filename: "Title Search.pdf",
				Data:     []byte("%PDF"),
			}
		}

		a := abstract.New()
		o := NewOrchestrator(client, &abstract.Merger{}, 8, nil)
		if _, err := o.RunRepair(context.Background(), chunks, a,
			[]string{"county", "sale_location"}, []string{"Missing required field: county"}); err != nil {
			t.Fatalf("RunRepair: %v", err)
		}
		if a.County == "" || a.SaleLocation == "" {
			t.Errorf("county = %q, sale_location = %q, want both filled", a.County, a.SaleLocation)
		}
	})
}

func TestBuildRepairPrompt(t *testing.T) {
	prompt := BuildRepairPrompt(
		[]string{"sale_location", "note_amount"},
		[]string{"varies by county", ""},
		[]string{`sale_location may be invalid: "varies by county"`},
	)

	if !strings.Contains(prompt, `- sale_location: currently "varies by county" - needs correction`) {
		t.Error("prompt missing current sale_location value")
	}
	if !strings.Contains(prompt, "sale_location EXTRACTION RULES") {
		t.Error("prompt missing sale_location guidance")
	}
	if strings.Contains(prompt, "county_seat EXTRACTION RULES") {
		t.Error("prompt includes guidance for unrequested field")
	}
	if !strings.Contains(prompt, "sale_location may be invalid") {
		t.Error("prompt missing validation failure text")
	}
}

func TestIdentifyRepairFields(t *testing.T) {
	tests := []struct {
		name   string
		result *validate.Result
		want   []string
	}{
		{
			name: "missing required field",
			result: &validate.Result{
				Errors: []string{"Missing required field: grantor_name"},
			},
			want: []string{"grantor_name"},
		},
		{
			name: "format issue by leading field name",
			result: &validate.Result{
				Errors: []string{"note_amount is not numeric"},
			},
			want: []string{"note_amount"},
		},
		{
			name: "legal description warnings",
			result: &validate.Result{
				Warnings: []string{
					`legal_description_recording does not contain "COUNTY"`,
					`legal_description_metes_bounds does not contain "BEGINNING"`,
				},
			},
			want: []string{"legal_description_metes_bounds", "legal_description_recording"},
		},
		{
			name: "county cross-verification",
			result: &validate.Result{
				Warnings: []string{`County "Tarrant" not found in legal descriptions`},
			},
			want: []string{"county"},
		},
		{
			name: "prose words are filtered by whitelist",
			result: &validate.Result{
				Errors: []string{
					"File Abstract insufficient — only 5/26 fields filled (19%)",
					"STRUCTURAL ERROR: Trustee count (30) exceeds maximum (25) - likely merged multiple counties",
				},
			},
			want: nil,
		},
		{
			name: "identity fields never repairable",
			result: &validate.Result{
				MissingFields: []string{"ssn", "dob", "county_seat"},
			},
			want: []string{"county_seat"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IdentifyRepairFields(tt.result)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestRelevantChunks(t *testing.T) {
	chunks := testChunks()
	results := []ChunkResult{
		{File: chunks[0].Filename, Pages: "1-15", FieldsFound: 4},
		{File: chunks[1].Filename, Pages: "16-22", FieldsFound: 0},
		{File: chunks[2].Filename, Pages: "1-4", FieldsFound: 2},
	}

	got := RelevantChunks(results, chunks)
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
	if got[0].StartPage != 1 || got[0].EndPage != 15 || got[1].Filename != "Funding Package.pdf" {
		t.Errorf("wrong chunks selected: %+v", got)
	}
}

func TestOrchestratorRecordsMetrics(t *testing.T) {
	client := providers.NewMockClient()
	calls := 0
	var mu sync.Mutex
	client.ResponseFunc = func(req *providers.DocumentRequest) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return "", fmt.Errorf("connection reset")
		}
		return `{"county": "Collin County"}`, nil
	}

	rec := metrics.NewRecorder()
	o := NewOrchestrator(client, &abstract.Merger{}, 1, nil)
	o.Metrics = rec
	o.JobID = "job-42"

	if _, err := o.Run(context.Background(), testChunks(), abstract.New()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records := rec.ForJob("job-42")
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Success || records[0].ErrorType != "error" {
		t.Errorf("first record = %+v, want recorded failure", records[0])
	}
	for _, m := range records[1:] {
		if !m.Success || m.Stage != "extract" || m.Provider != providers.MockClientName {
			t.Errorf("record = %+v", m)
		}
	}
}
