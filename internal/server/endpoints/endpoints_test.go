package endpoints

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quorumtitle/abstractor/internal/abstract"
	"github.com/quorumtitle/abstractor/internal/api"
	"github.com/quorumtitle/abstractor/internal/home"
	"github.com/quorumtitle/abstractor/internal/jobs"
	"github.com/quorumtitle/abstractor/internal/providers"
	"github.com/quorumtitle/abstractor/internal/render"
	"github.com/quorumtitle/abstractor/internal/svcctx"
	"github.com/quorumtitle/abstractor/internal/validate"
)

// testServer wires all endpoints into a mux with services on the request
// context, the way the server package does in production.
type testServer struct {
	*httptest.Server
	jobs     *jobs.Registry
	registry *providers.Registry
	home     *home.Dir
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	jobsReg := jobs.NewRegistry(time.Hour, time.Hour, logger)
	t.Cleanup(jobsReg.Close)

	provReg := providers.NewRegistry()
	provReg.SetLogger(logger)
	provReg.Register(providers.MockClientName, providers.NewMockClient())
	provReg.SetDefault(providers.MockClientName)

	homeDir, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}

	services := &svcctx.Services{
		Jobs:     jobsReg,
		Registry: provReg,
		Logger:   logger,
		Home:     homeDir,
	}

	reg := api.NewRegistry()
	for _, ep := range All() {
		reg.Register(ep)
	}
	mux := http.NewServeMux()
	reg.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc { return next })

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), services)))
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, jobs: jobsReg, registry: provReg, home: homeDir}
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func (ts *testServer) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// validAbstract returns fields that pass validation with no errors.
func validAbstract() *abstract.FileAbstract {
	return &abstract.FileAbstract{
		GrantorName:               "ACME Holdings LLC",
		CommonAddress:             "123 Main St, McKinney, TX 75069",
		County:                    "COLLIN COUNTY, TEXAS",
		NoteDate:                  "June 1, 2022",
		NoteAmount:                "250000.00",
		Trustee:                   "John Doe",
		OriginalGrantee:           "First Bank",
		CurrentGrantee:            "First Bank",
		LegalDescriptionRecording: "LOT 1, BLOCK A, SURVEY 12, COLLIN COUNTY, TEXAS",
		ServiceLinkTrustees:       []string{"Jane Smith", "Bob Jones"},
		SaleLocation:              "At the COURTHOUSE steps",
		CountySeat:                "McKinney",
		SaleHours:                 "10:00 AM - 1:00 PM",
		ServiceLinkDate:           "August 5, 2025",
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	health := decode[HealthResponse](t, resp)
	if health.Status != "ok" {
		t.Errorf("Status = %q, want %q", health.Status, "ok")
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.jobs.Create(1, []string{"a.pdf"})

	resp := ts.get(t, "/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	status := decode[StatusResponse](t, resp)
	if status.Default != providers.MockClientName {
		t.Errorf("Default = %q, want %q", status.Default, providers.MockClientName)
	}
	if status.Jobs != 1 {
		t.Errorf("Jobs = %d, want 1", status.Jobs)
	}
}

func TestJobStatus(t *testing.T) {
	ts := newTestServer(t)
	job := ts.jobs.Create(2, []string{"a.pdf", "b.pdf"})
	job.SetStage("Extracting", 40)

	resp := ts.get(t, "/api/abstract/jobs/"+job.ID()+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	got := decode[JobStatusResponse](t, resp)
	if got.Status != jobs.StatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, jobs.StatusRunning)
	}
	if got.Progress != 40 || got.Stage != "Extracting" {
		t.Errorf("Progress/Stage = %d/%q, want 40/Extracting", got.Progress, got.Stage)
	}

	t.Run("unknown job", func(t *testing.T) {
		resp := ts.get(t, "/api/abstract/jobs/nope/status")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})
}

func TestJobResult(t *testing.T) {
	ts := newTestServer(t)
	job := ts.jobs.Create(1, []string{"a.pdf"})

	t.Run("not completed", func(t *testing.T) {
		resp := ts.get(t, "/api/abstract/jobs/"+job.ID()+"/result")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	a := validAbstract()
	v := validate.Abstract(a, 2)
	job.Complete(a, v, nil)

	t.Run("completed", func(t *testing.T) {
		resp := ts.get(t, "/api/abstract/jobs/"+job.ID()+"/result")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		got := decode[JobResultResponse](t, resp)
		if !got.Success || !got.CanGenerate {
			t.Errorf("Success/CanGenerate = %v/%v, want true/true", got.Success, got.CanGenerate)
		}
		if got.FileCount != 1 || len(got.FileNames) != 1 {
			t.Errorf("FileCount/FileNames = %d/%v", got.FileCount, got.FileNames)
		}
	})
}

func TestCancelJob(t *testing.T) {
	ts := newTestServer(t)
	job := ts.jobs.Create(1, []string{"a.pdf"})

	resp := ts.postJSON(t, "/api/abstract/jobs/"+job.ID()+"/cancel", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	got := decode[CancelResponse](t, resp)
	if !got.Success {
		t.Error("Success = false, want true")
	}
	if !job.Cancelled() {
		t.Error("job not flagged cancelled")
	}

	t.Run("already terminal", func(t *testing.T) {
		done := ts.jobs.Create(1, []string{"b.pdf"})
		done.Fail("boom")
		resp := ts.postJSON(t, "/api/abstract/jobs/"+done.ID()+"/cancel", struct{}{})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})
}

func TestSubmitIdentity(t *testing.T) {
	ts := newTestServer(t)
	job := ts.jobs.Create(1, []string{"a.pdf"})

	tests := []struct {
		name string
		req  IdentityRequest
		want int
	}{
		{"missing ssn", IdentityRequest{DOB: "01/02/1980"}, http.StatusBadRequest},
		{"missing dob", IdentityRequest{SSN: "1234"}, http.StatusBadRequest},
		{"ok", IdentityRequest{SSN: " 1234 ", DOB: " 01/02/1980 "}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.postJSON(t, "/api/abstract/jobs/"+job.ID()+"/identity", tt.req)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	ssn, dob := job.Identity()
	if ssn != "1234" || dob != "01/02/1980" {
		t.Errorf("Identity() = %q/%q, want trimmed values", ssn, dob)
	}
}

func TestFundingPDF(t *testing.T) {
	ts := newTestServer(t)
	job := ts.jobs.Create(1, []string{"a.pdf"})

	t.Run("not available", func(t *testing.T) {
		resp := ts.get(t, "/api/abstract/jobs/"+job.ID()+"/funding-pdf")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})

	job.SetFundingPDF([]byte("%PDF-1.4 test"))

	t.Run("available", func(t *testing.T) {
		resp := ts.get(t, "/api/abstract/jobs/"+job.ID()+"/funding-pdf")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("Content-Type = %q, want application/pdf", ct)
		}
		body, _ := io.ReadAll(resp.Body)
		if !bytes.Equal(body, []byte("%PDF-1.4 test")) {
			t.Error("body does not match stored PDF")
		}
	})
}

func TestValidateOnly(t *testing.T) {
	ts := newTestServer(t)

	t.Run("no fields", func(t *testing.T) {
		resp := ts.postJSON(t, "/api/abstract/validate", map[string]any{})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("clean fields", func(t *testing.T) {
		resp := ts.postJSON(t, "/api/abstract/validate", ValidateRequest{Fields: validAbstract()})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		got := decode[ValidateResponse](t, resp)
		if !got.CanGenerate {
			t.Errorf("CanGenerate = false, errors: %v", got.Validation.Errors)
		}
	})

	t.Run("missing required", func(t *testing.T) {
		a := validAbstract()
		a.GrantorName = ""
		resp := ts.postJSON(t, "/api/abstract/validate", ValidateRequest{Fields: a})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		got := decode[ValidateResponse](t, resp)
		if got.CanGenerate {
			t.Error("CanGenerate = true, want false")
		}
	})
}

// writeTestTemplate puts a minimal DOCX template in the home directory.
func writeTestTemplate(t *testing.T, dir *home.Dir) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		"word/document.xml":   `<w:document><w:t>Grantor: {GRANTOR-NAME} Address: {COMMON-ADDRESS}</w:t></w:document>`,
	}
	for name, content := range parts {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir.Path(), "template.docx"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
}

func TestGenerate(t *testing.T) {
	ts := newTestServer(t)
	writeTestTemplate(t, ts.home)

	t.Run("validation errors block generation", func(t *testing.T) {
		a := validAbstract()
		a.ServiceLinkTrustees = nil
		resp := ts.postJSON(t, "/api/abstract/generate", ValidateRequest{Fields: a})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
		got := decode[GenerateErrorResponse](t, resp)
		if len(got.ValidationErrors) == 0 {
			t.Error("expected validation errors in response")
		}
	})

	t.Run("clean fields produce document", func(t *testing.T) {
		a := validAbstract()
		resp := ts.postJSON(t, "/api/abstract/generate", ValidateRequest{Fields: a})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("status = %d, body: %s", resp.StatusCode, body)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, render.Filename(a)) {
			t.Errorf("Content-Disposition = %q, want filename %q", cd, render.Filename(a))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
		if err != nil {
			t.Fatalf("response is not a zip: %v", err)
		}
		for _, f := range zr.File {
			if f.Name != "word/document.xml" {
				continue
			}
			rc, _ := f.Open()
			doc, _ := io.ReadAll(rc)
			rc.Close()
			if !bytes.Contains(doc, []byte("ACME Holdings LLC")) {
				t.Error("document.xml missing substituted grantor")
			}
			if bytes.Contains(doc, []byte("{GRANTOR-NAME}")) {
				t.Error("document.xml still has raw placeholder")
			}
		}
	})
}

func TestProcessRejections(t *testing.T) {
	ts := newTestServer(t)

	newUpload := func(t *testing.T, names ...string) (*bytes.Buffer, string) {
		t.Helper()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for _, name := range names {
			fw, err := mw.CreateFormFile("documents", name)
			if err != nil {
				t.Fatalf("CreateFormFile: %v", err)
			}
			fw.Write([]byte("%PDF-1.4"))
		}
		mw.Close()
		return &buf, mw.FormDataContentType()
	}

	t.Run("no files", func(t *testing.T) {
		body, ct := newUpload(t)
		resp, err := http.Post(ts.URL+"/api/abstract/process", ct, body)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("non-pdf file", func(t *testing.T) {
		body, ct := newUpload(t, "notes.txt")
		resp, err := http.Post(ts.URL+"/api/abstract/process", ct, body)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("too many files", func(t *testing.T) {
		names := make([]string, 11)
		for i := range names {
			names[i] = "doc" + string(rune('a'+i)) + ".pdf"
		}
		body, ct := newUpload(t, names...)
		resp, err := http.Post(ts.URL+"/api/abstract/process", ct, body)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})
}
