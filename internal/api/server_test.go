package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dharsanguruparan/LoanDesk/internal/config"
	"github.com/dharsanguruparan/LoanDesk/internal/model"
	"github.com/dharsanguruparan/LoanDesk/internal/pipeline"
	"github.com/dharsanguruparan/LoanDesk/internal/s3storage"
	"github.com/dharsanguruparan/LoanDesk/internal/stages"
	"github.com/dharsanguruparan/LoanDesk/internal/storage"
)

const application = `Name: John Doe
Email: john.doe@example.com
Address: 10 Rue de Rivoli, Paris
Loan Amount: 150000
Monthly Income: 7200
Monthly Expenses: 1800
Description: Renovated apartment
Employment: stable`

func testConfig() *config.Config {
	return &config.Config{Address: ":0", MaxUploadBytes: 1 << 20}
}

func newTestServer(t *testing.T, archive URLSigner) *httptest.Server {
	t.Helper()
	p, err := pipeline.New(storage.NewMemoryStore(), stages.Local(), nil, pipeline.Options{})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	srv := httptest.NewServer(New(testConfig(), p, archive).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestSubmitThenFetch(t *testing.T) {
	srv := newTestServer(t, nil)

	body, _ := json.Marshal(map[string]string{"text": application})
	resp, err := http.Post(srv.URL+"/applications", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var env pipeline.Envelope
	decode(t, resp, &env)
	if env.Status != pipeline.StatusDone || env.RequestID == "" || env.Decision == nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Decision.LoanAmount != 150000 {
		t.Fatalf("loan amount not extracted: %v", env.Decision.LoanAmount)
	}

	resp, err = http.Get(srv.URL + "/applications/" + env.RequestID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var rec model.RequestRecord
	decode(t, resp, &rec)
	if rec.ID != env.RequestID || rec.Status != model.StatusDone || rec.Text != application {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Result == nil || rec.Result.Message != env.Decision.Message {
		t.Fatalf("stored result differs from returned decision")
	}
}

func TestSubmitPlainText(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Post(srv.URL+"/applications", "text/plain; charset=utf-8", strings.NewReader(application))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var env pipeline.Envelope
	decode(t, resp, &env)
	if env.Status != pipeline.StatusDone {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestSubmitRejectsEmptyBody(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, tc := range []struct{ contentType, body string }{
		{"text/plain", "   "},
		{"application/json", `{"text":""}`},
		{"application/json", `{"text":`},
	} {
		resp, err := http.Post(srv.URL+"/applications", tc.contentType, strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s %q: expected 400, got %d", tc.contentType, tc.body, resp.StatusCode)
		}
	}
}

func TestFetchUnknownRequest(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/applications/REQ_DOES_NOT_EXIST")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	want := map[string]string{"status": "error", "message": "No request found for REQ_DOES_NOT_EXIST"}
	if body["status"] != want["status"] || body["message"] != want["message"] {
		t.Fatalf("got %v, want %v", body, want)
	}
}

type failingService struct{ kind pipeline.FailureKind }

func (f failingService) Submit(context.Context, string) pipeline.Envelope {
	perr := &pipeline.Error{Kind: f.kind, Stage: "credit", Err: errors.New("credit stage: boom")}
	return pipeline.Envelope{Status: pipeline.StatusError, RequestID: "REQ_X", Message: perr.Error(), Err: perr}
}

func (f failingService) Fetch(context.Context, string) (*model.RequestRecord, error) {
	return nil, &pipeline.Error{Kind: pipeline.KindStore, Stage: pipeline.StageStore, Err: errors.New("db down")}
}

func TestFailureStatusCodes(t *testing.T) {
	cases := map[pipeline.FailureKind]int{
		pipeline.KindCollaborator: http.StatusUnprocessableEntity,
		pipeline.KindValidation:   http.StatusUnprocessableEntity,
		pipeline.KindStore:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		h := New(testConfig(), failingService{kind: kind}, nil).Handler()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/applications", strings.NewReader("text")))
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, rec.Code)
		}
		var env map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env["status"] != "error" || env["message"] != "credit stage: boom" {
			t.Fatalf("unexpected body: %v", env)
		}
	}

	h := New(testConfig(), failingService{}, nil).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/applications/REQ_X", nil))
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("store errors must be opaque 500s, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestPDFUploadRejectsNonPDF(t *testing.T) {
	srv := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "application.txt")
	_, _ = fw.Write([]byte(application))
	mw.Close()

	resp, err := http.Post(srv.URL+"/applications/pdf", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/applications/pdf", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without multipart, got %d", resp.StatusCode)
	}
}

type fakeSigner struct {
	urls map[string]string
}

func (f fakeSigner) PresignURL(_ context.Context, id string) (string, error) {
	if u, ok := f.urls[id]; ok {
		return u, nil
	}
	return "", s3storage.ErrNotArchived
}

func TestArchiveURL(t *testing.T) {
	p, err := pipeline.New(storage.NewMemoryStore(), stages.Local(), nil, pipeline.Options{NewID: func() string { return "REQ_A" }})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	p.Submit(context.Background(), application)
	signer := fakeSigner{urls: map[string]string{"REQ_A": "https://s3.local/decisions/REQ_A.json?sig=1"}}
	h := New(testConfig(), p, signer).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/applications/REQ_A/archive-url", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sig=1") {
		t.Fatalf("expected signed url, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/applications/REQ_MISSING/archive-url", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown request, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	New(testConfig(), p, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/applications/REQ_A/archive-url", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with archive disabled, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := New(testConfig(), failingService{}, nil).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/applications", nil))
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight response: %d %v", rec.Code, rec.Header())
	}
}
