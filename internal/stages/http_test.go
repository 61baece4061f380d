package stages

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

func TestHTTPClientsAgainstLocalHandler(t *testing.T) {
	srv := httptest.NewServer(NewHandler(Local()))
	defer srv.Close()

	ctx := context.Background()
	fields, err := NewHTTPExtractor(srv.URL, srv.Client()).Extract(ctx, sampleApplication)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	direct, _ := NewLocalExtractor().Extract(ctx, sampleApplication)
	if fields != direct {
		t.Fatalf("remote extraction differs from local:\n got %+v\nwant %+v", fields, direct)
	}

	credit, err := NewHTTPCreditChecker(srv.URL+"/", srv.Client()).Check(ctx, fields)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	localCredit, _ := NewLocalCreditChecker().Check(ctx, fields)
	if credit.CreditScore != localCredit.CreditScore {
		t.Fatalf("credit score = %v, want %v", credit.CreditScore, localCredit.CreditScore)
	}
	if credit.Details["credit_bureau"] == nil {
		t.Fatalf("expected bureau details to survive the round trip")
	}

	property, err := NewHTTPPropertyEvaluator(srv.URL, srv.Client()).Evaluate(ctx, fields)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	localProperty, _ := NewLocalPropertyEvaluator().Evaluate(ctx, fields)
	if property.PropertyValue != localProperty.PropertyValue {
		t.Fatalf("property value = %v, want %v", property.PropertyValue, localProperty.PropertyValue)
	}
}

func TestHTTPExtractorLenientPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"nom":"Jean","montant_pret":"150 000","revenu_mensuel":4000,"extra":true}`))
	}))
	defer srv.Close()

	got, err := NewHTTPExtractor(srv.URL, nil).Extract(context.Background(), "whatever")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Name != "Jean" || got.LoanAmount != 150000 || got.MonthlyIncome != 4000 {
		t.Fatalf("lenient decode failed: %+v", got)
	}
	if got.Email != model.DefaultEmail || !got.EmploymentStable {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestHTTPExtractorNumericFlags(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{`{"montant_pret":1000,"emploi_stable":0}`, false},
		{`{"montant_pret":1000,"emploi_stable":1}`, true},
		{`{"montant_pret":1000,"employment_stable":0.0}`, false},
		{`{"montant_pret":1000}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			got, err := NewHTTPExtractor(srv.URL, nil).Extract(context.Background(), "text")
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got.EmploymentStable != tc.want {
				t.Fatalf("employment_stable = %v, want %v", got.EmploymentStable, tc.want)
			}
		})
	}
}

func TestHTTPPropertyRejectsPlaceholderValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"property_value":"unknown"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPPropertyEvaluator(srv.URL, nil).Evaluate(context.Background(), model.ExtractedFields{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHTTPCollaboratorFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `boom`, ErrCollaborator},
		{"error envelope", http.StatusOK, `{"status":"error","message":"bureau down"}`, ErrCollaborator},
		{"not json", http.StatusOK, `<html></html>`, ErrCollaborator},
		{"missing score", http.StatusOK, `{"details":{}}`, ErrValidation},
		{"non numeric score", http.StatusOK, `{"credit_score":true}`, ErrValidation},
		{"placeholder score", http.StatusOK, `{"credit_score":"n/a"}`, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewHTTPCreditChecker(srv.URL, nil).Check(context.Background(), model.ExtractedFields{})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if !strings.Contains(err.Error(), StageCredit) {
				t.Fatalf("error should name the stage: %v", err)
			}
		})
	}
}

func TestHTTPCreditScoreIsClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"credit_score":140}`))
	}))
	defer srv.Close()

	got, err := NewHTTPCreditChecker(srv.URL, nil).Check(context.Background(), model.ExtractedFields{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got.CreditScore != 100 {
		t.Fatalf("expected clamp to 100, got %v", got.CreditScore)
	}
}

func TestHTTPPropertyTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTPPropertyEvaluator(srv.URL, nil).Evaluate(ctx, model.ExtractedFields{})
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline to be visible in chain, got %v", err)
	}
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	h := NewHandler(Local())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credit", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader("not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"error"`) {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
}
