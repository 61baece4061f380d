package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to RequestStatus
		want     bool
	}{
		{StatusProcessing, StatusDone, true},
		{StatusProcessing, StatusError, true},
		{StatusProcessing, StatusProcessing, false},
		{StatusError, StatusError, true},
		{StatusError, StatusDone, false},
		{StatusDone, StatusError, false},
		{StatusDone, StatusDone, false},
		{StatusDone, StatusProcessing, false},
		{StatusProcessing, RequestStatus("archived"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRecordCloneIsDeep(t *testing.T) {
	rec := &RequestRecord{
		ID:     "REQ_1",
		Status: StatusDone,
		Result: &Decision{
			Approved:    true,
			RiskDetails: &RiskDetails{RiskScore: 77.88},
			Reasons:     []string{"ok"},
			Audit: &DecisionInput{
				CreditCheck: CreditResult{Details: map[string]any{"bureau": map[string]any{"score": 700}}},
			},
		},
	}
	cp := rec.Clone()
	cp.Result.RiskDetails.RiskScore = 1
	cp.Result.Reasons[0] = "changed"
	cp.Result.Audit.CreditCheck.Details["bureau"].(map[string]any)["score"] = 1

	if rec.Result.RiskDetails.RiskScore != 77.88 || rec.Result.Reasons[0] != "ok" {
		t.Fatalf("clone shares decision state: %+v", rec.Result)
	}
	if rec.Result.Audit.CreditCheck.Details["bureau"].(map[string]any)["score"] != 700 {
		t.Fatalf("clone shares audit details")
	}
	var nilRecord *RequestRecord
	if nilRecord.Clone() != nil {
		t.Fatalf("nil clone should stay nil")
	}
}

func TestRecordJSONShape(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	data, err := json.Marshal(&RequestRecord{ID: "REQ_1", Text: "hi", Status: StatusProcessing, Timestamp: ts, LastUpdate: ts})
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"request_id":"REQ_1"`, `"status":"processing"`, `"last_update":`, `"result":null`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("missing %s in %s", key, data)
		}
	}
}

func TestErrorDecision(t *testing.T) {
	d := ErrorDecision("credit stage: timeout")
	if d.Approved || d.Message != "Internal error: credit stage: timeout" || d.RiskDetails != nil || d.Audit != nil {
		t.Fatalf("unexpected error decision: %+v", d)
	}
	data, _ := json.Marshal(d)
	if strings.Contains(string(data), "risk_details") || strings.Contains(string(data), "audit") {
		t.Fatalf("error decision should not carry details: %s", data)
	}
}
