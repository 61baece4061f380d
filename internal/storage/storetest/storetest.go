// Package storetest holds the behavioral checks every storage.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
	"github.com/dharsanguruparan/LoanDesk/internal/storage"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) storage.Store

// Run exercises the storage.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateThenGet", func(t *testing.T) { testCreateThenGet(t, newStore(t)) })
	t.Run("DuplicateID", func(t *testing.T) { testDuplicateID(t, newStore(t)) })
	t.Run("UpdateUnknown", func(t *testing.T) { testUpdateUnknown(t, newStore(t)) })
	t.Run("GetUnknown", func(t *testing.T) { testGetUnknown(t, newStore(t)) })
	t.Run("UpdateDone", func(t *testing.T) { testUpdateDone(t, newStore(t)) })
	t.Run("MissingResult", func(t *testing.T) { testMissingResult(t, newStore(t)) })
	t.Run("NoRegression", func(t *testing.T) { testNoRegression(t, newStore(t)) })
	t.Run("IdempotentGet", func(t *testing.T) { testIdempotentGet(t, newStore(t)) })
	t.Run("ConcurrentWriters", func(t *testing.T) { testConcurrentWriters(t, newStore(t)) })
}

func sampleDecision() *model.Decision {
	return &model.Decision{
		Approved:     true,
		InterestRate: 3.89,
		LoanAmount:   150000,
		RiskDetails: &model.RiskDetails{
			CreditScore:   85,
			LoanAmount:    150000,
			PropertyValue: 300000,
			LoanToValue:   0.5,
			DebtToIncome:  0.21,
			RiskScore:     77.88,
		},
		Reasons:         []string{"Applicant meets institutional risk and policy requirements."},
		Recommendations: []string{"Maintain your strong financial profile and responsible credit behavior."},
		Message:         model.MessageApproved,
	}
}

func testCreateThenGet(t *testing.T, s storage.Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, "REQ_create", "loan text")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != model.StatusProcessing || created.Result != nil {
		t.Fatalf("expected processing record without result, got %+v", created)
	}
	got, err := s.Get(ctx, "REQ_create")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != "loan text" {
		t.Fatalf("expected text to round-trip, got %q", got.Text)
	}
	if got.Timestamp.IsZero() || got.LastUpdate.IsZero() {
		t.Fatalf("expected timestamps to be set: %+v", got)
	}
}

func testDuplicateID(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if _, err := s.Create(ctx, "REQ_dup", "first"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := s.Create(ctx, "REQ_dup", "second")
	if !errors.Is(err, storage.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	got, err := s.Get(ctx, "REQ_dup")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != "first" {
		t.Fatalf("duplicate create overwrote text: %q", got.Text)
	}
}

func testUpdateUnknown(t *testing.T, s storage.Store) {
	_, err := s.Update(context.Background(), "REQ_missing", sampleDecision(), model.StatusDone)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testGetUnknown(t *testing.T, s storage.Store) {
	_, err := s.Get(context.Background(), "REQ_DOES_NOT_EXIST")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testUpdateDone(t *testing.T, s storage.Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, "REQ_done", "text")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := s.Update(ctx, "REQ_done", sampleDecision(), model.StatusDone)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.StatusDone || updated.Result == nil {
		t.Fatalf("expected done record with result, got %+v", updated)
	}
	if updated.LastUpdate.Before(created.LastUpdate) {
		t.Fatalf("last_update moved backwards")
	}
	got, err := s.Get(ctx, "REQ_done")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got.Result, sampleDecision()) {
		t.Fatalf("result mismatch:\n got %+v\nwant %+v", got.Result, sampleDecision())
	}
	if !got.Timestamp.Equal(created.Timestamp) {
		t.Fatalf("timestamp changed on update")
	}
}

func testMissingResult(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if _, err := s.Create(ctx, "REQ_noresult", "text"); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, status := range []model.RequestStatus{model.StatusDone, model.StatusError} {
		if _, err := s.Update(ctx, "REQ_noresult", nil, status); !errors.Is(err, storage.ErrMissingResult) {
			t.Fatalf("expected ErrMissingResult for %s, got %v", status, err)
		}
	}
	got, err := s.Get(ctx, "REQ_noresult")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusProcessing || got.Result != nil {
		t.Fatalf("rejected update was applied: %+v", got)
	}
}

func testNoRegression(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if _, err := s.Create(ctx, "REQ_regress", "text"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Update(ctx, "REQ_regress", sampleDecision(), model.StatusDone); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.Update(ctx, "REQ_regress", nil, model.StatusProcessing); !errors.Is(err, storage.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition going back to processing, got %v", err)
	}
	if _, err := s.Update(ctx, "REQ_regress", model.ErrorDecision("late"), model.StatusError); !errors.Is(err, storage.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition overwriting done, got %v", err)
	}
	got, err := s.Get(ctx, "REQ_regress")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusDone || !got.Result.Approved {
		t.Fatalf("done record was modified: %+v", got)
	}
}

func testIdempotentGet(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if _, err := s.Create(ctx, "REQ_idem", "text"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Update(ctx, "REQ_idem", sampleDecision(), model.StatusDone); err != nil {
		t.Fatalf("update: %v", err)
	}
	first, err := s.Get(ctx, "REQ_idem")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := s.Get(ctx, "REQ_idem")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("consecutive reads differ:\n%+v\n%+v", first, second)
	}
}

func testConcurrentWriters(t *testing.T, s storage.Store) {
	ctx := context.Background()
	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("REQ_conc_%02d", i)
			if _, err := s.Create(ctx, id, "text"); err != nil {
				errs <- err
				return
			}
			if _, err := s.Update(ctx, id, sampleDecision(), model.StatusDone); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent write: %v", err)
	}
	for i := 0; i < n; i++ {
		got, err := s.Get(ctx, fmt.Sprintf("REQ_conc_%02d", i))
		if err != nil {
			t.Fatalf("lost record %d: %v", i, err)
		}
		if got.Status != model.StatusDone {
			t.Fatalf("lost update on record %d: %s", i, got.Status)
		}
	}
}
