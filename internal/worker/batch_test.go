package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// mockEvaluator returns a delta derived from the claim ID
type mockEvaluator struct {
	deltas map[string]float64
	calls  int32
	delay  time.Duration
}

func (m *mockEvaluator) EvaluateClaim(ctx context.Context, claimID string) (float64, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	delta, ok := m.deltas[claimID]
	if !ok {
		return 0, errors.New("claim not found")
	}
	return delta, nil
}

func TestBatchProcessor_ProcessClaims(t *testing.T) {
	eval := &mockEvaluator{
		deltas: map[string]float64{"CLM-001": -1200, "CLM-002": 0, "CLM-003": 350},
		delay:  5 * time.Millisecond,
	}
	processor := NewBatchProcessor(eval, 2)

	results := processor.ProcessClaims(context.Background(), []string{"CLM-001", "CLM-002", "CLM-003"})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	want := []struct {
		id    string
		delta float64
	}{
		{"CLM-001", -1200},
		{"CLM-002", 0},
		{"CLM-003", 350},
	}
	for i, w := range want {
		if results[i].ClaimID != w.id {
			t.Errorf("result %d: expected claim %s, got %s", i, w.id, results[i].ClaimID)
		}
		if results[i].Error != nil {
			t.Errorf("unexpected error for %s: %v", w.id, results[i].Error)
		}
		if results[i].Delta != w.delta {
			t.Errorf("expected delta %.2f for %s, got %.2f", w.delta, w.id, results[i].Delta)
		}
	}
}

func TestBatchProcessor_Errors(t *testing.T) {
	eval := &mockEvaluator{deltas: map[string]float64{"CLM-001": 10}}
	processor := NewBatchProcessor(eval, 2)

	results := processor.ProcessClaims(context.Background(), []string{"CLM-001", "CLM-404"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].GetError() != nil {
		t.Errorf("expected CLM-001 to succeed, got %v", results[0].GetError())
	}
	if results[1].GetError() == nil {
		t.Error("expected error for CLM-404")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockEvaluator{}, 2)

	results := processor.ProcessClaims(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_Dedupes(t *testing.T) {
	eval := &mockEvaluator{deltas: map[string]float64{"CLM-001": 1}}
	processor := NewBatchProcessor(eval, 3)

	results := processor.ProcessClaims(context.Background(), []string{"CLM-001", "CLM-001", "", "CLM-001"})
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
	if calls := atomic.LoadInt32(&eval.calls); calls != 1 {
		t.Errorf("expected 1 evaluation, got %d", calls)
	}
}

func TestBatchProcessor_LargeCohort(t *testing.T) {
	deltas := make(map[string]float64)
	var ids []string
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("CLM-%03d", i)
		deltas[id] = float64(i)
		ids = append(ids, id)
	}
	processor := NewBatchProcessor(&mockEvaluator{deltas: deltas}, 4)

	done := make(chan []*StudyResult)
	go func() {
		done <- processor.ProcessClaims(context.Background(), ids)
	}()

	select {
	case results := <-done:
		if len(results) != 200 {
			t.Fatalf("expected 200 results, got %d", len(results))
		}
		if results[199].ClaimID != "CLM-199" || results[199].Delta != 199 {
			t.Errorf("expected results in input order, last was %+v", results[199])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("batch processing deadlocked")
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&mockEvaluator{deltas: map[string]float64{"CLM-001": 1}}, 1)

	done := make(chan struct{})
	go func() {
		for _, r := range processor.ProcessClaims(ctx, []string{"CLM-001", "CLM-002"}) {
			if r.Error == nil {
				t.Errorf("expected cancellation error for %s", r.ClaimID)
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancelled batch did not return")
	}
}

type panickingEvaluator struct{}

func (panickingEvaluator) EvaluateClaim(ctx context.Context, claimID string) (float64, error) {
	if claimID == "CLM-BAD" {
		panic("corrupt line item")
	}
	return 5, nil
}

func TestBatchProcessor_RecoversPanics(t *testing.T) {
	processor := NewBatchProcessor(panickingEvaluator{}, 2)

	results := processor.ProcessClaims(context.Background(), []string{"CLM-001", "CLM-BAD", "CLM-003"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].Error == nil {
		t.Fatal("expected the panicking claim to fail")
	}
	if results[0].Error != nil || results[2].Error != nil {
		t.Errorf("expected other claims to succeed, got %v / %v", results[0].Error, results[2].Error)
	}
}
