package worker

import (
	"context"
	"fmt"
	"sort"
)

// ClaimEvaluator computes the payout delta a change causes for one claim
type ClaimEvaluator interface {
	EvaluateClaim(ctx context.Context, claimID string) (float64, error)
}

// StudyJob evaluates one claim of a cohort
type StudyJob struct {
	ClaimID   string
	Evaluator ClaimEvaluator
}

// Execute evaluates the claim. A panicking evaluator fails only this claim.
func (j *StudyJob) Execute(ctx context.Context) (result Result) {
	if err := ctx.Err(); err != nil {
		return &StudyResult{ClaimID: j.ClaimID, Error: err}
	}
	defer func() {
		if r := recover(); r != nil {
			result = &StudyResult{ClaimID: j.ClaimID, Error: fmt.Errorf("claim %s: panic: %v", j.ClaimID, r)}
		}
	}()

	delta, err := j.Evaluator.EvaluateClaim(ctx, j.ClaimID)
	if err != nil {
		return &StudyResult{
			ClaimID: j.ClaimID,
			Error:   fmt.Errorf("claim %s: %w", j.ClaimID, err),
		}
	}
	return &StudyResult{
		ClaimID: j.ClaimID,
		Delta:   delta,
	}
}

// StudyResult represents the result of a study job
type StudyResult struct {
	ClaimID string
	Delta   float64
	Error   error
}

// GetError returns the error from the study result
func (r *StudyResult) GetError() error {
	return r.Error
}

// BatchProcessor evaluates many claims concurrently
type BatchProcessor struct {
	evaluator   ClaimEvaluator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(evaluator ClaimEvaluator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// ProcessClaims evaluates every claim and returns results in input order.
// Duplicate claim IDs are evaluated once.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claimIDs []string) []*StudyResult {
	claimIDs = dedupe(claimIDs)
	if len(claimIDs) == 0 {
		return []*StudyResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	// Submit blocks once the queue is full, so feed it while draining results
	go func() {
		for _, id := range claimIDs {
			pool.Submit(&StudyJob{
				ClaimID:   id,
				Evaluator: b.evaluator,
			})
		}
		pool.Close()
	}()

	var results []Result
	for result := range pool.Results() {
		results = append(results, result)
	}

	order := make(map[string]int, len(claimIDs))
	for i, id := range claimIDs {
		order[id] = i
	}

	studyResults := make([]*StudyResult, 0, len(results))
	for _, result := range results {
		studyResults = append(studyResults, result.(*StudyResult))
	}
	sort.Slice(studyResults, func(i, j int) bool {
		return order[studyResults[i].ClaimID] < order[studyResults[j].ClaimID]
	})

	return studyResults
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
