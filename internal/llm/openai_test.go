package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/decision-ledger/internal/cache"
	"github.com/ppiankov/decision-ledger/internal/model"
	"github.com/ppiankov/decision-ledger/internal/worker"
)

func sampleRun() *model.DecisionRun {
	value := "2000.00"
	return &model.DecisionRun{
		RunID:                    "RUN-0000TEST",
		ClaimID:                  "CLM-CH-001",
		InterpretationSetID:      "INT-CH-MOTOR-2025.1",
		InterpretationSetVersion: "2025.1",
		AssumptionSetID:          "ASM-CH-MOTOR-2025.1",
		AssumptionSetVersion:     "2025.1",
		ResolvedAssumptions: []model.ResolvedAssumption{
			{FactID: "FACT.ACCESSORY_DECLARED", ChosenResolution: "NOT_DECLARED", ChosenByRole: model.RoleAdjuster},
		},
		SelectedInterpretations: []model.SelectedInterpretation{
			{DecisionPointID: "DP.ACCESSORY_COVERAGE", Option: "INCLUDED_IF_DECLARED"},
		},
		Outcome: model.DecisionOutcome{
			Approved:          true,
			Status:            model.StatusApproved,
			PayoutTotal:       2000,
			DeductibleApplied: 500,
			PayoutBreakdown: []model.PayoutItem{
				{ItemID: "LI-001", Label: "Bumper Repair", CoveredAmount: 2500},
				{ItemID: "LI-002", Label: "Tow Bar", CoveredAmount: 0},
			},
		},
		TraceSteps: []model.TraceStep{
			{StepID: "STEP-5", StepNumber: 5, Label: "Coverage Determination",
				Output: "Covered: CHF 2500.00, Not covered: CHF 1200.00"},
			{StepID: "STEP-6", StepNumber: 6, Label: "Deductible Application",
				Output: "Net payout after deductible: CHF 2000.00", OutputValue: &value},
		},
		GeneratedByRole: model.RoleAdjuster,
	}
}

// chatServer returns a mock OpenAI endpoint answering with content
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		resp := openai.ChatCompletionResponse{
			ID:      "chatcmpl-123",
			Object:  "chat.completion",
			Created: 1677652288,
			Model:   "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Index:        0,
					Message:      openai.ChatCompletionMessage{Role: "assistant", Content: content},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 120},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestProvider(t *testing.T, baseURL string) *OpenAIProvider {
	t.Helper()
	provider, err := NewOpenAIProvider(Config{
		APIKey:        "test-key",
		BaseURL:       baseURL,
		Model:         "gpt-4o-mini",
		Timeout:       5,
		StrictFigures: true,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return provider
}

func TestOpenAIProvider_Explain_Success(t *testing.T) {
	narrative := "The tow bar was not covered at STEP-5 because it was not declared. After the CHF 500 deductible the payout is CHF 2'000.00."
	server := chatServer(t, narrative)
	defer server.Close()

	exp, err := newTestProvider(t, server.URL).Explain(context.Background(), ExplainRequest{Run: sampleRun()})
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}

	if exp.Narrative != narrative {
		t.Errorf("unexpected narrative: %s", exp.Narrative)
	}
	if exp.RunID != "RUN-0000TEST" {
		t.Errorf("expected run id RUN-0000TEST, got %s", exp.RunID)
	}
	if len(exp.Figures) != 2 || exp.Figures[0] != "CHF 500.00" || exp.Figures[1] != "CHF 2000.00" {
		t.Errorf("unexpected figures: %v", exp.Figures)
	}
	if exp.TokensUsed != 120 {
		t.Errorf("expected 120 tokens, got %d", exp.TokensUsed)
	}
}

func TestOpenAIProvider_Explain_FigureLeak(t *testing.T) {
	server := chatServer(t, "The claimant should receive CHF 3200.00.")
	defer server.Close()

	_, err := newTestProvider(t, server.URL).Explain(context.Background(), ExplainRequest{Run: sampleRun()})

	var leak *FigureLeakError
	if !errors.As(err, &leak) {
		t.Fatalf("expected FigureLeakError, got %v", err)
	}
	if leak.Figure != "CHF 3200.00" {
		t.Errorf("expected leaked figure CHF 3200.00, got %s", leak.Figure)
	}
}

func TestOpenAIProvider_Explain_CounterfactualFigures(t *testing.T) {
	server := chatServer(t, "Declaring the tow bar raises the payout to CHF 3200.00, a change of CHF 1200.00.")
	defer server.Close()

	cf := &model.CounterfactualResult{
		BaseRunID:     "RUN-0000TEST",
		ChangeType:    model.ChangeAssumption,
		ChangeRef:     "FACT.ACCESSORY_DECLARED",
		OriginalValue: "NOT_DECLARED",
		NewValue:      "DECLARED",
		NewOutcome: model.DecisionOutcome{
			Status:            model.StatusApproved,
			PayoutTotal:       3200,
			DeductibleApplied: 500,
			PayoutBreakdown: []model.PayoutItem{
				{ItemID: "LI-001", CoveredAmount: 2500},
				{ItemID: "LI-002", CoveredAmount: 1200},
			},
		},
		Delta:     1200,
		TraceDiff: model.TraceDivergence{ChangedStepID: "STEP-5", Diverged: true, Summary: "Changed at STEP-5"},
	}

	_, err := newTestProvider(t, server.URL).Explain(context.Background(), ExplainRequest{Run: sampleRun(), Counterfactual: cf})
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
}

func TestOpenAIProvider_Explain_StrictOff(t *testing.T) {
	server := chatServer(t, "Maybe CHF 99.00?")
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := provider.Explain(context.Background(), ExplainRequest{Run: sampleRun()}); err != nil {
		t.Errorf("expected no error with strict figures off, got %v", err)
	}
}

func TestOpenAIProvider_Explain_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	_, err := newTestProvider(t, server.URL).Explain(context.Background(), ExplainRequest{Run: sampleRun()})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestOpenAIProvider_Explain_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [`))
	}))
	defer server.Close()

	_, err := newTestProvider(t, server.URL).Explain(context.Background(), ExplainRequest{Run: sampleRun()})
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestOpenAIProvider_Explain_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := provider.Explain(ctx, ExplainRequest{Run: sampleRun()}); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestOpenAIProvider_Explain_RequiresRun(t *testing.T) {
	provider, _ := NewOpenAIProvider(Config{APIKey: "test-key"})
	if _, err := provider.Explain(context.Background(), ExplainRequest{}); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("expected disabled provider, got %v / %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "openai"}); err == nil {
		t.Error("expected error for missing API key")
	}

	p, err = NewProvider(Config{Provider: "OpenAI", APIKey: "k"})
	if err != nil || p.Name() != "openai" {
		t.Errorf("expected openai provider, got %v / %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "anthropic"}); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleRun(), nil)

	for _, want := range []string{"CHF 2000.00", "CHF 1200.00", "STEP-6", "FACT.ACCESSORY_DECLARED = NOT_DECLARED", "INT-CH-MOTOR-2025.1 (2025.1)"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
}

func TestExtractFigures(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"no money here", nil},
		{"CHF 1200", []string{"CHF 1200.00"}},
		{"CHF 1'200.50 and CHF1200.5", []string{"CHF 1200.50"}},
		{"payout CHF 3,700.", []string{"CHF 3700.00"}},
		{"a delta of CHF -650", []string{"CHF -650.00"}},
	}

	for _, tt := range tests {
		got := extractFigures(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("%q: expected %v, got %v", tt.text, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%q: expected %v, got %v", tt.text, tt.want, got)
			}
		}
	}
}

type countingProvider struct {
	calls int32
	err   error
}

func (p *countingProvider) Name() string                     { return "fake" }
func (p *countingProvider) IsAvailable(context.Context) bool { return true }
func (p *countingProvider) Explain(_ context.Context, req ExplainRequest) (*Explanation, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	return &Explanation{RunID: req.Run.RunID, Narrative: "Paid CHF 2000.00."}, nil
}

func TestExplainer_CachesNarratives(t *testing.T) {
	provider := &countingProvider{}
	explainer := NewExplainer(provider, cache.NewMemoryCache(time.Minute, time.Minute), worker.NewLimiter(100, 1))

	first, err := explainer.Explain(context.Background(), sampleRun(), nil)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if first.Cached {
		t.Error("first explanation should not be cached")
	}

	second, err := explainer.Explain(context.Background(), sampleRun(), nil)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if !second.Cached || second.Narrative != first.Narrative {
		t.Errorf("expected cached copy of %q, got %+v", first.Narrative, second)
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}

	// a counterfactual is a different narrative
	cf := &model.CounterfactualResult{ChangeType: model.ChangeAssumption, ChangeRef: "FACT.ACCESSORY_DECLARED", NewValue: "DECLARED"}
	if _, err := explainer.Explain(context.Background(), sampleRun(), cf); err != nil {
		t.Fatal(err)
	}
	if provider.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.calls)
	}
}

func TestExplainer_ErrorsAreNotCached(t *testing.T) {
	provider := &countingProvider{err: &FigureLeakError{Figure: "CHF 1.00"}}
	explainer := NewExplainer(provider, cache.NewMemoryCache(time.Minute, time.Minute), nil)

	for i := 0; i < 2; i++ {
		if _, err := explainer.Explain(context.Background(), sampleRun(), nil); err == nil {
			t.Fatal("expected error")
		}
	}
	if provider.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.calls)
	}
}

func TestExplainer_Disabled(t *testing.T) {
	explainer := NewExplainer(nil, nil, nil)
	if explainer.Enabled() {
		t.Error("expected explainer to be disabled")
	}
	if _, err := explainer.Explain(context.Background(), sampleRun(), nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ModelsList{Models: []openai.Model{{ID: "gpt-4o-mini"}}})
	}))
	defer server.Close()

	if !newTestProvider(t, server.URL).IsAvailable(context.Background()) {
		t.Error("expected provider to be available")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
