package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Explain narrates a decision run, or a counterfactual against it
	Explain(ctx context.Context, req ExplainRequest) (*Explanation, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ExplainRequest contains the input for a narrative explanation
type ExplainRequest struct {
	// Run is the stored decision being explained
	Run *model.DecisionRun

	// Counterfactual is optional; when set the narrative explains the delta
	Counterfactual *model.CounterfactualResult

	// Prompt overrides the default prompt
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// Explanation is the narrative returned for a run
type Explanation struct {
	RunID      string   `json:"run_id"`
	Narrative  string   `json:"narrative"`
	Figures    []string `json:"figures"`
	Model      string   `json:"model"`
	TokensUsed int      `json:"tokens_used"`
	Cached     bool     `json:"cached"`
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai" or "" (disabled)
	Provider string

	// Model name (provider-specific)
	Model string

	APIKey string

	// BaseURL for OpenAI-compatible endpoints
	BaseURL string

	// HTTPProxy and HTTPSProxy override the proxy environment variables
	HTTPProxy  string
	HTTPSProxy string

	// Timeout for API requests
	Timeout int // seconds

	// StrictFigures rejects narratives quoting amounts absent from the run
	StrictFigures bool

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:      "", // Disabled by default
		Timeout:       30,
		StrictFigures: true,
		MaxTokens:     600,
	}
}

// FigureLeakError reports an amount the model quoted that the run never produced
type FigureLeakError struct {
	Figure string
}

func (e *FigureLeakError) Error() string {
	return fmt.Sprintf("figure leak: narrative quotes %s which does not appear in the decision", e.Figure)
}

// BuildPrompt constructs the default prompt. Only figures present in the run
// (and counterfactual) are listed as quotable.
func BuildPrompt(run *model.DecisionRun, cf *model.CounterfactualResult) string {
	var b strings.Builder

	b.WriteString(`You are explaining an insurance claim decision to a claims handler. The decision was made by a deterministic rule engine; you describe it, you do not re-decide it.

RULES:
1. Quote monetary amounts ONLY from this list, exactly as written:
`)
	for _, figure := range AllowedFigures(run, cf) {
		b.WriteString("   - " + figure + "\n")
	}
	b.WriteString(`2. Do not compute new amounts, percentages or totals.
3. Refer to trace steps by their step id (e.g. STEP-5).
4. Name the assumptions and interpretations that drove the outcome.

`)

	fmt.Fprintf(&b, "Decision %s for claim %s\n", run.RunID, run.ClaimID)
	fmt.Fprintf(&b, "- Status: %s\n", run.Outcome.Status)
	fmt.Fprintf(&b, "- Payout: %s (deductible %s)\n",
		engine.FormatMoney(run.Outcome.PayoutTotal), engine.FormatMoney(run.Outcome.DeductibleApplied))
	fmt.Fprintf(&b, "- Interpretation set: %s (%s)\n", run.InterpretationSetID, run.InterpretationSetVersion)
	fmt.Fprintf(&b, "- Assumption set: %s (%s)\n", run.AssumptionSetID, run.AssumptionSetVersion)

	for _, ra := range run.ResolvedAssumptions {
		fmt.Fprintf(&b, "- Assumption %s = %s (by %s)\n", ra.FactID, ra.ChosenResolution, ra.ChosenByRole)
	}
	for _, si := range run.SelectedInterpretations {
		fmt.Fprintf(&b, "- Interpretation %s = %s\n", si.DecisionPointID, si.Option)
	}

	b.WriteString("\nTrace:\n")
	for _, step := range run.TraceSteps {
		fmt.Fprintf(&b, "- %s %s: %s\n", step.StepID, step.Label, step.Output)
	}

	if cf != nil {
		b.WriteString("\nWhat-if:\n")
		fmt.Fprintf(&b, "- Changed %s %s from %q to %q\n", cf.ChangeType, cf.ChangeRef, cf.OriginalValue, cf.NewValue)
		fmt.Fprintf(&b, "- New payout: %s (delta %s)\n",
			engine.FormatMoney(cf.NewOutcome.PayoutTotal), engine.FormatMoney(cf.Delta))
		fmt.Fprintf(&b, "- %s\n", cf.TraceDiff.Summary)
		b.WriteString("\nExplain in 3-5 sentences why the payout changed.")
	} else {
		b.WriteString("\nExplain in 3-5 sentences how the payout was reached.")
	}

	return b.String()
}
