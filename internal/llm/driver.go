package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/observability"
	"github.com/agixt-go/orchestrator/internal/ports"
)

const (
	defaultMinFloor    = 256
	defaultSafetyMargin = 64
	maxRetries          = 3
)

// Request describes one Inference Driver call.
type Request struct {
	Prompt              string
	EstimatedInputTokens int
	ProviderMaxTokens    int
	MinFloor             int
	SafetyMargin         int
	WantJSON             bool
	Images               [][]byte
}

// Result is the outcome of a successful Driver call.
type Result struct {
	Text      string
	JSON      json.RawMessage // set only when Request.WantJSON succeeded
	MaxOutput int
}

// Driver executes one-shot LLM calls with budgeting, retry, and optional
// structured-output validation.
type Driver struct {
	Provider ports.LLMProvider
	// Sleep is overridable for tests.
	Sleep func(time.Duration)
}

func NewDriver(p ports.LLMProvider) *Driver {
	return &Driver{Provider: p, Sleep: time.Sleep}
}

// Infer performs the budgeted, retrying call described by req.
func (d *Driver) Infer(ctx context.Context, req Request) (Result, error) {
	minFloor := req.MinFloor
	if minFloor <= 0 {
		minFloor = defaultMinFloor
	}
	safety := req.SafetyMargin
	if safety <= 0 {
		safety = defaultSafetyMargin
	}

	maxOutput := req.ProviderMaxTokens - req.EstimatedInputTokens - safety
	if maxOutput < minFloor {
		if req.ProviderMaxTokens-req.EstimatedInputTokens-safety < 0 {
			return Result{}, corerr.New(corerr.BudgetExceeded, "input tokens exceed provider budget")
		}
		maxOutput = minFloor
	}

	text, err := d.inferWithRetry(ctx, req.Prompt, maxOutput, req.Images)
	if err != nil {
		return Result{}, err
	}

	result := Result{Text: text, MaxOutput: maxOutput}
	if !req.WantJSON {
		return result, nil
	}

	if obj, ok := ExtractJSONObject(text); ok {
		result.JSON = json.RawMessage(obj)
		return result, nil
	}

	// One reformat re-prompt before giving up.
	reformatPrompt := "The previous response was not valid JSON. Reformat the following as a single JSON object with no surrounding text:\n\n" + text
	retryText, err := d.inferWithRetry(ctx, reformatPrompt, maxOutput, nil)
	if err != nil {
		return result, nil // surface the raw text; caller decides how to proceed
	}
	result.Text = retryText
	if obj, ok := ExtractJSONObject(retryText); ok {
		result.JSON = json.RawMessage(obj)
	}
	return result, nil
}

// inferWithRetry retries transient provider failures with exponential
// backoff, up to maxRetries attempts.
func (d *Driver) inferWithRetry(ctx context.Context, prompt string, maxOutput int, images [][]byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", corerr.Wrap(corerr.Cancelled, "context cancelled before inference", ctx.Err())
		}
		text, err := d.Provider.Infer(ctx, prompt, maxOutput, images)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", corerr.Wrap(corerr.UpstreamFailure, "provider call failed", err)
		}
		observability.LoggerWithTrace(ctx).Warn().
			Err(err).Int("attempt", attempt+1).Msg("llm_transient_retry")
		if attempt < maxRetries-1 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 200 * time.Millisecond
			if d.Sleep != nil {
				d.Sleep(backoff)
			}
		}
	}
	return "", corerr.Wrap(corerr.UpstreamFailure, "provider call failed after retries", lastErr)
}

// TransientError marks an error as eligible for the Driver's internal
// retry loop (connection reset, 5xx, rate limit).
type TransientError struct{ Err error }

func (t *TransientError) Error() string { return t.Err.Error() }
func (t *TransientError) Unwrap() error { return t.Err }

func isTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
