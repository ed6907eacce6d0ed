package llm

import (
	"context"
	"testing"
	"time"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeProvider) Infer(ctx context.Context, prompt string, maxOutputTokens int, images [][]byte) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", nil
}

func noSleep(time.Duration) {}

func TestDriver_BudgetExceeded(t *testing.T) {
	d := &Driver{Provider: &fakeProvider{}, Sleep: noSleep}
	_, err := d.Infer(context.Background(), Request{
		Prompt:               "hi",
		EstimatedInputTokens: 1000,
		ProviderMaxTokens:    100,
	})
	require.Error(t, err)
	assert.Equal(t, corerr.BudgetExceeded, corerr.KindOf(err))
}

func TestDriver_RetriesTransientThenSucceeds(t *testing.T) {
	p := &fakeProvider{
		errs:      []error{&TransientError{Err: assertErr("reset")}, nil},
		responses: []string{"", "ok"},
	}
	d := &Driver{Provider: p, Sleep: noSleep}
	res, err := d.Infer(context.Background(), Request{Prompt: "hi", ProviderMaxTokens: 1000})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 2, p.calls)
}

func TestDriver_NonTransientFailsImmediately(t *testing.T) {
	p := &fakeProvider{errs: []error{assertErr("bad request")}}
	d := &Driver{Provider: p, Sleep: noSleep}
	_, err := d.Infer(context.Background(), Request{Prompt: "hi", ProviderMaxTokens: 1000})
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, corerr.UpstreamFailure, corerr.KindOf(err))
}

func TestDriver_JSONReformatRetry(t *testing.T) {
	p := &fakeProvider{responses: []string{"not json", `{"response":"ok"}`}}
	d := &Driver{Provider: p, Sleep: noSleep}
	res, err := d.Infer(context.Background(), Request{Prompt: "hi", ProviderMaxTokens: 1000, WantJSON: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"ok"}`, string(res.JSON))
	assert.Equal(t, 2, p.calls)
}

func TestExtractJSONObject_StripsCodeFence(t *testing.T) {
	obj, ok := ExtractJSONObject("```json\n{\"a\": {\"b\": 1}}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, obj)
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	_, ok := ExtractJSONObject("no object here")
	assert.False(t, ok)
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }
