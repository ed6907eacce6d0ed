package chain

import (
	"context"
	"testing"
	"time"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/interaction"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInteractor struct {
	responses map[string]string // keyed by template body
}

func (f *fakeInteractor) Run(_ context.Context, req interaction.Request) (interaction.Result, error) {
	return interaction.Result{State: interaction.StateDone, FinalResponse: f.responses[req.Template]}, nil
}

type fakeExecutor struct {
	calls []string
}

func (f *fakeExecutor) Execute(_ context.Context, toolName string, args map[string]any, _ ports.ToolCallContext) (string, error) {
	f.calls = append(f.calls, toolName)
	return "executed:" + toolName, nil
}

func newChainWithPrompts(steps ...*domain.ChainStep) *domain.Chain {
	return &domain.Chain{Name: "test", Steps: steps}
}

func TestEngine_PromptStepSubstitution(t *testing.T) {
	interactor := &fakeInteractor{responses: map[string]string{"fetch widgets": "fetched data"}}
	e := New(interactor, nil, func(_ context.Context, name string) (string, error) {
		return name, nil
	}, nil)
	e.Now = func() time.Time { return time.Unix(0, 0) }

	c := newChainWithPrompts(&domain.ChainStep{
		StepNumber: 1,
		PromptType: domain.StepPrompt,
		Payload:    map[string]string{"prompt_name": "fetch {user_input}"},
	})

	res, err := e.Run(context.Background(), c, 1, "widgets", "researcher")
	require.NoError(t, err)
	assert.Equal(t, 0, res.FailedAtStep)
	assert.Equal(t, "fetched data", res.LastResponse)
}

func TestEngine_StepNReferenceAcrossSteps(t *testing.T) {
	interactor := &fakeInteractor{responses: map[string]string{
		"step one prompt":           "result-one",
		"use previous: result-one":  "result-two",
	}}
	e := New(interactor, nil, func(_ context.Context, name string) (string, error) { return name, nil }, nil)

	c := newChainWithPrompts(
		&domain.ChainStep{StepNumber: 1, PromptType: domain.StepPrompt, Payload: map[string]string{"prompt_name": "step one prompt"}},
		&domain.ChainStep{StepNumber: 2, PromptType: domain.StepPrompt, Payload: map[string]string{"prompt_name": "use previous: {STEP1}"}},
	)

	res, err := e.Run(context.Background(), c, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, "result-two", res.LastResponse)
	assert.Equal(t, "result-one", res.AllResponses[1])
}

func TestEngine_ForwardReferenceFails(t *testing.T) {
	interactor := &fakeInteractor{responses: map[string]string{}}
	e := New(interactor, nil, func(_ context.Context, name string) (string, error) { return name, nil }, nil)

	c := newChainWithPrompts(
		&domain.ChainStep{StepNumber: 1, PromptType: domain.StepPrompt, Payload: map[string]string{"prompt_name": "needs {STEP2}"}},
		&domain.ChainStep{StepNumber: 2, PromptType: domain.StepPrompt, Payload: map[string]string{"prompt_name": "second"}},
	)

	res, err := e.Run(context.Background(), c, 1, "", "")
	require.Error(t, err)
	assert.Equal(t, corerr.MissingDependency, corerr.KindOf(err))
	assert.Equal(t, 1, res.FailedAtStep)
}

func TestEngine_CommandStep(t *testing.T) {
	exec := &fakeExecutor{}
	e := New(nil, exec, nil, nil)

	c := newChainWithPrompts(&domain.ChainStep{
		StepNumber: 1,
		PromptType: domain.StepCommand,
		Payload:    map[string]string{"command_name": "echo", "text": "hi"},
	})

	res, err := e.Run(context.Background(), c, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, "executed:echo", res.LastResponse)
	assert.Equal(t, []string{"echo"}, exec.calls)
}

func TestEngine_MidwayFailureReportsResumePoint(t *testing.T) {
	exec := &fakeExecutor{}
	interactor := &fakeInteractor{responses: map[string]string{}} // unregistered template → ""
	e := New(interactor, exec, func(_ context.Context, name string) (string, error) { return name, nil }, nil)

	c := newChainWithPrompts(
		&domain.ChainStep{StepNumber: 1, PromptType: domain.StepCommand, Payload: map[string]string{"command_name": "echo"}},
		&domain.ChainStep{StepNumber: 2, PromptType: domain.StepPrompt, Payload: map[string]string{"prompt_name": "unregistered"}},
	)

	res, err := e.Run(context.Background(), c, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.FailedAtStep)
	assert.Equal(t, "failed on step 2; resume with from_step=2", res.Error())
}

func TestMoveStep_ShiftDownPreservesDensity(t *testing.T) {
	c := newChainWithPrompts(
		&domain.ChainStep{StepNumber: 1},
		&domain.ChainStep{StepNumber: 2},
		&domain.ChainStep{StepNumber: 3},
		&domain.ChainStep{StepNumber: 4},
		&domain.ChainStep{StepNumber: 5},
	)
	require.NoError(t, MoveStep(c, 2, 5))
	assert.True(t, c.Dense())
	step, _ := c.StepByNumber(5)
	assert.Same(t, c.Steps[1], step) // the originally-2nd step is now numbered 5
}

func TestMoveStep_NoOpWhenSame(t *testing.T) {
	c := newChainWithPrompts(&domain.ChainStep{StepNumber: 1}, &domain.ChainStep{StepNumber: 2})
	require.NoError(t, MoveStep(c, 1, 1))
	n, _ := c.StepByNumber(1)
	assert.Same(t, c.Steps[0], n)
}
