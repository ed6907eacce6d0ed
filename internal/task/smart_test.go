package task

import (
	"context"
	"testing"

	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/interaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInteractor struct {
	n int
}

func (c *countingInteractor) Run(_ context.Context, req interaction.Request) (interaction.Result, error) {
	c.n++
	if req.Template == "resolver-template" {
		return interaction.Result{FinalResponse: "resolved: " + req.History}, nil
	}
	return interaction.Result{FinalResponse: "attempt"}, nil
}

func TestSmartRun_RunsShotsThenResolves(t *testing.T) {
	interactor := &countingInteractor{}
	e := New(interactor, prompts(map[string]string{"execute": "execute-template", "resolver": "resolver-template"}), &domain.Agent{Name: "worker"})

	result, err := e.SmartRun(context.Background(), "objective", "do the thing", 3)
	require.NoError(t, err)
	assert.Contains(t, result, "resolved:")
	assert.Equal(t, 4, interactor.n) // 3 shots + 1 resolver call
}

func TestSmartRun_FallsBackWithoutResolverTemplate(t *testing.T) {
	interactor := &countingInteractor{}
	e := New(interactor, prompts(map[string]string{"execute": "execute-template"}), &domain.Agent{Name: "worker"})

	result, err := e.SmartRun(context.Background(), "objective", "do the thing", 2)
	require.NoError(t, err)
	assert.Contains(t, result, "attempt")
}
