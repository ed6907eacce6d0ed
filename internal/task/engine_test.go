package task

import (
	"context"
	"testing"

	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/interaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedInteractor struct {
	byTemplate map[string][]string // each call to a template pops the next response
	calls      map[string]int
}

func newScriptedInteractor() *scriptedInteractor {
	return &scriptedInteractor{byTemplate: map[string][]string{}, calls: map[string]int{}}
}

func (s *scriptedInteractor) Run(_ context.Context, req interaction.Request) (interaction.Result, error) {
	responses := s.byTemplate[req.Template]
	if len(responses) == 0 {
		return interaction.Result{State: interaction.StateDone}, nil
	}
	idx := s.calls[req.Template]
	s.calls[req.Template]++
	if idx >= len(responses) {
		idx = len(responses) - 1
	}
	return interaction.Result{State: interaction.StateDone, FinalResponse: responses[idx]}, nil
}

func prompts(bodies map[string]string) PromptLookup {
	return func(_ context.Context, name string) (string, error) {
		body, ok := bodies[name]
		if !ok {
			return "", assertErr("no such prompt: " + name)
		}
		return body, nil
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestEngine_SeedTaskDecomposesAndStops(t *testing.T) {
	interactor := newScriptedInteractor()
	interactor.byTemplate["execute-template"] = []string{
		"1. Research the topic\n2. Write a summary",
		"researched it",
		"None.",
	}

	var log []string
	e := New(interactor, prompts(map[string]string{"execute": "execute-template", "priority": "priority-template"}), &domain.Agent{Name: "worker"})
	e.Output = func(entry string) { log = append(log, entry) }

	err := e.Run(context.Background(), "write a report")
	require.NoError(t, err)
	assert.Contains(t, log[0], "Starting task")
	assert.Contains(t, log[len(log)-1], "All tasks completed")
}

func TestEngine_SentinelStopsImmediately(t *testing.T) {
	interactor := newScriptedInteractor()
	interactor.byTemplate["execute-template"] = []string{"None"}

	e := New(interactor, prompts(map[string]string{"execute": "execute-template"}), &domain.Agent{Name: "worker"})
	var log []string
	e.Output = func(entry string) { log = append(log, entry) }

	err := e.Run(context.Background(), "objective")
	require.NoError(t, err)
	// the seed task itself decomposes to "None" text, which has no ordinal
	// lines, so parseNewTasks yields an empty queue and the loop ends.
	assert.Contains(t, log[len(log)-1], "All tasks completed")
}

func TestEngine_CancellationStopsLoop(t *testing.T) {
	interactor := newScriptedInteractor()
	interactor.byTemplate["execute-template"] = []string{"1. Step A\n2. Step B"}

	e := New(interactor, prompts(map[string]string{"execute": "execute-template"}), &domain.Agent{Name: "worker"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx, "objective")
	require.Error(t, err)
}

func TestParseNewTasks_AssignsMonotonicIDs(t *testing.T) {
	e := &Engine{}
	tasks := e.parseNewTasks("1. First\n2. Second\nNot a task line\n3. Third")
	require.Len(t, tasks, 3)
	assert.Equal(t, int64(1), tasks[0].TaskID)
	assert.Equal(t, int64(2), tasks[1].TaskID)
	assert.Equal(t, int64(3), tasks[2].TaskID)
	assert.Equal(t, "First", tasks[0].TaskName)
	assert.Equal(t, "Third", tasks[2].TaskName)
}
