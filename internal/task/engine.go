// Package task implements the Task Engine (C7): the autonomous
// seed/pop/execute/replan loop for a single objective, using a
// deque-based queue with a "None"/"None." sentinel stop condition and a
// resolver/execution split per queued item.
package task

import (
	"context"
	"fmt"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/interaction"
	"github.com/agixt-go/orchestrator/internal/observability"
)

// seedTaskName is inserted as the sole queue entry when a run starts with
// an empty queue.
const seedTaskName = "Develop a task list to complete the objective; return 'None' if not necessary."

// Interactor runs one Interaction Loop turn.
type Interactor interface {
	Run(ctx context.Context, req interaction.Request) (interaction.Result, error)
}

// PromptLookup resolves a named prompt template's body ("execute",
// "task", "priority").
type PromptLookup func(ctx context.Context, name string) (string, error)

// OutputSink receives the append-only progress log; it is the
// authoritative record of what a task run did.
type OutputSink func(entry string)

// Engine drives one objective's autonomous task loop.
type Engine struct {
	Interactor Interactor
	Prompts    PromptLookup
	Agent      *domain.Agent
	Output     OutputSink
	nextID     int64
}

func New(interactor Interactor, prompts PromptLookup, agent *domain.Agent) *Engine {
	return &Engine{Interactor: interactor, Prompts: prompts, Agent: agent}
}

func (e *Engine) emit(entry string) {
	if e.Output != nil {
		e.Output(entry)
	}
}

func (e *Engine) nextTaskID() int64 {
	e.nextID++
	return e.nextID
}

// Run executes the autonomous loop for objective until the queue drains,
// a stop-sentinel task is popped, or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, objective string) error {
	log := observability.LoggerWithTrace(ctx)
	queue := []domain.QueueItem{{TaskID: e.nextTaskID(), TaskName: seedTaskName}}

	e.emit(fmt.Sprintf("Starting task with objective: %s.", objective))

	for len(queue) > 0 {
		if ctx.Err() != nil {
			e.emit("Task run cancelled.")
			return corerr.Wrap(corerr.Cancelled, "task run cancelled", ctx.Err())
		}

		current := queue[0]
		queue = queue[1:]

		if domain.IsStopSentinel(current.TaskName) {
			break
		}

		e.emit(fmt.Sprintf("Executing task %d: %s", current.TaskID, current.TaskName))
		result, err := e.runOne(ctx, objective, current.TaskName)
		if err != nil {
			log.Error().Err(err).Int64("task_id", current.TaskID).Msg("task_execution_failed")
			e.emit(fmt.Sprintf("Task %d failed: %s", current.TaskID, err.Error()))
			continue
		}
		e.emit(fmt.Sprintf("Task Result:\n\n%s", result))

		if current.TaskName == seedTaskName {
			queue = e.parseNewTasks(result)
		}

		if len(queue) > 1 {
			queue = e.reprioritize(ctx, objective, queue)
		}
	}

	e.emit("All tasks completed or stopped.")
	return nil
}

// runOne executes task via the Interaction Loop with the "execute"
// template, matching Tasks.py's instruction_agent.
func (e *Engine) runOne(ctx context.Context, objective, taskName string) (string, error) {
	body, err := e.Prompts(ctx, "execute")
	if err != nil {
		return "", corerr.Wrap(corerr.UpstreamFailure, "resolve execute template", err)
	}
	res, err := e.Interactor.Run(ctx, interaction.Request{
		Agent:     e.Agent,
		UserInput: taskName,
		Template:  body,
	})
	if err != nil {
		return "", err
	}
	return res.FinalResponse, nil
}

// parseNewTasks extracts "N. task description" lines from the seed task's
// decomposition response, assigning each a fresh monotonically increasing
// task_id (invariant).
func (e *Engine) parseNewTasks(result string) []domain.QueueItem {
	var out []domain.QueueItem
	for _, line := range splitLines(result) {
		name, ok := stripOrdinalPrefix(line)
		if !ok {
			continue
		}
		out = append(out, domain.QueueItem{TaskID: e.nextTaskID(), TaskName: name})
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

// stripOrdinalPrefix matches lines of the form "<digits>. <text>".
func stripOrdinalPrefix(line string) (string, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != '.' {
		return "", false
	}
	rest := line[i+1:]
	rest = trimLeadingSpace(rest)
	if rest == "" {
		return "", false
	}
	return rest, true
}

func trimLeadingSpace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[i:]
}

// reprioritize re-prompts with the "priority" template and reorders queue
// to match the returned task-name order; names the template doesn't
// mention keep their relative order appended at the end.
func (e *Engine) reprioritize(ctx context.Context, objective string, queue []domain.QueueItem) []domain.QueueItem {
	body, err := e.Prompts(ctx, "priority")
	if err != nil {
		return queue
	}
	names := make([]string, len(queue))
	for i, q := range queue {
		names[i] = q.TaskName
	}
	res, err := e.Interactor.Run(ctx, interaction.Request{
		Agent:     e.Agent,
		UserInput: objective,
		Template:  body,
	})
	if err != nil {
		return queue
	}

	byName := make(map[string][]domain.QueueItem, len(queue))
	for _, q := range queue {
		byName[q.TaskName] = append(byName[q.TaskName], q)
	}

	var reordered []domain.QueueItem
	for _, line := range splitLines(res.FinalResponse) {
		name, ok := stripOrdinalPrefix(line)
		if !ok {
			continue
		}
		if items, ok := byName[name]; ok && len(items) > 0 {
			reordered = append(reordered, items[0])
			byName[name] = items[1:]
		}
	}
	// Anything the priority response didn't mention keeps its place, appended.
	for _, q := range queue {
		if items, ok := byName[q.TaskName]; ok && len(items) > 0 && items[0].TaskID == q.TaskID {
			reordered = append(reordered, q)
			byName[q.TaskName] = items[1:]
		}
	}
	if len(reordered) == 0 {
		return queue
	}
	return reordered
}
