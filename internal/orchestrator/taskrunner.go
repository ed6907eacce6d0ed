package orchestrator

import (
	"context"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
)

// TaskRunnerAdapter satisfies taskmonitor.TaskRunner without this package
// importing taskmonitor, keeping the dependency direction outward (the
// binary that wires both packages supplies the glue).
type TaskRunnerAdapter struct {
	Orchestrator *Orchestrator
}

// RunTask drives one due TaskItem through the Task Engine under the agent
// named in item.Payload["agent_name"]. token carries the impersonation
// JWT minted by the Task Monitor; it is not otherwise interpreted here
// since the orchestrator resolves identity by item.UserID directly, but a
// caller wiring this into an HTTP-authenticated boundary would validate
// it there.
func (r TaskRunnerAdapter) RunTask(ctx context.Context, token string, item domain.TaskItem) error {
	agentName := item.Payload["agent_name"]
	if agentName == "" {
		return corerr.New(corerr.InvalidInput, "task item has no agent_name in payload")
	}
	return r.Orchestrator.RunTask(ctx, item.UserID, agentName, item.Objective, nil)
}
