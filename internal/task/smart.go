package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/interaction"
	"golang.org/x/sync/errgroup"
)

// SmartRun performs `shots` independent parallel Interaction Loop runs of
// the same task, then reduces them into one answer via a resolver
// inference pass over all of the shots' outputs.
func (e *Engine) SmartRun(ctx context.Context, objective, taskName string, shots int) (string, error) {
	if shots < 1 {
		shots = 1
	}
	body, err := e.Prompts(ctx, "execute")
	if err != nil {
		return "", corerr.Wrap(corerr.UpstreamFailure, "resolve execute template", err)
	}

	answers := make([]string, shots)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < shots; i++ {
		i := i
		g.Go(func() error {
			res, err := e.Interactor.Run(gctx, interaction.Request{
				Agent:     e.Agent,
				UserInput: taskName,
				Template:  body,
			})
			if err != nil {
				return err
			}
			answers[i] = res.FinalResponse
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	resolverBody, err := e.Prompts(ctx, "resolver")
	if err != nil {
		return joinAnswers(answers), nil
	}
	var b strings.Builder
	for i, a := range answers {
		fmt.Fprintf(&b, "Attempt %d:\n%s\n\n", i+1, a)
	}
	res, err := e.Interactor.Run(ctx, interaction.Request{
		Agent:     e.Agent,
		UserInput: objective,
		Template:  resolverBody,
		History:   b.String(),
	})
	if err != nil {
		return joinAnswers(answers), nil
	}
	return res.FinalResponse, nil
}

func joinAnswers(answers []string) string {
	return strings.Join(answers, "\n\n")
}
