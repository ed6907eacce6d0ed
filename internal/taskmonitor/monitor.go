// Package taskmonitor implements the Task Monitor (C8): the cross-user
// background sweep that drives due TaskItems on a 60-second tick, with a
// non-reentrant sweep guard, chunked concurrent dispatch, and short-lived
// per-user impersonation JWTs minted for each dispatched run.
package taskmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/observability"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/golang-jwt/jwt/v5"
)

const (
	pollPeriod = 60 * time.Second
	chunkSize  = 5
	claimBatch = 100
	tokenTTL   = 24 * time.Hour
)

// TaskRunner executes one claimed TaskItem, acting as the impersonated
// user identified by token.
type TaskRunner interface {
	RunTask(ctx context.Context, token string, item domain.TaskItem) error
}

// Monitor polls TaskStore for due tasks and dispatches them to a
// TaskRunner under an impersonation JWT.
type Monitor struct {
	Tasks      ports.TaskStore
	Users      ports.UserStore
	Runner     TaskRunner
	SigningKey []byte

	mu     sync.Mutex // non-reentrant process lock, at most one sweep in flight
	cancel context.CancelFunc
	done   chan struct{}
}

func New(tasks ports.TaskStore, users ports.UserStore, runner TaskRunner, signingKey []byte) *Monitor {
	return &Monitor{Tasks: tasks, Users: users, Runner: runner, SigningKey: signingKey}
}

// Start begins the 60s polling loop in a background goroutine. Calling
// Start twice is a no-op until Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	if m.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(pollPeriod)
		defer ticker.Stop()
		observability.LoggerWithTrace(loopCtx).Info().Msg("task_monitor_started")
		for {
			select {
			case <-loopCtx.Done():
				observability.LoggerWithTrace(loopCtx).Info().Msg("task_monitor_stopped")
				return
			case <-ticker.C:
				m.sweep(loopCtx)
			}
		}
	}()
}

// Stop cancels the polling loop and waits for the in-flight sweep to end.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
}

// sweep claims due tasks and dispatches them in chunks of 5 concurrently.
// A non-reentrant lock ensures at most one sweep runs at a time even if
// the ticker fires while a long sweep is still in flight.
func (m *Monitor) sweep(ctx context.Context) {
	if !m.mu.TryLock() {
		observability.LoggerWithTrace(ctx).Debug().Msg("task_monitor_sweep_skipped_already_running")
		return
	}
	defer m.mu.Unlock()

	log := observability.LoggerWithTrace(ctx)
	pending, err := m.Tasks.ClaimDueTasks(ctx, time.Now(), claimBatch)
	if err != nil {
		log.Error().Err(err).Msg("task_monitor_claim_failed")
		return
	}
	if len(pending) == 0 {
		return
	}

	for start := 0; start < len(pending); start += chunkSize {
		end := start + chunkSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		var wg sync.WaitGroup
		for _, item := range chunk {
			item := item
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.processOne(ctx, item)
			}()
		}
		wg.Wait()
	}
}

// processOne mints an impersonation token and runs item. A poison task —
// one whose handler fails — is deleted rather than retried, matching
// TaskMonitor.py's process_single_task error path.
func (m *Monitor) processOne(ctx context.Context, item domain.TaskItem) {
	log := observability.LoggerWithTrace(ctx)

	if item.UserID == "" {
		log.Error().Str("task_id", item.ID).Msg("task_monitor_task_has_no_user")
		if err := m.Tasks.DeleteTask(ctx, item.ID); err != nil {
			log.Error().Err(err).Str("task_id", item.ID).Msg("task_monitor_delete_failed")
		}
		return
	}

	token, err := m.impersonate(ctx, item.UserID)
	if err != nil {
		log.Error().Err(err).Str("task_id", item.ID).Msg("task_monitor_impersonation_failed")
		return
	}

	if err := m.Runner.RunTask(ctx, token, item); err != nil {
		log.Error().Err(err).Str("task_id", item.ID).Msg("task_monitor_task_failed_deleting_as_poison")
		if delErr := m.Tasks.DeleteTask(ctx, item.ID); delErr != nil {
			log.Error().Err(delErr).Str("task_id", item.ID).Msg("task_monitor_delete_failed")
		}
		return
	}

	if err := m.Tasks.CompleteTask(ctx, item.ID); err != nil {
		log.Error().Err(err).Str("task_id", item.ID).Msg("task_monitor_complete_failed")
	}
}

// impersonate mints a short-lived HS256 JWT carrying the user's id and
// email, mirroring TaskMonitor.py's impersonate_user.
func (m *Monitor) impersonate(ctx context.Context, userID string) (string, error) {
	email, err := m.Users.GetUserEmail(ctx, userID)
	if err != nil {
		return "", corerr.Wrap(corerr.UpstreamFailure, "resolve user email for impersonation", err)
	}
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.SigningKey)
	if err != nil {
		return "", corerr.Wrap(corerr.UpstreamFailure, "sign impersonation token", err)
	}
	return signed, nil
}
