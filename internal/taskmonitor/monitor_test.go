package taskmonitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTaskStore struct {
	mu        sync.Mutex
	pending   []domain.TaskItem
	completed []string
	deleted   []string
}

func (f *fakeTaskStore) ClaimDueTasks(_ context.Context, _ time.Time, limit int) ([]domain.TaskItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	claimed := f.pending[:limit]
	f.pending = f.pending[limit:]
	return claimed, nil
}

func (f *fakeTaskStore) CompleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeTaskStore) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTaskStore) InsertTask(_ context.Context, t domain.TaskItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, t)
	return nil
}

type fakeUserStore struct{}

func (fakeUserStore) GetUserEmail(_ context.Context, userID string) (string, error) {
	return userID + "@example.com", nil
}

type scriptedRunner struct {
	mu      sync.Mutex
	failIDs map[string]bool
	ran     []string
}

func (r *scriptedRunner) RunTask(_ context.Context, token string, item domain.TaskItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token == "" {
		panic("expected non-empty impersonation token")
	}
	r.ran = append(r.ran, item.ID)
	if r.failIDs[item.ID] {
		return assertErr("handler exploded")
	}
	return nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestMonitor_PoisonTaskIsolatedFromSibling(t *testing.T) {
	store := &fakeTaskStore{pending: []domain.TaskItem{
		{ID: "poison", UserID: "u1", Scheduled: true, DueDate: time.Now().Add(-time.Minute)},
		{ID: "healthy", UserID: "u2", Scheduled: true, DueDate: time.Now().Add(-time.Minute)},
	}}
	runner := &scriptedRunner{failIDs: map[string]bool{"poison": true}}
	m := New(store, fakeUserStore{}, runner, []byte("secret"))

	m.sweep(context.Background())

	assert.ElementsMatch(t, []string{"poison", "healthy"}, runner.ran)
	assert.Equal(t, []string{"poison"}, store.deleted)
	assert.Equal(t, []string{"healthy"}, store.completed)
}

func TestMonitor_SkipsSweepWhenAlreadyRunning(t *testing.T) {
	store := &fakeTaskStore{}
	runner := &scriptedRunner{failIDs: map[string]bool{}}
	m := New(store, fakeUserStore{}, runner, []byte("secret"))

	require.True(t, m.mu.TryLock())
	m.sweep(context.Background())
	m.mu.Unlock()

	assert.Empty(t, runner.ran)
}

func TestMonitor_NoUserIDDeletesTask(t *testing.T) {
	store := &fakeTaskStore{pending: []domain.TaskItem{
		{ID: "orphan", UserID: "", Scheduled: true, DueDate: time.Now().Add(-time.Minute)},
	}}
	runner := &scriptedRunner{failIDs: map[string]bool{}}
	m := New(store, fakeUserStore{}, runner, []byte("secret"))

	m.sweep(context.Background())

	assert.Empty(t, runner.ran)
	assert.Equal(t, []string{"orphan"}, store.deleted)
}

func TestMonitor_StartStopCooperativeShutdown(t *testing.T) {
	store := &fakeTaskStore{}
	runner := &scriptedRunner{failIDs: map[string]bool{}}
	m := New(store, fakeUserStore{}, runner, []byte("secret"))

	m.Start(context.Background())
	m.Stop()
	// Stop must return only after the loop goroutine has exited; calling it
	// twice should be a harmless no-op.
	m.Stop()
}
