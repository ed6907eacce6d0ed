package domain

import "time"

// TaskItem is a persisted unit of deferred work driven by the Task
// Monitor.
type TaskItem struct {
	ID        string
	UserID    string
	DueDate   time.Time
	Scheduled bool
	Completed bool
	Objective string
	Payload   map[string]string
}

// Eligible reports whether t is due for execution right now.
func (t TaskItem) Eligible(now time.Time) bool {
	return t.Scheduled && !t.Completed && !t.DueDate.After(now)
}

// QueueItem is one entry of an in-flight objective's task queue (C7).
type QueueItem struct {
	TaskID   int64
	TaskName string
}

// IsStopSentinel reports whether name is one of the Task Engine's
// recognized stop markers ("", "None", "None.").
func IsStopSentinel(name string) bool {
	switch name {
	case "", "None", "None.":
		return true
	default:
		return false
	}
}
