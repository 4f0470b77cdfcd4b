// Package task defines AudioTask, the unit of work that flows through the
// recording pipeline from file detection to final response delivery, and the
// one-way state machine every task progresses through.
package task

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Hurricane0017/agri-advisor/core"
)

// State is one position in an AudioTask's one-way progression.
type State string

const (
	Pending         State = "pending"
	Converting      State = "converting"
	Transcribing    State = "transcribing"
	Translating     State = "translating"
	TranscriptReady State = "transcript_ready"
	Orchestrating   State = "orchestrating"
	Responding      State = "responding"
	Done            State = "done"
	Failed          State = "failed"
)

// order is the declared one-way progression; Failed is reachable from any
// non-terminal state and is terminal, same as Done.
var order = []State{Pending, Converting, Transcribing, Translating, TranscriptReady, Orchestrating, Responding, Done}

func rank(s State) int {
	for i, st := range order {
		if st == s {
			return i
		}
	}
	return -1
}

// AudioTask represents a unit of work for one recording. Its state
// progression is monotone and one-way: Advance refuses to move backward and
// Fail is terminal.
type AudioTask struct {
	mu sync.Mutex

	ID         string
	SourcePath string
	DetectedAt time.Time

	state    State
	errKind  core.ErrorCode
	errCause error
}

// New derives a stable id from the source filename (directory stripped,
// extension preserved, separators forbidden) and returns a Pending task.
func New(sourcePath string) *AudioTask {
	base := filepath.Base(sourcePath)
	id := strings.ReplaceAll(base, string(filepath.Separator), "_")
	return &AudioTask{
		ID:         id,
		SourcePath: sourcePath,
		DetectedAt: time.Now(),
		state:      Pending,
	}
}

// State returns the task's current state.
func (t *AudioTask) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Advance moves the task to the next state. It refuses to move to a state
// at or before the current rank, and refuses any transition once the task
// is terminal (Done or Failed).
func (t *AudioTask) Advance(next State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Done || t.state == Failed {
		return fmt.Errorf("task/task: %s: cannot advance from terminal state %q", t.ID, t.state)
	}
	if rank(next) <= rank(t.state) {
		return fmt.Errorf("task/task: %s: illegal transition %q -> %q", t.ID, t.state, next)
	}
	t.state = next
	return nil
}

// Fail transitions the task to Failed from any non-terminal state, carrying
// the terminal error kind and cause. Fail is idempotent once already Failed.
func (t *AudioTask) Fail(kind core.ErrorCode, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Failed || t.state == Done {
		return
	}
	t.state = Failed
	t.errKind = kind
	t.errCause = cause
}

// Err returns the terminal error kind and cause recorded by Fail, or
// ("", nil) if the task has not failed.
func (t *AudioTask) Err() (core.ErrorCode, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errKind, t.errCause
}
