package workflow

import (
	"sync"
	"time"
)

type StepStatus string

const (
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

// Step is one analysis stage shown to the user.
type Step struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Status    StepStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunError     RunState = "error"
)

func (s RunState) rank() int {
	switch s {
	case RunIdle:
		return 0
	case RunRunning:
		return 1
	case RunCompleted, RunError:
		return 2
	default:
		return 0
	}
}

// Terminal reports whether the run has finished.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunError
}

// RunStatus is the aggregate state of one workflow session. ElapsedSeconds
// advances only while Status is running.
type RunStatus struct {
	Status         RunState `json:"status"`
	Progress       int      `json:"progress"`
	ElapsedSeconds int      `json:"elapsed_seconds"`
	Error          string   `json:"error,omitempty"`
}

// Store holds the ordered step list, the optional full-code slot and the
// aggregate run status. Steps keep their first-seen position for display;
// they are never deleted, only appended or mutated in place. Safe for
// concurrent readers while one consumer mutates.
type Store struct {
	mu       sync.RWMutex
	steps    []*Step
	byID     map[string]*Step
	fullCode *Step
	run      RunStatus
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		byID: make(map[string]*Step),
		run:  RunStatus{Status: RunIdle},
		now:  time.Now,
	}
}

// Reset clears all steps and returns the run status to a clean slate with
// the given initial state. Used at session start.
func (s *Store) Reset(initial RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = nil
	s.byID = make(map[string]*Step)
	s.fullCode = nil
	s.run = RunStatus{Status: initial}
}

// UpsertStep merges content and status into the step with the given id,
// preserving its list position, or appends a new step when the id is
// unknown. Title is only applied on creation. Unknown ids never fail,
// duplicate or out-of-order delivery degrades to create-on-write.
func (s *Store) UpsertStep(id, title, content string, status StepStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if step, ok := s.byID[id]; ok {
		step.Content = content
		step.Status = status
		step.Timestamp = s.now()
		return
	}

	step := &Step{
		ID:        id,
		Title:     title,
		Content:   content,
		Status:    status,
		Timestamp: s.now(),
	}
	s.steps = append(s.steps, step)
	s.byID[id] = step
}

// MarkAllInProgressAsCompleted bulk-transitions every open step to
// completed. Called when a new distinct step is about to begin, since only
// one step is active at a time from the user's perspective.
func (s *Store) MarkAllInProgressAsCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, step := range s.steps {
		if step.Status == StepInProgress {
			step.Status = StepCompleted
			step.Timestamp = s.now()
		}
	}
}

// SetFullCode applies the same create-or-update merge rule to the
// distinguished full-code slot, which lives outside the ordered list.
func (s *Store) SetFullCode(title, content string, status StepStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fullCode != nil {
		s.fullCode.Content = content
		s.fullCode.Status = status
		s.fullCode.Timestamp = s.now()
		return
	}
	s.fullCode = &Step{
		ID:        "full_code",
		Title:     title,
		Content:   content,
		Status:    status,
		Timestamp: s.now(),
	}
}

// SetStatus moves the run state forward. Backward transitions and any
// transition out of a terminal state are ignored.
func (s *Store) SetStatus(state RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusLocked(state)
}

func (s *Store) setStatusLocked(state RunState) {
	if s.run.Status.Terminal() || state.rank() < s.run.Status.rank() {
		return
	}
	s.run.Status = state
}

// SetProgress clamps to 0-100 and never runs backward.
func (s *Store) SetProgress(progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if progress > 100 {
		progress = 100
	}
	if progress > s.run.Progress {
		s.run.Progress = progress
	}
}

// TickElapsed advances the elapsed counter by one second while running.
func (s *Store) TickElapsed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run.Status == RunRunning {
		s.run.ElapsedSeconds++
	}
}

// Complete marks the run finished with full progress.
func (s *Store) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run.Status.Terminal() {
		return
	}
	s.run.Status = RunCompleted
	s.run.Progress = 100
}

// Fail marks the run as errored with the given message.
func (s *Store) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run.Status.Terminal() {
		return
	}
	s.run.Status = RunError
	s.run.Error = message
}

// Steps returns a copy of the ordered step list.
func (s *Store) Steps() []Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Step, len(s.steps))
	for i, step := range s.steps {
		out[i] = *step
	}
	return out
}

// FullCode returns the full-code slot, if populated.
func (s *Store) FullCode() (Step, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fullCode == nil {
		return Step{}, false
	}
	return *s.fullCode, true
}

// Run returns the current aggregate status.
func (s *Store) Run() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run
}

// Len returns the number of steps in the ordered list.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps)
}
