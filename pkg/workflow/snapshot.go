package workflow

import "fmt"

// Snapshot is the immutable, persistable capture of one session: the full
// ordered step list, the optional full-code step, the aggregate run status,
// the formatted elapsed-time string and the original query. Loading a
// snapshot reproduces the exact view the live session showed at capture.
type Snapshot struct {
	Query       string    `json:"query"`
	Steps       []Step    `json:"steps"`
	FullCode    *Step     `json:"full_code,omitempty"`
	Run         RunStatus `json:"run"`
	ElapsedText string    `json:"elapsed_text"`
}

// CaptureSnapshot copies the store's current state. Must be called after all
// mutations from the terminal frame have applied so it reads the latest
// state, never a stale view.
func CaptureSnapshot(store *Store, query string) Snapshot {
	snap := Snapshot{
		Query: query,
		Steps: store.Steps(),
		Run:   store.Run(),
	}
	if fc, ok := store.FullCode(); ok {
		snap.FullCode = &fc
	}
	snap.ElapsedText = FormatElapsed(snap.Run.ElapsedSeconds)
	return snap
}

// Restore populates a store from a snapshot for replay. The restored store
// renders identically to the live session at capture time, timestamps
// included.
func (s Snapshot) Restore(store *Store) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.steps = make([]*Step, len(s.Steps))
	store.byID = make(map[string]*Step, len(s.Steps))
	for i := range s.Steps {
		step := s.Steps[i]
		store.steps[i] = &step
		store.byID[step.ID] = &step
	}
	store.fullCode = nil
	if s.FullCode != nil {
		fc := *s.FullCode
		store.fullCode = &fc
	}
	store.run = s.Run
}

// FormatElapsed renders seconds as mm:ss.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
