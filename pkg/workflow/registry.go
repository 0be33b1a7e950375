package workflow

// Registry maps canonical step keys to step ids within one session.
// Mutations are synchronous so back-to-back events for the same step both
// see the first registration. Never shared across sessions.
type Registry struct {
	byKey map[string]string
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]string)}
}

// Resolve returns the step id registered for the key, if any.
func (r *Registry) Resolve(canonicalKey string) (string, bool) {
	id, ok := r.byKey[canonicalKey]
	return id, ok
}

func (r *Registry) Register(canonicalKey, stepID string) {
	r.byKey[canonicalKey] = stepID
}

// Reset clears all registrations. Called when a new session starts.
func (r *Registry) Reset() {
	r.byKey = make(map[string]string)
}
