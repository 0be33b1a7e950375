package memory

import (
	"time"

	"github.com/patrickmn/go-cache"

	"draco-chat-be/pkg/workflow"
)

// RunRegistry tracks live workflow sessions by id while they stream.
// Entries expire after an hour as a backstop; eviction closes the session
// so no ticker leaks.
type RunRegistry struct {
	cache *cache.Cache
}

func NewRunRegistry() *RunRegistry {
	c := cache.New(1*time.Hour, 10*time.Minute)
	c.OnEvicted(func(_ string, value interface{}) {
		if sess, ok := value.(*workflow.Session); ok {
			sess.Close()
		}
	})
	return &RunRegistry{
		cache: c,
	}
}

func (r *RunRegistry) Save(id string, session *workflow.Session) {
	r.cache.Set(id, session, cache.DefaultExpiration)
}

func (r *RunRegistry) Get(id string) (*workflow.Session, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*workflow.Session), true
	}
	return nil, false
}

func (r *RunRegistry) Delete(id string) {
	r.cache.Delete(id)
}
