package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Raw() *zap.Logger                                             { return zap.NewNop() }
func (nopLogger) Sync() error                                                  { return nil }

func (h *Hub) watcherCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func waitForWatchers(t *testing.T, h *Hub, sessionID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.watcherCount(sessionID) == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHubDropsSlowWatcherWithoutPanic(t *testing.T) {
	h := NewHub(nil, nopLogger{})
	go h.Run()

	slow := &Client{Hub: h, SessionID: "run-1", Send: make(chan []byte, 1)}
	h.register <- slow
	waitForWatchers(t, h, "run-1", 1)

	// First update fills the buffer, the following ones overflow it and
	// must evict the watcher instead of crashing the hub goroutine.
	h.Publish("run-1", map[string]int{"seq": 1})
	h.Publish("run-1", map[string]int{"seq": 2})
	h.Publish("run-1", map[string]int{"seq": 3})
	waitForWatchers(t, h, "run-1", 0)

	// Send must be closed exactly once; a second close would have
	// panicked Run before this drain.
	<-slow.Send
	_, open := <-slow.Send
	assert.False(t, open)

	// The hub goroutine is still alive and serving.
	fresh := &Client{Hub: h, SessionID: "run-1", Send: make(chan []byte, 4)}
	h.register <- fresh
	waitForWatchers(t, h, "run-1", 1)

	h.Publish("run-1", map[string]int{"seq": 4})
	select {
	case msg := <-fresh.Send:
		assert.Contains(t, string(msg), `"seq":4`)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not receive the update")
	}
}

func TestHubIgnoresOwnClusterEnvelope(t *testing.T) {
	h := NewHub(nil, nopLogger{})
	go h.Run()

	watcher := &Client{Hub: h, SessionID: "run-2", Send: make(chan []byte, 4)}
	h.register <- watcher
	waitForWatchers(t, h, "run-2", 1)

	message := json.RawMessage(`{"seq":1}`)

	own, err := json.Marshal(clusterEnvelope{Origin: h.instanceID, SessionID: "run-2", Message: message})
	require.NoError(t, err)
	h.handleEnvelope(own)

	select {
	case <-watcher.Send:
		t.Fatal("self-published envelope must not be re-delivered")
	case <-time.After(50 * time.Millisecond):
	}

	foreign, err := json.Marshal(clusterEnvelope{Origin: "other-instance", SessionID: "run-2", Message: message})
	require.NoError(t, err)
	h.handleEnvelope(foreign)

	select {
	case msg := <-watcher.Send:
		assert.JSONEq(t, `{"seq":1}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("foreign envelope was not delivered")
	}
}
