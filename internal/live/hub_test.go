// internal/live/hub_test.go
package live

import (
	"errors"
	"sync"
	"testing"
	"time"

	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	events []Envelope
	fail   bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection closed")
	}
	f.events = append(f.events, v.(Envelope))
	return nil
}

func (f *fakeConn) received() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Envelope(nil), f.events...)
}

// stuckConn parks every write until released, simulating a client whose
// TCP send buffer is full.
type stuckConn struct {
	release chan struct{}
}

func (s *stuckConn) WriteJSON(v interface{}) error {
	<-s.release
	return nil
}

// waitForEvents polls until the connection has received at least n
// pushes; delivery runs on the per-client write loop.
func waitForEvents(t *testing.T, c *fakeConn, n int) []Envelope {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(c.received()) >= n
	}, time.Second, 5*time.Millisecond)
	return c.received()
}

func TestSetBatch_BroadcastsToAllConnections(t *testing.T) {
	hub := NewHub(logger.NewTestLogger(t))
	a, b := &fakeConn{}, &fakeConn{}
	hub.Add(a)
	hub.Add(b)

	payload := map[string]interface{}{"foo": 1}
	hub.SetBatch(payload)

	for _, conn := range []*fakeConn{a, b} {
		events := waitForEvents(t, conn, 1)
		assert.Equal(t, EventEmailUpdate, events[0].Event)
		assert.Equal(t, payload, events[0].Payload)
	}
	assert.Equal(t, payload, hub.LastBatch())
}

func TestBroadcast_DisconnectedClientReceivesNothing(t *testing.T) {
	hub := NewHub(logger.NewTestLogger(t))
	stays, leaves := &fakeConn{}, &fakeConn{}
	hub.Add(stays)
	leavesID := hub.Add(leaves)

	hub.Remove(leavesID)
	hub.SetBatch(map[string]interface{}{"foo": 1})

	waitForEvents(t, stays, 1)
	assert.Empty(t, leaves.received())
	assert.Equal(t, 1, hub.Count())
}

func TestBroadcast_DeadConnectionDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(logger.NewTestLogger(t))
	dead := &fakeConn{fail: true}
	alive := &fakeConn{}
	hub.Add(dead)
	hub.Add(alive)

	hub.SetBatch("batch")

	waitForEvents(t, alive, 1)
}

func TestBroadcast_StalledConnectionDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(logger.NewTestLogger(t))
	stuck := &stuckConn{release: make(chan struct{})}
	fast := &fakeConn{}
	hub.Add(stuck)
	hub.Add(fast)

	done := make(chan struct{})
	go func() {
		hub.SetBatch(map[string]interface{}{"foo": 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetBatch blocked on a stalled connection")
	}
	waitForEvents(t, fast, 1)

	// The stalled client's queue fills and overflows; the caller and the
	// healthy client must not notice.
	for i := 0; i < sendBuffer+5; i++ {
		hub.SetBatch(i)
	}
	waitForEvents(t, fast, sendBuffer+6)

	// Connect/disconnect stays responsive while the stalled write is parked.
	id := hub.Add(&fakeConn{})
	hub.Remove(id)
	assert.Equal(t, 2, hub.Count())

	close(stuck.release)
}

func TestBroadcastApplications_CarriesUserAndRecords(t *testing.T) {
	hub := NewHub(logger.NewTestLogger(t))
	c := &fakeConn{}
	hub.Add(c)

	records := []models.ApplicationRecord{{Company: "Acme", Status: models.StatusPending}}
	hub.BroadcastApplications("u1", records)

	events := waitForEvents(t, c, 1)
	assert.Equal(t, EventApplicationsUpdate, events[0].Event)

	payload := events[0].Payload.(map[string]interface{})
	assert.Equal(t, "u1", payload["user"])
}

func TestRemove_IsIdempotent(t *testing.T) {
	hub := NewHub(logger.NewTestLogger(t))
	id := hub.Add(&fakeConn{})
	hub.Remove(id)
	hub.Remove(id)
	assert.Zero(t, hub.Count())
}
