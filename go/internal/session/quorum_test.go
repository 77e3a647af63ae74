package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openmat/scorecast/go/internal/channel"
	"github.com/openmat/scorecast/go/internal/events"
)

// fakePushChannel records published messages and hands subscriptions back to
// the test so it can inject deliveries.
type fakePushChannel struct {
	mu        sync.Mutex
	connected bool
	handlers  map[string]channel.Handler
	published []fakeMessage
	reconnect []func()
}

type fakeMessage struct {
	subject string
	body    []byte
}

func newFakePushChannel() *fakePushChannel {
	return &fakePushChannel{
		connected: true,
		handlers:  make(map[string]channel.Handler),
	}
}

type fakeSubscription struct {
	ch      *fakePushChannel
	subject string
}

func (s *fakeSubscription) Unsubscribe() error {
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	delete(s.ch.handlers, s.subject)
	return nil
}

func (f *fakePushChannel) Subscribe(subject string, h channel.Handler) (channel.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[subject] = h
	return &fakeSubscription{ch: f, subject: subject}, nil
}

func (f *fakePushChannel) Publish(subject string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, fakeMessage{subject: subject, body: body})
	return nil
}

func (f *fakePushChannel) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePushChannel) NotifyReconnect(fn func()) (remove func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnect = append(f.reconnect, fn)
	return func() {}
}

func (f *fakePushChannel) setConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

func (f *fakePushChannel) deliver(subject string, body []byte) bool {
	f.mu.Lock()
	h, ok := f.handlers[subject]
	f.mu.Unlock()
	if !ok {
		return false
	}
	h(body)
	return true
}

func (f *fakePushChannel) publishedTo(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msg := range f.published {
		if msg.subject == subject {
			n++
		}
	}
	return n
}

func (f *fakePushChannel) subscriptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func newTestQuorum(ch channel.PushChannel, clock clockwork.Clock) (*QuorumTracker, *Store) {
	st := NewStore(newTestSession(), 100)
	return NewQuorumTracker(st, ch, "match-1", clock, 2*time.Second), st
}

func TestQuorumApplyConnectionsLastWriteWins(t *testing.T) {
	tracker, st := newTestQuorum(newFakePushChannel(), clockwork.NewFakeClock())

	tracker.ApplyConnections([]byte(`{"connectedCount":3}`))
	tracker.ApplyConnections([]byte(`{"connectedCount":5,"connectedAssessors":["a1","a2","a3","a4","a5"]}`))
	tracker.ApplyConnections([]byte(`{"connectedCount":4}`))

	if got := st.Session().ConnectedAssessorCount; got != 4 {
		t.Errorf("ConnectedAssessorCount = %d, want the latest value 4", got)
	}
}

func TestQuorumApplyConnectionsDropsMalformed(t *testing.T) {
	tracker, st := newTestQuorum(newFakePushChannel(), clockwork.NewFakeClock())
	tracker.ApplyConnections([]byte(`{"connectedCount":3}`))
	tracker.ApplyConnections([]byte("{broken"))

	if got := st.Session().ConnectedAssessorCount; got != 3 {
		t.Errorf("ConnectedAssessorCount = %d, want 3 untouched", got)
	}
}

func TestQuorumRequestSnapshotNeedsConnection(t *testing.T) {
	ch := newFakePushChannel()
	tracker, _ := newTestQuorum(ch, clockwork.NewFakeClock())

	ch.setConnected(false)
	if tracker.RequestSnapshot() {
		t.Fatalf("RequestSnapshot() published while disconnected")
	}

	ch.setConnected(true)
	if !tracker.RequestSnapshot() {
		t.Fatalf("RequestSnapshot() failed while connected")
	}
	if got := ch.publishedTo(events.ConnectionsRequestSubject); got != 1 {
		t.Errorf("published %d requests, want 1", got)
	}
}

func TestQuorumSnapshotRetriesUntilConnected(t *testing.T) {
	ch := newFakePushChannel()
	ch.setConnected(false)
	clock := clockwork.NewFakeClock()
	tracker, _ := newTestQuorum(ch, clock)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		tracker.RunSnapshotRequest(ctx)
		close(done)
	}()

	// Let the goroutine reach its ticker before advancing the clock.
	clock.BlockUntil(1)
	ch.setConnected(true)
	clock.Advance(2 * time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("RunSnapshotRequest did not finish after reconnect")
	}
	if got := ch.publishedTo(events.ConnectionsRequestSubject); got != 1 {
		t.Errorf("published %d requests, want 1", got)
	}
}
