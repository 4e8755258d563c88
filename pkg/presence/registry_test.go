package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ridehub/pkg/logger"
)

type fakeHandle struct {
	id string

	mu     sync.Mutex
	events []string
	fail   bool
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Emit(event string, payload interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return errors.New("send buffer full")
	}
	h.events = append(h.events, event)
	return nil
}

func (h *fakeHandle) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

type fakeDirectory struct {
	mu        sync.Mutex
	claimed   map[string]bool
	refreshed map[string]int
	relayed []string
	owned   map[string]bool
	deliver DeliverFunc
	closed  bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		claimed:   make(map[string]bool),
		refreshed: make(map[string]int),
		owned:     make(map[string]bool),
	}
}

func (d *fakeDirectory) Start(ctx context.Context, deliver DeliverFunc) error {
	d.deliver = deliver
	return nil
}

func (d *fakeDirectory) Claim(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.claimed[userID] = true
	return nil
}

func (d *fakeDirectory) Refresh(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshed[userID]++
	return nil
}

func (d *fakeDirectory) isClaimed(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.claimed[userID]
}

func (d *fakeDirectory) refreshCount(userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refreshed[userID]
}

func (d *fakeDirectory) Release(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claimed, userID)
	return nil
}

func (d *fakeDirectory) Relay(ctx context.Context, userID, event string, payload interface{}) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.owned[userID] {
		return false, nil
	}
	d.relayed = append(d.relayed, userID+":"+event)
	return true, nil
}

func (d *fakeDirectory) Close() error {
	d.closed = true
	return nil
}

func TestRegisterLastWins(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	first := &fakeHandle{id: "c1"}
	second := &fakeHandle{id: "c2"}

	r.Register("u1", first)
	r.Register("u1", second)

	h, ok := r.Lookup("u1")
	if !ok || h.ID() != "c2" {
		t.Fatalf("expected latest handle c2, got %v %v", h, ok)
	}
	if r.Count() != 1 {
		t.Errorf("expected a single entry, got %d", r.Count())
	}
}

func TestUnregisterStaleHandleKeepsNewerEntry(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	old := &fakeHandle{id: "c1"}
	current := &fakeHandle{id: "c2"}

	r.Register("u1", old)
	r.Register("u1", current)
	r.Unregister(old)

	if h, ok := r.Lookup("u1"); !ok || h.ID() != "c2" {
		t.Fatalf("newer registration should survive stale disconnect")
	}

	r.Unregister(current)
	if _, ok := r.Lookup("u1"); ok {
		t.Fatalf("expected entry removed")
	}
}

func TestReregisterMovesHandleToNewUser(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	dir := newFakeDirectory()
	if err := r.UseDirectory(context.Background(), dir); err != nil {
		t.Fatalf("use directory: %v", err)
	}
	h := &fakeHandle{id: "c1"}

	r.Register("userA", h)
	r.Register("userB", h)

	if _, ok := r.Lookup("userA"); ok {
		t.Errorf("userA should no longer be bound to the connection")
	}
	if dir.isClaimed("userA") {
		t.Errorf("userA claim should be released")
	}
	if got, ok := r.Lookup("userB"); !ok || got.ID() != "c1" {
		t.Fatalf("expected userB on c1, got %v %v", got, ok)
	}

	r.Unregister(h)
	if r.Count() != 0 {
		t.Errorf("expected no entries after disconnect, got %d", r.Count())
	}
	if dir.isClaimed("userB") {
		t.Errorf("userB claim should be released on disconnect")
	}
}

func TestReregisterKeepsOtherConnections(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	other := &fakeHandle{id: "c2"}
	h := &fakeHandle{id: "c1"}

	r.Register("userA", other)
	r.Register("userB", h)
	r.Register("userC", h)

	if got, ok := r.Lookup("userA"); !ok || got.ID() != "c2" {
		t.Errorf("userA on another connection must survive, got %v %v", got, ok)
	}
	if r.Count() != 2 {
		t.Errorf("expected two entries, got %d", r.Count())
	}
}

func TestKeepAliveRefreshesLocalUsers(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	dir := newFakeDirectory()
	if err := r.UseDirectory(context.Background(), dir); err != nil {
		t.Fatalf("use directory: %v", err)
	}
	r.Register("u1", &fakeHandle{id: "c1"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.KeepAlive(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for dir.refreshCount("u1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for refresh")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if dir.refreshCount("absent") != 0 {
		t.Errorf("only registered users are refreshed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive did not stop on cancel")
	}
}

func TestKeepAliveStopsWhenClosed(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Close()

	done := make(chan struct{})
	go func() {
		r.KeepAlive(context.Background(), time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive did not stop after close")
	}
}

func TestNotifyDeliversOrDrops(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	h := &fakeHandle{id: "c1"}
	r.Register("u1", h)

	if !r.Notify(context.Background(), "u1", "rideAccepted", map[string]string{"rideId": "r1"}) {
		t.Fatalf("expected delivery to connected user")
	}
	if got := h.received(); len(got) != 1 || got[0] != "rideAccepted" {
		t.Errorf("unexpected events %v", got)
	}

	if r.Notify(context.Background(), "absent", "rideAccepted", nil) {
		t.Errorf("expected absent user to be dropped")
	}
}

func TestNotifyReportsEmitFailure(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register("u1", &fakeHandle{id: "c1", fail: true})

	if r.Notify(context.Background(), "u1", "rideCancelled", nil) {
		t.Errorf("expected failed emit to report false")
	}
}

func TestNotifyFallsBackToDirectory(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	dir := newFakeDirectory()
	dir.owned["remote"] = true
	if err := r.UseDirectory(context.Background(), dir); err != nil {
		t.Fatalf("use directory: %v", err)
	}

	local := &fakeHandle{id: "c1"}
	r.Register("local", local)
	if !dir.claimed["local"] {
		t.Errorf("expected local registration to be claimed")
	}

	if !r.Notify(context.Background(), "remote", "rideCompleted", nil) {
		t.Fatalf("expected relay for remote user")
	}
	if len(dir.relayed) != 1 || dir.relayed[0] != "remote:rideCompleted" {
		t.Errorf("unexpected relays %v", dir.relayed)
	}

	// Relayed messages arriving from other instances reach local handles.
	if !dir.deliver("local", "rideStatusUpdated", json.RawMessage(`{"status":"started"}`)) {
		t.Errorf("expected relayed delivery to local user")
	}
	if got := local.received(); len(got) != 1 || got[0] != "rideStatusUpdated" {
		t.Errorf("unexpected events %v", got)
	}

	r.Unregister(local)
	if dir.claimed["local"] {
		t.Errorf("expected release on unregister")
	}

	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !dir.closed {
		t.Errorf("expected directory closed with registry")
	}
}

func TestRegisterAfterCloseIsIgnored(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register("u1", &fakeHandle{id: "c1"})
	r.Close()

	r.Register("u2", &fakeHandle{id: "c2"})
	if r.Count() != 0 {
		t.Errorf("expected empty registry after close, got %d", r.Count())
	}
}

func TestConcurrentRegisterNotifyUnregister(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", i%4)
			h := &fakeHandle{id: fmt.Sprintf("c%d", i)}
			r.Register(userID, h)
			r.Notify(context.Background(), userID, "rideStatusUpdated", nil)
			r.Unregister(h)
		}(i)
	}
	wg.Wait()

	if r.Count() > 4 {
		t.Errorf("expected at most one entry per user, got %d", r.Count())
	}
}
