// Package presence tracks which users hold a live real-time connection on this
// process and pushes events to them by user id.
package presence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ridehub/pkg/logger"
	"ridehub/pkg/metrics"
)

// Handle is a live connection that can receive events.
type Handle interface {
	ID() string
	Emit(event string, payload interface{}) error
}

// Directory shares presence across server processes. Claim and Release are
// called as users register and disconnect locally; Refresh keeps a live
// user's claim from expiring. Relay forwards an event to whichever process
// currently holds the user.
type Directory interface {
	Start(ctx context.Context, deliver DeliverFunc) error
	Claim(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID string) error
	Release(ctx context.Context, userID string) error
	Relay(ctx context.Context, userID, event string, payload interface{}) (bool, error)
	Close() error
}

// DeliverFunc hands a relayed event to a locally connected user.
type DeliverFunc func(userID, event string, payload json.RawMessage) bool

// Registry maps user ids to their connection. A user has at most one entry;
// the latest registration wins.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]Handle
	directory Directory
	logger    *logger.Logger
	closed    bool
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		entries: make(map[string]Handle),
		logger:  log,
	}
}

// UseDirectory attaches a cross-process directory and starts consuming relayed
// events. It must be called before the registry serves connections.
func (r *Registry) UseDirectory(ctx context.Context, directory Directory) error {
	if err := directory.Start(ctx, r.deliver); err != nil {
		return err
	}
	r.mu.Lock()
	r.directory = directory
	r.mu.Unlock()
	return nil
}

// Register binds userID to handle. A handle holds at most one user, so
// re-registering a connection as another user drops its previous entry.
func (r *Registry) Register(userID string, handle Handle) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	var previous []string
	for id, h := range r.entries {
		if id != userID && h.ID() == handle.ID() {
			previous = append(previous, id)
			delete(r.entries, id)
		}
	}
	r.entries[userID] = handle
	count := len(r.entries)
	directory := r.directory
	r.mu.Unlock()

	metrics.PresenceConnections.Set(float64(count))
	r.logger.WithFields(map[string]interface{}{
		"user_id":       userID,
		"connection_id": handle.ID(),
	}).Debug("User registered for real-time events")

	if directory == nil {
		return
	}
	for _, id := range previous {
		r.release(directory, id)
	}
	if err := directory.Claim(context.Background(), userID); err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("Failed to claim presence in directory")
	}
}

// Unregister removes the entry held by handle, if any. A handle that was
// replaced by a newer registration leaves the newer entry in place.
// Register keeps one entry per handle, so the scan stops at the first match.
func (r *Registry) Unregister(handle Handle) {
	r.mu.Lock()
	var userID string
	for id, h := range r.entries {
		if h.ID() == handle.ID() {
			userID = id
			delete(r.entries, id)
			break
		}
	}
	count := len(r.entries)
	directory := r.directory
	r.mu.Unlock()

	if userID == "" {
		return
	}

	metrics.PresenceConnections.Set(float64(count))
	r.logger.WithFields(map[string]interface{}{
		"user_id":       userID,
		"connection_id": handle.ID(),
	}).Debug("User unregistered")

	if directory != nil {
		r.release(directory, userID)
	}
}

func (r *Registry) release(directory Directory, userID string) {
	if err := directory.Release(context.Background(), userID); err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("Failed to release presence in directory")
	}
}

func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.entries[userID]
	return h, ok
}

// Emit sends an event over handle. Failures are logged and otherwise ignored.
func (r *Registry) Emit(handle Handle, event string, payload interface{}) bool {
	if err := handle.Emit(event, payload); err != nil {
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"event":         event,
			"connection_id": handle.ID(),
		}).Warn("Failed to emit event")
		return false
	}
	return true
}

// Notify pushes an event to userID if connected here, or through the directory
// when one is attached. It reports whether the event was handed off; an absent
// user is not an error.
func (r *Registry) Notify(ctx context.Context, userID, event string, payload interface{}) bool {
	if handle, ok := r.Lookup(userID); ok {
		if r.Emit(handle, event, payload) {
			metrics.NotificationsTotal.WithLabelValues(event, metrics.ResultDelivered).Inc()
			return true
		}
		metrics.NotificationsTotal.WithLabelValues(event, metrics.ResultFailed).Inc()
		return false
	}

	r.mu.RLock()
	directory := r.directory
	r.mu.RUnlock()

	if directory != nil {
		relayed, err := directory.Relay(ctx, userID, event, payload)
		if err != nil {
			r.logger.WithError(err).WithField("user_id", userID).Warn("Failed to relay event")
			metrics.NotificationsTotal.WithLabelValues(event, metrics.ResultFailed).Inc()
			return false
		}
		if relayed {
			metrics.NotificationsTotal.WithLabelValues(event, metrics.ResultRelayed).Inc()
			return true
		}
	}

	metrics.NotificationsTotal.WithLabelValues(event, metrics.ResultDropped).Inc()
	return false
}

// KeepAlive refreshes the directory claim of every locally registered user
// each interval, until ctx is cancelled or the registry is closed.
func (r *Registry) KeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.refresh(ctx) {
				return
			}
		}
	}
}

// refresh reports false once the registry is closed.
func (r *Registry) refresh(ctx context.Context) bool {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return false
	}
	directory := r.directory
	userIDs := make([]string, 0, len(r.entries))
	for id := range r.entries {
		userIDs = append(userIDs, id)
	}
	r.mu.RUnlock()

	if directory == nil {
		return true
	}
	for _, id := range userIDs {
		if err := directory.Refresh(ctx, id); err != nil {
			r.logger.WithError(err).WithField("user_id", id).Warn("Failed to refresh presence in directory")
		}
	}
	return true
}

// Count returns the number of registered users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close drops every entry and detaches the directory. Registrations after
// Close are ignored.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	r.entries = make(map[string]Handle)
	directory := r.directory
	r.directory = nil
	r.mu.Unlock()

	metrics.PresenceConnections.Set(0)

	if directory != nil {
		return directory.Close()
	}
	return nil
}

func (r *Registry) deliver(userID, event string, payload json.RawMessage) bool {
	handle, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	return r.Emit(handle, event, payload)
}
