// Package audit defines the audit trail contract used by domain services.
package audit

import (
	"context"
	"reflect"
	"sync"
	"time"

	appctx "kitanda/internal/core/context"
	"kitanda/internal/core/id"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionIssue  Action = "issue"
	ActionCancel Action = "cancel"
	ActionPay    Action = "pay"
)

// Logger records entity changes. Implementations write inside the
// transaction carried by ctx when there is one.
type Logger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// Nop discards every entry.
type Nop struct{}

// LogChange implements Logger.
func (Nop) LogChange(context.Context, string, id.ID, Action, map[string]any) error { return nil }

// Reader returns the recorded history of an entity, newest first.
type Reader interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// Entry is one recorded change.
type Entry struct {
	EntityType string         `json:"entityType"`
	EntityID   id.ID          `json:"entityId"`
	Action     Action         `json:"action"`
	UserID     string         `json:"userId,omitempty"`
	Changes    map[string]any `json:"changes"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Memory keeps entries in a slice. Used by tests and dev mode.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// LogChange implements Logger.
func (m *Memory) LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	})
	return nil
}

// History implements Reader.
func (m *Memory) History(_ context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Entries returns a copy of the recorded entries.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Diff returns {"old", "new"} pairs for every key whose value differs
// between the two snapshots, including keys present on one side only.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		oldVal, ok := oldState[key]
		if !ok || !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if _, ok := newState[key]; !ok {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}
