package domain

import "time"

// Entity provides the common fields embedded in every persisted resource.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	// Version counts updates to the row. It is the internal field the query
	// shaper excludes from responses unless explicitly selected.
	Version int `json:"version,omitempty"`
}

// ResourceID returns the entity's identifier. Satisfies store.Doc.
func (e *Entity) ResourceID() string { return e.ID }

// SetID assigns the entity's identifier. Satisfies store.Doc.
func (e *Entity) SetID(id string) { e.ID = id }

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying entity changes.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now and starts the
// version counter. Call this when creating a new entity.
func (e *Entity) InitTimestamps() {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.Version = 1
}
