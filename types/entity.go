// Package types provides common types shared by stock ledger entities.
package types

import "time"

// Entity carries creation and modification timestamps.
// Embed it in domain types that are mutable after creation.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates a new Entity stamped with the current UTC time.
func NewEntity() Entity {
	return NewEntityAt(time.Now())
}

// NewEntityAt creates a new Entity stamped with t.
func NewEntityAt(t time.Time) Entity {
	t = t.UTC()
	return Entity{
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// Touch updates the UpdatedAt timestamp to t.
func (e *Entity) Touch(t time.Time) {
	e.UpdatedAt = t.UTC()
}

// Age returns how long ago the entity was created.
func (e Entity) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// LastModified returns how long ago the entity was last updated.
func (e Entity) LastModified() time.Duration {
	return time.Since(e.UpdatedAt)
}

// ListOpts is the common pagination window used by list queries.
// A zero Limit means no limit.
type ListOpts struct {
	Limit  int
	Offset int
}

// Window applies opts to a slice of length n and returns the [start, end) bounds.
func (o ListOpts) Window(n int) (start, end int) {
	start = min(max(o.Offset, 0), n)
	end = n
	if o.Limit > 0 && o.Limit < n-start {
		end = start + o.Limit
	}
	return start, end
}
