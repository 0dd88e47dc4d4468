package studyhall

import "time"

// ExistingRecord is the persisted identity every stored row carries.
// Domain records embed it next to their own fields; the id type
// parameter keeps group, grant, and task ids from mixing.
type ExistingRecord[T ~string] struct {
	ID        T
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewExistingRecord stamps a fresh row with matching create and update
// times.
func NewExistingRecord[T ~string](id string) ExistingRecord[T] {
	now := time.Now()
	return ExistingRecord[T]{
		ID:        T(id),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
