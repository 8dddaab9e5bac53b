package store

import "context"

// Doc is the per-document capability set every persisted entity provides by
// embedding domain.Entity. The generic service layer drives identity and
// timestamps through it.
type Doc interface {
	ResourceID() string
	SetID(id string)
	Touch()
	InitTimestamps()
}

// Repository is the capability set shared by all resource stores. The
// generic API handlers are written once against this interface and
// instantiated per resource type.
type Repository[T any] interface {
	Insert(ctx context.Context, doc *T) error
	Get(ctx context.Context, id string) (*T, error)
	// Update performs a full-document write of an existing record and bumps
	// its version counter.
	Update(ctx context.Context, doc *T) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q ListQuery) ([]*T, error)
}
