package watch

import "context"

// Store persists watches. Implementations return sentinel errors
// (sentinel.ErrNotFound, sentinel.ErrConflict) for factual store states.
type Store interface {
	Create(ctx context.Context, w Watch) error
	Get(ctx context.Context, id string) (Watch, error)
	ListByOwner(ctx context.Context, owner string) ([]Watch, error)
	Update(ctx context.Context, w Watch) error
	Delete(ctx context.Context, id string) error
}
