package period

import "context"

// Store persists reporting periods, keyed by publishing year. Implementations
// return sentinel.ErrNotFound for missing years and sentinel.ErrAlreadyExists
// for duplicate creates.
type Store interface {
	Find(ctx context.Context, publishingYear string) (Period, error)
	List(ctx context.Context) ([]Period, error)
	Create(ctx context.Context, p Period) error
	Update(ctx context.Context, p Period) error
}
