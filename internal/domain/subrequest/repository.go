package subrequest

import "context"

// Repository describes sub-request persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, requestID string) (Request, bool, error)
	CountJoins(ctx context.Context, requestID string) (int, error)
	HasJoin(ctx context.Context, requestID, playerID string) (bool, error)
	AddJoin(ctx context.Context, j Join) error
	ListJoins(ctx context.Context, requestID string) ([]Join, error)
}
