package interfaces

import "context"

// TransactionManager runs fn as one unit of work. Implementations without
// multi-document transactions run fn directly; writes inside fn must then be
// safe to leave partially applied.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
