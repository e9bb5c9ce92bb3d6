package issues

import "context"

// Store persists issues. List applies the filter and sort server-side so
// implementations can push the work into the database.
type Store interface {
	Create(ctx context.Context, issue *Issue) error
	FindByID(ctx context.Context, id string) (*Issue, error)
	List(ctx context.Context, filter Filter) ([]*Issue, error)
	Save(ctx context.Context, issue *Issue) error
}
