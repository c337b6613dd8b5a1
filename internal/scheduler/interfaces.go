package scheduler

import "context"

// Sweeper removes pending requests nobody accepted in time.
// rides.Service implements it.
type Sweeper interface {
	// ExpireStaleRequests deletes expired requests and returns how many
	// were removed.
	ExpireStaleRequests(ctx context.Context) (int, error)
}
