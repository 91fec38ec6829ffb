package jobs

import (
	"context"
	"fmt"
)

// Refresher re-fetches the current page of a cached list.
type Refresher interface {
	Refresh(ctx context.Context) error
	Loading() bool
}

// OrderRefresher keeps the cached orders page fresh. A tick is skipped while a
// fetch is already outstanding.
type OrderRefresher struct {
	orders Refresher
}

func NewOrderRefresher(orders Refresher) *OrderRefresher {
	return &OrderRefresher{orders: orders}
}

// ProcessJobs implements the JobProcessor interface
func (r *OrderRefresher) ProcessJobs(ctx context.Context) error {
	if r.orders.Loading() {
		return nil
	}
	if err := r.orders.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh orders: %w", err)
	}
	return nil
}
