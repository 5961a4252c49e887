package notify

import (
	"context"
	"time"
)

// Event describes one committed mutation of the sale or product ledger.
// Dashboards subscribe to the feed to refresh derived views (debt lists,
// leaderboards) without polling.
type Event struct {
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

const (
	EntityProduct  = "product"
	EntityCustomer = "customer"
	EntitySale     = "sale"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionPaid    = "paid"
)

type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

type NoopNotifier struct{}

func (NoopNotifier) Publish(_ context.Context, _ Event) error {
	return nil
}
