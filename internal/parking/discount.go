package parking

import (
	"context"
	"errors"
)

// DiscountEvaluator grants the loyalty discount to any vehicle that already
// has a ticket, whether that ticket is closed or still open.
type DiscountEvaluator struct {
	tickets TicketStore
}

func NewDiscountEvaluator(tickets TicketStore) *DiscountEvaluator {
	return &DiscountEvaluator{tickets: tickets}
}

func (de *DiscountEvaluator) Evaluate(ctx context.Context, vehicleID string) (int, error) {
	ticket, err := de.tickets.TicketByVehicle(ctx, vehicleID)
	if errors.Is(err, ErrTicketNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if ticket == nil {
		return 0, nil
	}
	return LoyaltyDiscountPercent, nil
}
