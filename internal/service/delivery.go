package service

import (
	"context"

	"github.com/google/uuid"

	"dailypages/internal/delivery"
	"dailypages/internal/model"
)

// DeliveryService is the on-demand trigger.
type DeliveryService interface {
	// Trigger runs a pass now. email may be model.AllReaders; an empty documentID targets
	// every subscription of the reader.
	Trigger(ctx context.Context, email, documentID string) (*delivery.Report, error)
}

type deliveryService struct {
	runner DeliveryRunner
}

// NewDeliveryService constructs a new DeliveryService.
func NewDeliveryService(runner DeliveryRunner) DeliveryService {
	return &deliveryService{runner: runner}
}

func (s *deliveryService) Trigger(ctx context.Context, email, documentID string) (*delivery.Report, error) {
	if email != model.AllReaders {
		var err error
		if email, err = normalizeEmail(email); err != nil {
			return nil, err
		}
	} else if documentID != "" {
		return nil, ErrInvalidScope
	}
	if documentID != "" {
		id, err := uuid.Parse(documentID)
		if err != nil {
			return nil, ErrInvalidID
		}
		documentID = id.String()
	}
	return s.runner.Run(ctx, model.NewScope(email, documentID), delivery.TriggerOnDemand)
}
