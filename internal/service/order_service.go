package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/apperrors"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

const (
	DefaultOrderListLimit = 100
	MaxOrderListLimit     = 500

	orderNotFoundMessage = "order not found"
)

// OrderService lets admins review orders awaiting manual payment follow-up
type OrderService interface {
	List(ctx context.Context, limit int) ([]*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orderRepo repository.OrderRepository) OrderService {
	return &orderService{orderRepo: orderRepo}
}

// List returns the newest orders first. Limit is clamped to [1, MaxOrderListLimit];
// zero or less selects DefaultOrderListLimit.
func (s *orderService) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	switch {
	case limit <= 0:
		limit = DefaultOrderListLimit
	case limit > MaxOrderListLimit:
		limit = MaxOrderListLimit
	}

	orders, err := s.orderRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewNotFoundError(orderNotFoundMessage)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperrors.NewNotFoundError(orderNotFoundMessage)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}
