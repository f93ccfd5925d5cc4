package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/domain"
	"storefront/internal/mailer"
	"storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultEmailTimeout bounds how long checkout waits on SMTP
const DefaultEmailTimeout = 20 * time.Second

// ErrUnavailableProductMessage is reported when a cart references a product
// that does not exist or is archived.
const ErrUnavailableProductMessage = "invalid or unavailable product"

// CheckoutItemInput is one requested cart line
type CheckoutItemInput struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=100000"`
}

// CheckoutInput is the customer's cart and contact details
type CheckoutInput struct {
	CustomerName string              `json:"customerName" validate:"required,min=2,max=255"`
	Email        string              `json:"email" validate:"required,email,max=255"`
	Phone        *string             `json:"phone" validate:"omitnil,max=50"`
	Address      *string             `json:"address" validate:"omitnil,max=2000"`
	Items        []CheckoutItemInput `json:"items" validate:"required,min=1,dive"`
}

// CheckoutResult summarises a placed order
type CheckoutResult struct {
	OrderID   uuid.UUID
	Total     decimal.Decimal
	EmailSent bool
}

// OrderNotifier delivers order notifications
type OrderNotifier interface {
	SendOrderEmails(ctx context.Context, order mailer.OrderEmail) error
}

// CheckoutService turns a cart into a persisted order
type CheckoutService interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
}

type checkoutService struct {
	productRepo  repository.ProductRepository
	orderRepo    repository.OrderRepository
	notifier     OrderNotifier
	emailTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	notifier OrderNotifier,
	emailTimeout time.Duration,
	logger *zap.Logger,
) CheckoutService {
	if emailTimeout <= 0 {
		emailTimeout = DefaultEmailTimeout
	}
	return &checkoutService{
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		notifier:     notifier,
		emailTimeout: emailTimeout,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Checkout validates and prices the cart, stores the order and tries to send
// the notifications. Email failures never fail the checkout.
func (s *checkoutService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(input.Items))
	for _, item := range input.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
				Field:   "productId",
				Message: "Must be a valid UUID",
			})
		}
		lines = append(lines, domain.CartLine{ProductID: id, Quantity: item.Quantity})
	}
	lines, err := domain.MergeCartLines(lines)
	if err != nil {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "items",
			Message: fmt.Sprintf("Quantity per product must not exceed %d", domain.MaxLineQuantity),
		})
	}

	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}

	products, err := s.productRepo.FindByIDs(ctx, ids, domain.PublicProductStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	if len(products) != len(ids) {
		return nil, apperrors.NewValidationError(ErrUnavailableProductMessage)
	}

	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items, subtotal, err := domain.PriceCart(lines, byID)
	if errors.Is(err, domain.ErrTotalTooLarge) {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "items",
			Message: "Order total exceeds the maximum allowed",
		})
	}
	if err != nil {
		return nil, apperrors.NewValidationError(ErrUnavailableProductMessage)
	}

	order := &domain.Order{
		ID:           uuid.New(),
		CustomerName: strings.TrimSpace(input.CustomerName),
		Email:        strings.TrimSpace(input.Email),
		Phone:        trimmedOrNil(input.Phone),
		Address:      trimmedOrNil(input.Address),
		Items:        items,
		Subtotal:     subtotal,
		Total:        subtotal,
		Status:       domain.OrderStatusPendingEmail,
		CreatedAt:    s.now(),
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.Int("lines", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)),
	)

	emailSent := s.notify(ctx, order)

	return &CheckoutResult{
		OrderID:   order.ID,
		Total:     order.Total,
		EmailSent: emailSent,
	}, nil
}

func (s *checkoutService) notify(ctx context.Context, order *domain.Order) bool {
	emailCtx, cancel := context.WithTimeout(ctx, s.emailTimeout)
	defer cancel()

	err := s.notifier.SendOrderEmails(emailCtx, mailer.OrderEmail{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Email:        order.Email,
		Phone:        valueOrEmpty(order.Phone),
		Address:      valueOrEmpty(order.Address),
		Items:        order.Items,
		Total:        order.Total,
	})
	if err != nil {
		s.logger.Error("Failed to send order email",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return false
	}

	// the request may already be cancelled; the status update must still land
	markCtx, markCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer markCancel()

	if err := s.orderRepo.MarkEmailed(markCtx, order.ID, s.now()); err != nil {
		s.logger.Error("Failed to mark order emailed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	return true
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
