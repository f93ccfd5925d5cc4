package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutResponse is returned once the order is stored
type CheckoutResponse struct {
	OrderID   string  `json:"orderId"`
	Total     float64 `json:"total"`
	EmailSent bool    `json:"emailSent"`
}

// CheckoutHandler turns carts into orders
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
}

// Checkout validates the cart, prices it and stores the order. Email delivery
// problems are reported through emailSent rather than as an error.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutInput
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.checkoutService.Checkout(r.Context(), req)
	if err != nil {
		h.logger.Debug("Checkout rejected", zap.Error(err))
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CheckoutResponse{
		OrderID:   result.OrderID.String(),
		Total:     result.Total.InexactFloat64(),
		EmailSent: result.EmailSent,
	})
}
