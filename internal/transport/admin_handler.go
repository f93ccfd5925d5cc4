package transport

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LoginRequest represents the admin login payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the token to send as x-admin-token
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Email   string `json:"email"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ImportResponse struct {
	Imported int `json:"imported"`
}

// AdminHandler serves the catalog management and order follow-up endpoints
type AdminHandler struct {
	auth           service.AdminAuthenticator
	productService service.ProductService
	orderService   service.OrderService
	logger         *zap.Logger
}

func NewAdminHandler(
	auth service.AdminAuthenticator,
	productService service.ProductService,
	orderService service.OrderService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		auth:           auth,
		productService: productService,
		orderService:   orderService,
		logger:         logger,
	}
}

// RegisterRoutes registers the admin routes. Everything except login sits
// behind authMiddleware.
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/admin", func(r chi.Router) {
		// Public routes
		r.Post("/login", h.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Get("/products", h.ListProducts)
			r.Post("/products", h.CreateProduct)
			r.Get("/products/{id}", h.GetProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)
			r.Post("/import", h.ImportProducts)

			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
		})
	})
}

// Login exchanges admin credentials for a token
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("Admin login failed", zap.String("email", req.Email))
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	h.logger.Info("Admin logged in", zap.String("email", req.Email))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
	})
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.List(r.Context())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toAdminProductViews(products))
}

func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toAdminProductView(product))
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	product, err := h.productService.Create(r.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, toAdminProductView(product))
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductUpdateInput
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	product, err := h.productService.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toAdminProductView(product))
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.productService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ImportProducts upserts a batch of products given as {"products":[...]} or
// as a text/csv body with a header row.
func (h *AdminHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	var products []service.ProductInput

	if isCSV(r) {
		decoded, err := decodeProductCSV(io.LimitReader(r.Body, middleware.MaxBodyBytes))
		if err != nil {
			middleware.RespondWithAppError(w, r, err, h.logger)
			return
		}
		products = decoded
	} else {
		var req service.ImportInput
		if err := middleware.DecodeJSON(r, &req); err != nil {
			middleware.RespondWithAppError(w, r, err, h.logger)
			return
		}
		if req.Products == nil {
			middleware.RespondWithValidationErrors(w, "validation failed", []apperrors.ValidationDetail{
				{Field: "products", Message: "This field is required"},
			})
			return
		}
		products = req.Products
	}

	imported, err := h.productService.Import(r.Context(), products)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ImportResponse{Imported: imported})
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			middleware.RespondWithValidationErrors(w, "validation failed", []apperrors.ValidationDetail{
				{Field: "limit", Message: "Must be a positive whole number"},
			})
			return
		}
		limit = parsed
	}

	orders, err := h.orderService.List(r.Context(), limit)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderViews(orders))
}

func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderView(order))
}

func isCSV(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "text/csv"
}
