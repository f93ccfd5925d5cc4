package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	testAdminToken = "test-admin-token"
	testAdminEmail = "admin@store.test"
	testAdminPass  = "correct horse"
)

type mockCatalogService struct {
	products []*domain.Product
	err      error
}

func (m *mockCatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return m.products, m.err
}

type mockCheckoutService struct {
	mu     sync.Mutex
	inputs []service.CheckoutInput
	result *service.CheckoutResult
	err    error
}

func (m *mockCheckoutService) Checkout(ctx context.Context, input service.CheckoutInput) (*service.CheckoutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	return m.result, m.err
}

type mockAuthenticator struct{}

func (mockAuthenticator) Login(ctx context.Context, email, password string) (string, error) {
	if email != testAdminEmail || password != testAdminPass {
		return "", service.ErrInvalidCredentials
	}
	return testAdminToken, nil
}

func (mockAuthenticator) Verify(token string) error {
	if token != testAdminToken {
		return service.ErrInvalidToken
	}
	return nil
}

type mockProductService struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
	imported [][]service.ProductInput
	err      error
}

func newMockProductService(products ...*domain.Product) *mockProductService {
	m := &mockProductService{products: make(map[uuid.UUID]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductService) find(id string) (*domain.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("product not found")
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, apperrors.NewNotFoundError("product not found")
	}
	return p, nil
}

func (m *mockProductService) List(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, p)
	}
	return result, m.err
}

func (m *mockProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id)
}

func (m *mockProductService) Create(ctx context.Context, input service.ProductInput) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.Slug == input.Slug {
			return nil, apperrors.NewConflictError("slug already in use")
		}
	}
	p := newTestProduct(input.Name, input.Slug)
	p.RetailPrice = decimal.NewFromFloat(input.RetailPrice)
	p.WholesalePrice = decimal.NewFromFloat(input.WholesalePrice)
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductService) Update(ctx context.Context, id string, input service.ProductUpdateInput) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.find(id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		p.Name = *input.Name
	}
	return p, nil
}

func (m *mockProductService) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.find(id)
	if err != nil {
		return err
	}
	delete(m.products, p.ID)
	return nil
}

func (m *mockProductService) Import(ctx context.Context, products []service.ProductInput) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.imported = append(m.imported, products)
	return len(products), nil
}

type mockOrderService struct {
	orders    []*domain.Order
	lastLimit int
}

func (m *mockOrderService) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	m.lastLimit = limit
	return m.orders, nil
}

func (m *mockOrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	for _, o := range m.orders {
		if o.ID.String() == id {
			return o, nil
		}
	}
	return nil, apperrors.NewNotFoundError("order not found")
}

func newTestProduct(name, slug string) *domain.Product {
	now := time.Now().UTC()
	return &domain.Product{
		ID:              uuid.New(),
		Name:            name,
		Slug:            slug,
		RetailPrice:     decimal.RequireFromString("49.90"),
		WholesalePrice:  decimal.RequireFromString("39.90"),
		WholesaleMinQty: domain.DefaultWholesaleMinQty,
		Status:          domain.ProductStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

type handlerFixture struct {
	catalog  *mockCatalogService
	checkout *mockCheckoutService
	products *mockProductService
	orders   *mockOrderService
	router   http.Handler
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		catalog:  &mockCatalogService{},
		checkout: &mockCheckoutService{},
		products: newMockProductService(),
		orders:   &mockOrderService{},
	}

	logger := zap.NewNop()
	router := chi.NewRouter()
	NewCatalogHandler(f.catalog, logger).RegisterRoutes(router)
	NewCheckoutHandler(f.checkout, logger).RegisterRoutes(router)
	NewAdminHandler(mockAuthenticator{}, f.products, f.orders, logger).
		RegisterRoutes(router, middleware.AdminAuthMiddleware(mockAuthenticator{}, logger))

	f.router = router
	return f
}
