package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/mailer"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// Mock repositories for testing
type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
	listErr  error
	calls    int
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) clone() *mockProductRepository {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := newMockProductRepository()
	for id, p := range m.products {
		cp := *p
		c.products[id] = &cp
	}
	return c
}

func (m *mockProductRepository) slugOwner(slug string) (*domain.Product, bool) {
	for _, p := range m.products {
		if p.Slug == slug {
			return p, true
		}
	}
	return nil, false
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.slugOwner(product.Slug); taken {
		return repository.ErrSlugTaken
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	if owner, taken := m.slugOwner(product.Slug); taken && owner.ID != product.ID {
		return repository.ErrSlugTaken
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.slugOwner(slug)
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID, statuses []domain.ProductStatus) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		p, ok := m.products[id]
		if !ok || seen[id] || !hasStatus(p.Status, statuses) {
			continue
		}
		seen[id] = true
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockProductRepository) ListByStatus(ctx context.Context, statuses []domain.ProductStatus) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*domain.Product{}
	for _, p := range m.products {
		if hasStatus(p.Status, statuses) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockProductRepository) UpsertBySlug(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, taken := m.slugOwner(product.Slug); taken {
		product.ID = owner.ID
		product.CreatedAt = owner.CreatedAt
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}

func hasStatus(s domain.ProductStatus, statuses []domain.ProductStatus) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// mockTxManager stages writes on a copy and publishes them only on success
type mockTxManager struct {
	products *mockProductRepository
	failOn   string
}

type mockTxRepos struct {
	products repository.ProductRepository
}

func (r *mockTxRepos) Products() repository.ProductRepository { return r.products }

type failingUpsertRepo struct {
	*mockProductRepository
	failOn string
}

func (f *failingUpsertRepo) UpsertBySlug(ctx context.Context, product *domain.Product) error {
	if product.Slug == f.failOn {
		return errors.New("connection reset")
	}
	return f.mockProductRepository.UpsertBySlug(ctx, product)
}

func (m *mockTxManager) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	staged := m.products.clone()
	var repo repository.ProductRepository = staged
	if m.failOn != "" {
		repo = &failingUpsertRepo{mockProductRepository: staged, failOn: m.failOn}
	}
	if err := fn(&mockTxRepos{products: repo}); err != nil {
		return err
	}
	m.products.mu.Lock()
	m.products.products = staged.products
	m.products.mu.Unlock()
	return nil
}

type mockOrderRepository struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*domain.Order
	createErr error
	markErr   error
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepository) MarkEmailed(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Status = domain.OrderStatusEmailed
	order.EmailSentAt = &sentAt
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *mockOrderRepository) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOrderRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type mockNotifier struct {
	mu    sync.Mutex
	err   error
	sent  []mailer.OrderEmail
	calls int
}

func (m *mockNotifier) SendOrderEmails(ctx context.Context, order mailer.OrderEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, order)
	return nil
}

// spyCache is an in-memory ProductCache that counts invalidations
type spyCache struct {
	mu            sync.Mutex
	products      []*domain.Product
	hasValue      bool
	generation    cache.Generation
	invalidations int
}

func (c *spyCache) GetPublicProducts(ctx context.Context) ([]*domain.Product, cache.Generation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products, c.generation, c.hasValue
}

func (c *spyCache) SetPublicProducts(ctx context.Context, gen cache.Generation, products []*domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.products = products
	c.hasValue = true
}

func (c *spyCache) InvalidatePublicProducts(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.hasValue = false
	c.generation++
	c.invalidations++
}
