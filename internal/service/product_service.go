package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	productNotFoundMessage = "product not found"
	slugTakenMessage       = "slug already in use"
)

// ProductInput is a complete product as submitted by an admin
type ProductInput struct {
	Name            string  `json:"name" validate:"required,max=255"`
	Slug            string  `json:"slug" validate:"required,max=255"`
	Description     *string `json:"description" validate:"omitnil,max=10000"`
	Category        *string `json:"category" validate:"omitnil,max=255"`
	Dosage          *string `json:"dosage" validate:"omitnil,max=255"`
	Volume          *string `json:"volume" validate:"omitnil,max=255"`
	RetailPrice     float64 `json:"retailPrice" validate:"gte=0.01,lte=9999999999"`
	WholesalePrice  float64 `json:"wholesalePrice" validate:"gte=0.01,lte=9999999999"`
	WholesaleMinQty *int    `json:"wholesaleMinQty" validate:"omitnil,gte=1"`
	Status          *string `json:"status" validate:"omitnil,product_status"`
	ImageURL        *string `json:"imageUrl" validate:"omitnil,url,max=1000"`
}

// ProductUpdateInput carries only the fields an admin wants to change
type ProductUpdateInput struct {
	Name            *string  `json:"name" validate:"omitnil,min=1,max=255"`
	Slug            *string  `json:"slug" validate:"omitnil,min=1,max=255"`
	Description     *string  `json:"description" validate:"omitnil,max=10000"`
	Category        *string  `json:"category" validate:"omitnil,max=255"`
	Dosage          *string  `json:"dosage" validate:"omitnil,max=255"`
	Volume          *string  `json:"volume" validate:"omitnil,max=255"`
	RetailPrice     *float64 `json:"retailPrice" validate:"omitnil,gte=0.01,lte=9999999999"`
	WholesalePrice  *float64 `json:"wholesalePrice" validate:"omitnil,gte=0.01,lte=9999999999"`
	WholesaleMinQty *int     `json:"wholesaleMinQty" validate:"omitnil,gte=1"`
	Status          *string  `json:"status" validate:"omitnil,product_status"`
	ImageURL        *string  `json:"imageUrl" validate:"omitnil,url,max=1000"`

	clear clearedFields
}

// clearedFields marks optional fields sent as an empty string, which removes
// the stored value. A JSON null leaves the field unchanged.
type clearedFields struct {
	description bool
	category    bool
	dosage      bool
	volume      bool
	imageURL    bool
}

// ImportInput is a bulk upsert request
type ImportInput struct {
	Products []ProductInput `json:"products" validate:"required,dive"`
}

// ProductService manages the catalog on behalf of admins
type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, input ProductUpdateInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// Import validates every product before writing any, then upserts them
	// by slug in a single transaction.
	Import(ctx context.Context, products []ProductInput) (int, error)
}

type productService struct {
	productRepo repository.ProductRepository
	txManager   repository.TransactionManager
	cache       cache.ProductCache
	logger      *zap.Logger
	now         func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	txManager repository.TransactionManager,
	productCache cache.ProductCache,
	logger *zap.Logger,
) ProductService {
	if productCache == nil {
		productCache = cache.NewNoopProductCache()
	}
	return &productService{
		productRepo: productRepo,
		txManager:   txManager,
		cache:       productCache,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *productService) List(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewNotFoundError(productNotFoundMessage)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperrors.NewNotFoundError(productNotFoundMessage)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

func (s *productService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	input.normalize()
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	if _, err := s.productRepo.FindBySlug(ctx, input.Slug); err == nil {
		return nil, apperrors.NewConflictError(slugTakenMessage)
	} else if !errors.Is(err, repository.ErrProductNotFound) {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}

	product := input.toProduct(s.now())

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrSlugTaken) {
			return nil, apperrors.NewConflictError(slugTakenMessage)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.cache.InvalidatePublicProducts(ctx)
	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("slug", product.Slug))

	return product, nil
}

func (s *productService) Update(ctx context.Context, id string, input ProductUpdateInput) (*domain.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	input.normalize()
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	if input.Slug != nil && *input.Slug != product.Slug {
		existing, err := s.productRepo.FindBySlug(ctx, *input.Slug)
		switch {
		case err == nil && existing.ID != product.ID:
			return nil, apperrors.NewConflictError(slugTakenMessage)
		case err != nil && !errors.Is(err, repository.ErrProductNotFound):
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
	}

	input.applyTo(product)
	product.UpdatedAt = s.now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlugTaken):
			return nil, apperrors.NewConflictError(slugTakenMessage)
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, apperrors.NewNotFoundError(productNotFoundMessage)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.cache.InvalidatePublicProducts(ctx)
	s.logger.Info("Product updated", zap.String("product_id", product.ID.String()))

	return product, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return apperrors.NewNotFoundError(productNotFoundMessage)
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return apperrors.NewNotFoundError(productNotFoundMessage)
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.cache.InvalidatePublicProducts(ctx)
	s.logger.Info("Product deleted", zap.String("product_id", productID.String()))

	return nil
}

func (s *productService) Import(ctx context.Context, products []ProductInput) (int, error) {
	if products == nil {
		products = []ProductInput{}
	}
	for i := range products {
		products[i].normalize()
	}

	if err := validator.Struct(ImportInput{Products: products}); err != nil {
		return 0, err
	}

	now := s.now()
	err := s.txManager.WithinTx(ctx, func(r repository.TxRepos) error {
		for i := range products {
			product := products[i].toProduct(now)
			if err := r.Products().UpsertBySlug(ctx, product); err != nil {
				return fmt.Errorf("product %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to import products: %w", err)
	}

	s.cache.InvalidatePublicProducts(ctx)
	s.logger.Info("Products imported", zap.Int("count", len(products)))

	return len(products), nil
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Category = trimmedOrNil(in.Category)
	in.Dosage = trimmedOrNil(in.Dosage)
	in.Volume = trimmedOrNil(in.Volume)
	in.ImageURL = trimmedOrNil(in.ImageURL)
	in.Status = trimmedOrNil(in.Status)
}

func (in ProductInput) toProduct(now time.Time) *domain.Product {
	minQty := domain.DefaultWholesaleMinQty
	if in.WholesaleMinQty != nil {
		minQty = *in.WholesaleMinQty
	}

	status := domain.ProductStatusActive
	if in.Status != nil {
		status = domain.ProductStatus(*in.Status)
	}

	return &domain.Product{
		ID:              uuid.New(),
		Name:            in.Name,
		Slug:            in.Slug,
		Description:     in.Description,
		Category:        in.Category,
		Dosage:          in.Dosage,
		Volume:          in.Volume,
		RetailPrice:     price(in.RetailPrice),
		WholesalePrice:  price(in.WholesalePrice),
		WholesaleMinQty: minQty,
		Status:          status,
		ImageURL:        in.ImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (in *ProductUpdateInput) normalize() {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Slug != nil {
		slug := strings.TrimSpace(*in.Slug)
		in.Slug = &slug
	}
	// an empty status stays set so validation rejects it
	if in.Status != nil {
		status := strings.TrimSpace(*in.Status)
		in.Status = &status
	}
	in.Description, in.clear.description = clearable(in.Description)
	in.Category, in.clear.category = clearable(in.Category)
	in.Dosage, in.clear.dosage = clearable(in.Dosage)
	in.Volume, in.clear.volume = clearable(in.Volume)
	in.ImageURL, in.clear.imageURL = clearable(in.ImageURL)
}

func clearable(s *string) (*string, bool) {
	if s == nil {
		return nil, false
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, true
	}
	return &v, false
}

func (in ProductUpdateInput) applyTo(p *domain.Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Slug != nil {
		p.Slug = *in.Slug
	}
	if in.Description != nil || in.clear.description {
		p.Description = in.Description
	}
	if in.Category != nil || in.clear.category {
		p.Category = in.Category
	}
	if in.Dosage != nil || in.clear.dosage {
		p.Dosage = in.Dosage
	}
	if in.Volume != nil || in.clear.volume {
		p.Volume = in.Volume
	}
	if in.RetailPrice != nil {
		p.RetailPrice = price(*in.RetailPrice)
	}
	if in.WholesalePrice != nil {
		p.WholesalePrice = price(*in.WholesalePrice)
	}
	if in.WholesaleMinQty != nil {
		p.WholesaleMinQty = *in.WholesaleMinQty
	}
	if in.Status != nil {
		p.Status = domain.ProductStatus(*in.Status)
	}
	if in.ImageURL != nil || in.clear.imageURL {
		p.ImageURL = in.ImageURL
	}
}

func price(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
