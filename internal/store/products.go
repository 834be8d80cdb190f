package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gift-storefront-api/internal/cache"
	"gift-storefront-api/internal/models"

	"gorm.io/gorm"
)

// Product sort orders.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortPopular   = "popular"
)

const maxPageSize = 100

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Search     string
	Statuses   []models.ProductStatus
	Types      []models.ProductType
	Featured   *bool
	CategoryID string
	MinPrice   *float64
	MaxPrice   *float64
	SortBy     string
	Limit      int
	Offset     int
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products []models.Product `json:"data"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	HasMore  bool             `json:"hasMore"`
}

func (f ProductFilter) normalized() ProductFilter {
	switch f.SortBy {
	case SortPriceAsc, SortPriceDesc, SortNewest, SortPopular:
	default:
		f.SortBy = SortNewest
	}
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f ProductFilter) key() cache.Key {
	params := map[string]string{
		"search":   f.Search,
		"category": f.CategoryID,
		"sort":     f.SortBy,
		"limit":    strconv.Itoa(f.Limit),
		"offset":   strconv.Itoa(f.Offset),
	}
	if len(f.Statuses) > 0 {
		s := make([]string, len(f.Statuses))
		for i, v := range f.Statuses {
			s[i] = string(v)
		}
		params["status"] = strings.Join(s, ",")
	}
	if len(f.Types) > 0 {
		s := make([]string, len(f.Types))
		for i, v := range f.Types {
			s[i] = string(v)
		}
		params["type"] = strings.Join(s, ",")
	}
	if f.Featured != nil {
		params["featured"] = strconv.FormatBool(*f.Featured)
	}
	if f.MinPrice != nil {
		params["min"] = strconv.FormatFloat(*f.MinPrice, 'f', -1, 64)
	}
	if f.MaxPrice != nil {
		params["max"] = strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64)
	}
	return cache.Key{Entity: entityProducts, Params: params}
}

// likeEscaper makes user text match literally inside a LIKE ... ESCAPE '\' pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (f ProductFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Search != "" {
		like := "%" + likeEscaper.Replace(f.Search) + "%"
		q = q.Where(`name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR sku LIKE ? ESCAPE '\'`, like, like, like)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if len(f.Types) > 0 {
		q = q.Where("type IN ?", f.Types)
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	if f.CategoryID != "" {
		// category_ids is a JSON array of strings
		q = q.Where(`category_ids LIKE ? ESCAPE '\'`, `%"`+likeEscaper.Replace(f.CategoryID)+`"%`)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	return q
}

func orderClause(sortBy string) string {
	switch sortBy {
	case SortPriceAsc:
		return "price ASC, created_at DESC"
	case SortPriceDesc:
		return "price DESC, created_at DESC"
	case SortPopular:
		return "likes_count DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

// ListProducts returns one page of products matching f.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) (ProductPage, error) {
	f = f.normalized()
	return cached(ctx, s, f.key(), s.ttl.Products, func(ctx context.Context) (ProductPage, error) {
		var total int64
		if err := f.apply(s.db.WithContext(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
			return ProductPage{}, fmt.Errorf("count products: %w", err)
		}
		products := []models.Product{}
		err := f.apply(s.db.WithContext(ctx)).
			Order(orderClause(f.SortBy)).
			Limit(f.Limit).
			Offset(f.Offset).
			Find(&products).Error
		if err != nil {
			return ProductPage{}, fmt.Errorf("list products: %w", err)
		}
		return ProductPage{
			Products: products,
			Total:    total,
			Limit:    f.Limit,
			Offset:   f.Offset,
			HasMore:  int64(f.Offset+len(products)) < total,
		}, nil
	})
}

// GetProduct returns the product with the given id.
func (s *Store) GetProduct(ctx context.Context, id string) (models.Product, error) {
	key := cache.Key{Entity: entityProduct, ID: id}
	return cached(ctx, s, key, s.ttl.Product, func(ctx context.Context) (models.Product, error) {
		var p models.Product
		if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
			if notFound(err) {
				return p, fmt.Errorf("product %s: %w", id, ErrNotFound)
			}
			return p, fmt.Errorf("get product: %w", err)
		}
		return p, nil
	})
}

// GetProducts returns the products with the given ids keyed by id. Unknown
// ids are absent from the result. It bypasses the cache so checkout always
// prices against current rows.
func (s *Store) GetProducts(ctx context.Context, ids []string) (map[string]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	out := make(map[string]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	if p.Status == "" {
		p.Status = models.StatusInStock
	}
	if p.Type == "" {
		p.Type = models.TypeProduct
	}
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case p.SKU == "":
		return fmt.Errorf("%w: sku is required", ErrInvalidInput)
	case p.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	case !models.ValidStatus(p.Status):
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, p.Status)
	case !models.ValidType(p.Type):
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, p.Type)
	case len(p.CategoryIDs) > models.MaxProductCategories:
		return fmt.Errorf("%w: at most %d categories", ErrInvalidInput, models.MaxProductCategories)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.CategoryIDs == nil {
		p.CategoryIDs = []string{}
	}
	return nil
}

func (s *Store) skuTaken(ctx context.Context, sku, exceptID string) (bool, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("sku = ?", sku)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check sku: %w", err)
	}
	return n > 0, nil
}

// CreateProduct validates and inserts p.
func (s *Store) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if err := validateProduct(&p); err != nil {
		return models.Product{}, err
	}
	taken, err := s.skuTaken(ctx, p.SKU, "")
	if err != nil {
		return models.Product{}, err
	}
	if taken {
		return models.Product{}, fmt.Errorf("%w: sku %s already exists", ErrConflict, p.SKU)
	}
	p.LikesCount = 0
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return models.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(entityProducts)
	return p, nil
}

// UpdateProduct replaces the editable fields of product id with those of p.
// The like counter and creation time are kept.
func (s *Store) UpdateProduct(ctx context.Context, id string, p models.Product) (models.Product, error) {
	if err := validateProduct(&p); err != nil {
		return models.Product{}, err
	}
	var existing models.Product
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return models.Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return models.Product{}, fmt.Errorf("get product: %w", err)
	}
	taken, err := s.skuTaken(ctx, p.SKU, id)
	if err != nil {
		return models.Product{}, err
	}
	if taken {
		return models.Product{}, fmt.Errorf("%w: sku %s already exists", ErrConflict, p.SKU)
	}

	p.ID = existing.ID
	p.LikesCount = existing.LikesCount
	p.CreatedAt = existing.CreatedAt
	p.LastPriceCheckAt = existing.LastPriceCheckAt
	if err := s.db.WithContext(ctx).Save(&p).Error; err != nil {
		return models.Product{}, fmt.Errorf("update product: %w", err)
	}
	s.forget(cache.Key{Entity: entityProduct, ID: id})
	s.invalidate(entityProducts)
	return p, nil
}

// DeleteProduct removes product id together with its likes and reviews.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		if err := tx.Delete(&models.Like{}, "product_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		if err := tx.Delete(&models.Review{}, "product_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.forget(cache.Key{Entity: entityProduct, ID: id})
	s.invalidate(entityProducts, entityReviews, entityLikes)
	return nil
}

// PriceCheck is the outcome of re-reading an imported product's source.
type PriceCheck struct {
	Price         float64
	OriginalPrice *float64
	Status        models.ProductStatus
	CheckedAt     time.Time
}

// ListImportedProducts returns imported products with a source URL that
// were never checked or were last checked before checkedBefore. A zero
// checkedBefore returns all of them.
func (s *Store) ListImportedProducts(ctx context.Context, checkedBefore time.Time) ([]models.Product, error) {
	q := s.db.WithContext(ctx).
		Where("is_imported = ? AND source_url <> ''", true)
	if !checkedBefore.IsZero() {
		q = q.Where("last_price_check_at IS NULL OR last_price_check_at < ?", checkedBefore)
	}
	products := []models.Product{}
	if err := q.Order("last_price_check_at ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list imported products: %w", err)
	}
	return products, nil
}

// ApplyPriceCheck records a price check on product id. Price, original
// price and status are only written when they differ; the check time is
// always written. It reports whether anything customer visible changed.
func (s *Store) ApplyPriceCheck(ctx context.Context, id string, pc PriceCheck) (models.Product, bool, error) {
	if pc.Price < 0 || !models.ValidStatus(pc.Status) {
		return models.Product{}, false, fmt.Errorf("%w: bad price check for %s", ErrInvalidInput, id)
	}

	var (
		p       models.Product
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			if notFound(err) {
				return fmt.Errorf("product %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("get product: %w", err)
		}

		changed = p.Price != pc.Price || p.Status != pc.Status || !samePrice(p.OriginalPrice, pc.OriginalPrice)
		checkedAt := pc.CheckedAt
		updates := map[string]any{"last_price_check_at": checkedAt}
		if changed {
			updates["price"] = pc.Price
			updates["original_price"] = pc.OriginalPrice
			updates["status"] = pc.Status
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("apply price check: %w", err)
		}
		if changed {
			p.Price = pc.Price
			p.OriginalPrice = pc.OriginalPrice
			p.Status = pc.Status
		}
		p.LastPriceCheckAt = &checkedAt
		return nil
	})
	if err != nil {
		return models.Product{}, false, err
	}
	s.forget(cache.Key{Entity: entityProduct, ID: id})
	if changed {
		s.invalidate(entityProducts)
	}
	return p, changed, nil
}

func samePrice(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ListCategories returns every category by name.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return cached(ctx, s, cache.Key{Entity: entityCategories}, s.ttl.Categories, func(ctx context.Context) ([]models.Category, error) {
		categories := []models.Category{}
		if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		return categories, nil
	})
}

// CreateCategory inserts a category with a unique name.
func (s *Store) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.Category{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("name = ?", c.Name).Count(&n).Error; err != nil {
		return models.Category{}, fmt.Errorf("check category: %w", err)
	}
	if n > 0 {
		return models.Category{}, fmt.Errorf("%w: category %s already exists", ErrConflict, c.Name)
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return models.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.invalidate(entityCategories)
	return c, nil
}

// DeleteCategory removes category id.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	s.invalidate(entityCategories, entityProducts)
	return nil
}
