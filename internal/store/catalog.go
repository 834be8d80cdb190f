package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gift-storefront-api/internal/cache"
	"gift-storefront-api/internal/models"

	"gorm.io/gorm"
)

func activeKey(entity string, activeOnly bool) cache.Key {
	return cache.Key{Entity: entity, Params: map[string]string{"active": strconv.FormatBool(activeOnly)}}
}

func deleteByID(ctx context.Context, db *gorm.DB, model any, kind, id string) error {
	res := db.WithContext(ctx).Delete(model, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// ListBanners returns banners in display order.
func (s *Store) ListBanners(ctx context.Context, activeOnly bool) ([]models.Banner, error) {
	return cached(ctx, s, activeKey(entityBanners, activeOnly), s.ttl.Banners, func(ctx context.Context) ([]models.Banner, error) {
		banners := []models.Banner{}
		q := s.db.WithContext(ctx).Order("position ASC, created_at ASC")
		if activeOnly {
			q = q.Where("is_active = ?", true)
		}
		if err := q.Find(&banners).Error; err != nil {
			return nil, fmt.Errorf("list banners: %w", err)
		}
		return banners, nil
	})
}

func validateBanner(b *models.Banner) error {
	b.Title = strings.TrimSpace(b.Title)
	b.Image = strings.TrimSpace(b.Image)
	if b.Title == "" || b.Image == "" {
		return fmt.Errorf("%w: title and image are required", ErrInvalidInput)
	}
	return nil
}

// CreateBanner inserts b.
func (s *Store) CreateBanner(ctx context.Context, b models.Banner) (models.Banner, error) {
	if err := validateBanner(&b); err != nil {
		return models.Banner{}, err
	}
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return models.Banner{}, fmt.Errorf("create banner: %w", err)
	}
	s.invalidate(entityBanners)
	return b, nil
}

// UpdateBanner replaces banner id with b.
func (s *Store) UpdateBanner(ctx context.Context, id string, b models.Banner) (models.Banner, error) {
	if err := validateBanner(&b); err != nil {
		return models.Banner{}, err
	}
	var existing models.Banner
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return models.Banner{}, fmt.Errorf("banner %s: %w", id, ErrNotFound)
		}
		return models.Banner{}, fmt.Errorf("get banner: %w", err)
	}
	b.ID = existing.ID
	b.CreatedAt = existing.CreatedAt
	if err := s.db.WithContext(ctx).Save(&b).Error; err != nil {
		return models.Banner{}, fmt.Errorf("update banner: %w", err)
	}
	s.invalidate(entityBanners)
	return b, nil
}

// DeleteBanner removes banner id.
func (s *Store) DeleteBanner(ctx context.Context, id string) error {
	if err := deleteByID(ctx, s.db, &models.Banner{}, "banner", id); err != nil {
		return err
	}
	s.invalidate(entityBanners)
	return nil
}

// ListPackaging returns packaging options, cheapest first.
func (s *Store) ListPackaging(ctx context.Context, activeOnly bool) ([]models.Packaging, error) {
	return cached(ctx, s, activeKey(entityPackaging, activeOnly), s.ttl.Packaging, func(ctx context.Context) ([]models.Packaging, error) {
		packaging := []models.Packaging{}
		q := s.db.WithContext(ctx).Order("price ASC, name ASC")
		if activeOnly {
			q = q.Where("is_active = ?", true)
		}
		if err := q.Find(&packaging).Error; err != nil {
			return nil, fmt.Errorf("list packaging: %w", err)
		}
		return packaging, nil
	})
}

// CreatePackaging inserts p.
func (s *Store) CreatePackaging(ctx context.Context, p models.Packaging) (models.Packaging, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Packaging{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if p.Price < 0 {
		return models.Packaging{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return models.Packaging{}, fmt.Errorf("create packaging: %w", err)
	}
	s.invalidate(entityPackaging)
	return p, nil
}

// DeletePackaging removes packaging id.
func (s *Store) DeletePackaging(ctx context.Context, id string) error {
	if err := deleteByID(ctx, s.db, &models.Packaging{}, "packaging", id); err != nil {
		return err
	}
	s.invalidate(entityPackaging)
	return nil
}

// ListServices returns additional services by name.
func (s *Store) ListServices(ctx context.Context, activeOnly bool) ([]models.AdditionalService, error) {
	return cached(ctx, s, activeKey(entityServices, activeOnly), s.ttl.Services, func(ctx context.Context) ([]models.AdditionalService, error) {
		services := []models.AdditionalService{}
		q := s.db.WithContext(ctx).Order("name ASC")
		if activeOnly {
			q = q.Where("is_active = ?", true)
		}
		if err := q.Find(&services).Error; err != nil {
			return nil, fmt.Errorf("list services: %w", err)
		}
		return services, nil
	})
}

// CreateService inserts svc.
func (s *Store) CreateService(ctx context.Context, svc models.AdditionalService) (models.AdditionalService, error) {
	svc.Name = strings.TrimSpace(svc.Name)
	if svc.Name == "" {
		return models.AdditionalService{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if svc.Price < 0 {
		return models.AdditionalService{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if err := s.db.WithContext(ctx).Create(&svc).Error; err != nil {
		return models.AdditionalService{}, fmt.Errorf("create service: %w", err)
	}
	s.invalidate(entityServices)
	return svc, nil
}

// DeleteService removes service id.
func (s *Store) DeleteService(ctx context.Context, id string) error {
	if err := deleteByID(ctx, s.db, &models.AdditionalService{}, "service", id); err != nil {
		return err
	}
	s.invalidate(entityServices)
	return nil
}
