package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gift-storefront-api/internal/cache"
	"gift-storefront-api/internal/models"

	"gorm.io/gorm"
)

const maxReviewPhotos = 5

// ReviewInput is a customer review submission.
type ReviewInput struct {
	ProductID  string
	Session    string
	AuthorName string
	Rating     int
	Comment    string
	Photos     []string
}

func validateReview(in *ReviewInput) error {
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.Comment = strings.TrimSpace(in.Comment)
	switch {
	case in.Rating < 1 || in.Rating > 5:
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	case in.AuthorName == "":
		return fmt.Errorf("%w: author name is required", ErrInvalidInput)
	case len(in.Photos) > maxReviewPhotos:
		return fmt.Errorf("%w: at most %d photos", ErrInvalidInput, maxReviewPhotos)
	}
	return nil
}

// ListReviews returns the approved reviews of a product, newest first.
func (s *Store) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	key := cache.Key{Entity: entityReviews, ID: productID}
	return cached(ctx, s, key, s.ttl.Reviews, func(ctx context.Context) ([]models.Review, error) {
		reviews := []models.Review{}
		err := s.db.WithContext(ctx).
			Where("product_id = ? AND status = ?", productID, models.ReviewApproved).
			Order("created_at DESC").
			Find(&reviews).Error
		if err != nil {
			return nil, fmt.Errorf("list reviews: %w", err)
		}
		return reviews, nil
	})
}

// ListAllReviews returns reviews in any state for moderation. An empty
// status returns every review.
func (s *Store) ListAllReviews(ctx context.Context, status models.ReviewStatus) ([]models.Review, error) {
	reviews := []models.Review{}
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// CreateReview stores a pending review the author may edit for
// models.ReviewEditWindow.
func (s *Store) CreateReview(ctx context.Context, in ReviewInput) (models.Review, error) {
	if err := validateReview(&in); err != nil {
		return models.Review{}, err
	}
	if _, err := s.GetProduct(ctx, in.ProductID); err != nil {
		return models.Review{}, err
	}
	now := s.now()
	r := models.Review{
		ProductID:    in.ProductID,
		UserSession:  in.Session,
		AuthorName:   in.AuthorName,
		Rating:       in.Rating,
		Comment:      in.Comment,
		Photos:       in.Photos,
		Status:       models.ReviewPending,
		CanEditUntil: now.Add(models.ReviewEditWindow),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return models.Review{}, fmt.Errorf("create review: %w", err)
	}
	return r, nil
}

// UpdateReview lets the author change a review inside its edit window. The
// review goes back to moderation.
func (s *Store) UpdateReview(ctx context.Context, id string, in ReviewInput) (models.Review, error) {
	if err := validateReview(&in); err != nil {
		return models.Review{}, err
	}
	var r models.Review
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return r, fmt.Errorf("review %s: %w", id, ErrNotFound)
		}
		return r, fmt.Errorf("get review: %w", err)
	}
	if r.UserSession == "" || r.UserSession != in.Session {
		return models.Review{}, fmt.Errorf("%w: not the author", ErrForbidden)
	}
	if s.now().After(r.CanEditUntil) {
		return models.Review{}, fmt.Errorf("%w: edit window closed", ErrForbidden)
	}

	r.AuthorName = in.AuthorName
	r.Rating = in.Rating
	r.Comment = in.Comment
	r.Photos = in.Photos
	r.Status = models.ReviewPending
	if err := s.db.WithContext(ctx).Save(&r).Error; err != nil {
		return models.Review{}, fmt.Errorf("update review: %w", err)
	}
	s.forget(cache.Key{Entity: entityReviews, ID: r.ProductID})
	return r, nil
}

// ModerateReview sets the status of review id and, when reply is not empty,
// the admin reply.
func (s *Store) ModerateReview(ctx context.Context, id string, status models.ReviewStatus, reply string) (models.Review, error) {
	if !status.Valid() {
		return models.Review{}, fmt.Errorf("%w: unknown review status %q", ErrInvalidInput, status)
	}
	var r models.Review
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return r, fmt.Errorf("review %s: %w", id, ErrNotFound)
		}
		return r, fmt.Errorf("get review: %w", err)
	}
	r.Status = status
	if reply = strings.TrimSpace(reply); reply != "" {
		at := s.now()
		r.AdminReply = reply
		r.AdminReplyAt = &at
	}
	if err := s.db.WithContext(ctx).Save(&r).Error; err != nil {
		return models.Review{}, fmt.Errorf("moderate review: %w", err)
	}
	s.forget(cache.Key{Entity: entityReviews, ID: r.ProductID})
	return r, nil
}

// ToggleLike likes productID for session, or removes the like if it exists.
// It returns whether the product is now liked and its like count.
func (s *Store) ToggleLike(ctx context.Context, session, productID string) (bool, int, error) {
	if session == "" {
		return false, 0, fmt.Errorf("%w: session is required", ErrInvalidInput)
	}
	var liked bool
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, "id = ?", productID).Error; err != nil {
			if notFound(err) {
				return fmt.Errorf("product %s: %w", productID, ErrNotFound)
			}
			return fmt.Errorf("get product: %w", err)
		}

		res := tx.Where("product_id = ? AND user_session = ?", productID, session).Delete(&models.Like{})
		if res.Error != nil {
			return fmt.Errorf("delete like: %w", res.Error)
		}
		delta := -1
		if res.RowsAffected == 0 {
			if err := tx.Create(&models.Like{ProductID: productID, UserSession: session}).Error; err != nil {
				return fmt.Errorf("create like: %w", err)
			}
			delta = 1
			liked = true
		}

		count = p.LikesCount + delta
		if count < 0 {
			count = 0
		}
		return tx.Model(&models.Product{}).Where("id = ?", productID).Update("likes_count", count).Error
	})
	if err != nil {
		return false, 0, err
	}
	s.forget(cache.Key{Entity: entityProduct, ID: productID})
	s.forget(cache.Key{Entity: entityLikes, ID: session})
	s.invalidate(entityProducts)
	return liked, count, nil
}

// LikedProductIDs returns the ids of products session has liked, sorted.
func (s *Store) LikedProductIDs(ctx context.Context, session string) ([]string, error) {
	key := cache.Key{Entity: entityLikes, ID: session}
	return cached(ctx, s, key, s.ttl.Likes, func(ctx context.Context) ([]string, error) {
		ids := []string{}
		err := s.db.WithContext(ctx).Model(&models.Like{}).
			Where("user_session = ?", session).
			Pluck("product_id", &ids).Error
		if err != nil {
			return nil, fmt.Errorf("list likes: %w", err)
		}
		sort.Strings(ids)
		return ids, nil
	})
}
