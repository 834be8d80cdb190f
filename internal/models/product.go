package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductStatus represents the availability of a product
type ProductStatus string

const (
	StatusInStock    ProductStatus = "in_stock"
	StatusComingSoon ProductStatus = "coming_soon"
	StatusOutOfStock ProductStatus = "out_of_stock"
)

// ProductType distinguishes single products from pre-built gift sets
type ProductType string

const (
	TypeProduct ProductType = "product"
	TypeBundle  ProductType = "bundle"
)

// MaxProductCategories is how many categories one product may belong to
const MaxProductCategories = 3

// Product represents a catalog item
type Product struct {
	ID               string            `json:"id" gorm:"primaryKey"`
	SKU              string            `json:"sku" gorm:"uniqueIndex;not null"`
	Name             string            `json:"name" gorm:"not null"`
	Description      string            `json:"description"`
	Composition      string            `json:"composition,omitempty"`
	Price            float64           `json:"price" gorm:"not null"`
	OriginalPrice    *float64          `json:"original_price,omitempty"`
	Images           []string          `json:"images" gorm:"serializer:json"`
	CategoryIDs      []string          `json:"category_ids" gorm:"column:category_ids;serializer:json"`
	Status           ProductStatus     `json:"status" gorm:"not null;default:'in_stock'"`
	Type             ProductType       `json:"type" gorm:"not null;default:'product'"`
	IsFeatured       bool              `json:"is_featured" gorm:"column:is_featured;index"`
	LikesCount       int               `json:"likes_count" gorm:"column:likes_count;default:0"`
	Specifications   map[string]string `json:"specifications,omitempty" gorm:"serializer:json"`
	SourceURL        string            `json:"source_url,omitempty" gorm:"column:source_url"`
	// IsImported marks products whose price follows SourceURL.
	IsImported       bool              `json:"is_imported" gorm:"column:is_imported;index"`
	MarginPercent    *float64          `json:"margin_percent,omitempty" gorm:"column:margin_percent"`
	LastPriceCheckAt *time.Time        `json:"last_price_check_at,omitempty" gorm:"column:last_price_check_at"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TableName specifies the table name for Product Model
func (Product) TableName() string {
	return "products"
}

// BeforeCreate assigns an ID when none was supplied
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ValidStatus reports whether s is a known product status
func ValidStatus(s ProductStatus) bool {
	switch s {
	case StatusInStock, StatusComingSoon, StatusOutOfStock:
		return true
	}
	return false
}

// ValidType reports whether t is a known product type
func ValidType(t ProductType) bool {
	return t == TypeProduct || t == TypeBundle
}

// Category groups products in the catalog
type Category struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Like records that a session liked a product
type Like struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ProductID   string    `json:"product_id" gorm:"column:product_id;not null;uniqueIndex:idx_like_session_product"`
	UserSession string    `json:"user_session" gorm:"column:user_session;not null;uniqueIndex:idx_like_session_product"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Like) TableName() string {
	return "product_likes"
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
