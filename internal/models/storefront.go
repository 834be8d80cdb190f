package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Banner is a home page slide
type Banner struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image" gorm:"not null"`
	Link        string    `json:"link,omitempty"`
	IsActive    bool      `json:"is_active" gorm:"column:is_active"`
	Position    int       `json:"order" gorm:"column:position;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Banner) TableName() string {
	return "banners"
}

func (b *Banner) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Packaging is a box or wrap option offered at bundle checkout
type Packaging struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Price     float64   `json:"price" gorm:"not null;default:0"`
	Width     *float64  `json:"width,omitempty"`
	Height    *float64  `json:"height,omitempty"`
	Depth     *float64  `json:"depth,omitempty"`
	ImageURL  string    `json:"image_url,omitempty" gorm:"column:image_url"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Packaging) TableName() string {
	return "packaging"
}

func (p *Packaging) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// AdditionalService is an optional paid extra such as a greeting card
type AdditionalService struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	CategoryID  string    `json:"category_id,omitempty" gorm:"column:category_id;index"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price" gorm:"not null;default:0"`
	ImageURL    string    `json:"image_url,omitempty" gorm:"column:image_url"`
	IsActive    bool      `json:"is_active" gorm:"column:is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (AdditionalService) TableName() string {
	return "additional_services"
}

func (s *AdditionalService) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// KVEntry is one row of the string key-value table
type KVEntry struct {
	Key       string    `gorm:"primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
