package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus represents the fulfilment state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// OrderType separates cart checkouts from custom bundle checkouts
type OrderType string

const (
	OrderRegular      OrderType = "regular"
	OrderCustomBundle OrderType = "custom_bundle"
)

// OrderItem is a priced line of an order, snapshotted at checkout
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
	SKU       string  `json:"sku,omitempty"`
}

// Order represents a placed order
type Order struct {
	ID                   string         `json:"id" gorm:"primaryKey"`
	UserSession          string         `json:"-" gorm:"column:user_session;index"`
	CustomerName         string         `json:"customer_name" gorm:"column:customer_name;not null"`
	CustomerEmail        string         `json:"customer_email" gorm:"column:customer_email;not null"`
	CustomerPhone        string         `json:"customer_phone" gorm:"column:customer_phone;not null"`
	CustomerAddress      string         `json:"customer_address,omitempty" gorm:"column:customer_address"`
	Items                []OrderItem    `json:"items" gorm:"serializer:json"`
	Total                float64        `json:"total" gorm:"not null"`
	Status               OrderStatus    `json:"status" gorm:"not null;default:'pending';index"`
	Type                 OrderType      `json:"type" gorm:"not null;default:'regular'"`
	PackagingID          *string        `json:"packaging_id,omitempty" gorm:"column:packaging_id"`
	AssemblyServicePrice float64        `json:"assembly_service_price" gorm:"column:assembly_service_price;default:0"`
	Services             []OrderService `json:"services,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderService links an order to an additional service at the price paid
type OrderService struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	OrderID   string    `json:"order_id" gorm:"column:order_id;not null;index"`
	ServiceID string    `json:"service_id" gorm:"column:service_id;not null"`
	Price     float64   `json:"price" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderService) TableName() string {
	return "order_services"
}

func (s *OrderService) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ReviewStatus is the moderation state of a review
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Valid reports whether s is a known review status
func (s ReviewStatus) Valid() bool {
	return s == ReviewPending || s == ReviewApproved || s == ReviewRejected
}

// ReviewEditWindow is how long an author may edit a fresh review
const ReviewEditWindow = 24 * time.Hour

// Review is a customer rating of a product
type Review struct {
	ID           string       `json:"id" gorm:"primaryKey"`
	ProductID    string       `json:"product_id" gorm:"column:product_id;not null;index"`
	UserSession  string       `json:"-" gorm:"column:user_session;index"`
	AuthorName   string       `json:"author_name" gorm:"column:author_name;not null"`
	Rating       int          `json:"rating" gorm:"not null"`
	Comment      string       `json:"comment"`
	Photos       []string     `json:"photos,omitempty" gorm:"serializer:json"`
	Status       ReviewStatus `json:"status" gorm:"not null;default:'pending';index"`
	AdminReply   string       `json:"admin_reply,omitempty" gorm:"column:admin_reply"`
	AdminReplyAt *time.Time   `json:"admin_reply_at,omitempty" gorm:"column:admin_reply_at"`
	CanEditUntil time.Time    `json:"can_edit_until" gorm:"column:can_edit_until"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (Review) TableName() string {
	return "product_reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// All returns every model the schema is migrated from
func All() []any {
	return []any{
		&Product{},
		&Category{},
		&Like{},
		&Banner{},
		&Packaging{},
		&AdditionalService{},
		&Order{},
		&OrderService{},
		&Review{},
		&KVEntry{},
	}
}
