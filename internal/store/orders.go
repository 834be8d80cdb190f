package store

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"gift-storefront-api/internal/cache"
	"gift-storefront-api/internal/models"

	"gorm.io/gorm"
)

// Line is an unpriced request for quantity units of a product.
type Line struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// Customer is the contact data attached to an order.
type Customer struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address"`
}

// OrderInput is everything needed to place an order. Prices are never taken
// from the caller; they come from the catalog.
type OrderInput struct {
	Session              string
	Customer             Customer
	Type                 models.OrderType
	Lines                []Line
	PackagingID          string
	ServiceIDs           []string
	AssemblyServicePrice float64
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	Session string
	Status  models.OrderStatus
	Limit   int
	Offset  int
}

func (f OrderFilter) key() cache.Key {
	return cache.Key{Entity: entityOrders, Params: map[string]string{
		"session": f.Session,
		"status":  string(f.Status),
		"limit":   strconv.Itoa(f.Limit),
		"offset":  strconv.Itoa(f.Offset),
	}}
}

func validateCustomer(c *Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	if c.Name == "" || c.Phone == "" {
		return fmt.Errorf("%w: customer name and phone are required", ErrInvalidOrder)
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("%w: invalid customer email", ErrInvalidOrder)
	}
	return nil
}

// PriceLines resolves lines against the catalog. Repeated products are
// merged; unknown or out of stock products make the order invalid.
func (s *Store) PriceLines(ctx context.Context, lines []Line) ([]models.OrderItem, float64, error) {
	if len(lines) == 0 {
		return nil, 0, fmt.Errorf("%w: no items", ErrInvalidOrder)
	}

	ids := make([]string, 0, len(lines))
	qty := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			return nil, 0, fmt.Errorf("%w: bad line for product %q", ErrInvalidOrder, l.ProductID)
		}
		if _, seen := qty[l.ProductID]; !seen {
			ids = append(ids, l.ProductID)
		}
		qty[l.ProductID] += l.Quantity
	}

	products, err := s.GetProducts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]models.OrderItem, 0, len(ids))
	total := 0.0
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return nil, 0, fmt.Errorf("%w: unknown product %s", ErrInvalidOrder, id)
		}
		if p.Status == models.StatusOutOfStock {
			return nil, 0, fmt.Errorf("%w: %s is out of stock", ErrInvalidOrder, p.Name)
		}
		item := models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  qty[id],
			SKU:       p.SKU,
		}
		if len(p.Images) > 0 {
			item.Image = p.Images[0]
		}
		items = append(items, item)
		total += p.Price * float64(item.Quantity)
	}
	return items, total, nil
}

// CreateOrder prices and inserts an order with its additional services in
// one transaction.
func (s *Store) CreateOrder(ctx context.Context, in OrderInput) (models.Order, error) {
	if err := validateCustomer(&in.Customer); err != nil {
		return models.Order{}, err
	}
	if in.Type == "" {
		in.Type = models.OrderRegular
	}
	if in.Type != models.OrderRegular && in.Type != models.OrderCustomBundle {
		return models.Order{}, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, in.Type)
	}
	if in.AssemblyServicePrice < 0 {
		return models.Order{}, fmt.Errorf("%w: negative assembly price", ErrInvalidOrder)
	}

	items, total, err := s.PriceLines(ctx, in.Lines)
	if err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		UserSession:          in.Session,
		CustomerName:         in.Customer.Name,
		CustomerEmail:        in.Customer.Email,
		CustomerPhone:        in.Customer.Phone,
		CustomerAddress:      in.Customer.Address,
		Items:                items,
		Status:               models.OrderPending,
		Type:                 in.Type,
		AssemblyServicePrice: in.AssemblyServicePrice,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.PackagingID != "" {
			var pkg models.Packaging
			if err := tx.First(&pkg, "id = ? AND is_active = ?", in.PackagingID, true).Error; err != nil {
				if notFound(err) {
					return fmt.Errorf("%w: unknown packaging %s", ErrInvalidOrder, in.PackagingID)
				}
				return fmt.Errorf("get packaging: %w", err)
			}
			order.PackagingID = &pkg.ID
			total += pkg.Price
		}

		var services []models.AdditionalService
		if len(in.ServiceIDs) > 0 {
			ids := dedupe(in.ServiceIDs)
			if err := tx.Where("id IN ? AND is_active = ?", ids, true).Find(&services).Error; err != nil {
				return fmt.Errorf("get services: %w", err)
			}
			if len(services) != len(ids) {
				return fmt.Errorf("%w: unknown or inactive service", ErrInvalidOrder)
			}
		}
		for _, svc := range services {
			total += svc.Price
		}
		order.Total = total + in.AssemblyServicePrice

		if err := tx.Omit("Services").Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for _, svc := range services {
			link := models.OrderService{OrderID: order.ID, ServiceID: svc.ID, Price: svc.Price}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("create order service: %w", err)
			}
			order.Services = append(order.Services, link)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	s.invalidate(entityOrders)
	return order, nil
}

// ListOrders returns orders newest first.
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return cached(ctx, s, f.key(), s.ttl.Orders, func(ctx context.Context) ([]models.Order, error) {
		orders := []models.Order{}
		q := s.db.WithContext(ctx).Preload("Services").Order("created_at DESC").Limit(f.Limit).Offset(f.Offset)
		if f.Session != "" {
			q = q.Where("user_session = ?", f.Session)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if err := q.Find(&orders).Error; err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		return orders, nil
	})
}

// GetOrder returns order id. Orders are read uncached so status changes
// show up immediately.
func (s *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var o models.Order
	if err := s.db.WithContext(ctx).Preload("Services").First(&o, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return o, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return o, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// UpdateOrderStatus moves order id to status.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, status)
	}
	res := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return models.Order{}, fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	s.invalidate(entityOrders)
	return s.GetOrder(ctx, id)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
