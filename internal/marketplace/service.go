package marketplace

import (
	"context"
	"strings"
	"time"

	"gift-storefront-api/internal/models"
	"gift-storefront-api/internal/store"

	"github.com/rs/zerolog"
)

const (
	// DefaultMarginPercent is the markup applied when a product sets none.
	DefaultMarginPercent = 20.0

	// DefaultStaleAfter is how old a price check may get before a sync redoes it.
	DefaultStaleAfter = 24 * time.Hour
)

// Catalog is the part of the store imports and price syncs write to.
type Catalog interface {
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	ListImportedProducts(ctx context.Context, checkedBefore time.Time) ([]models.Product, error)
	ApplyPriceCheck(ctx context.Context, id string, pc store.PriceCheck) (models.Product, bool, error)
}

// ImportRequest describes a product to create from a marketplace link.
type ImportRequest struct {
	URL string `json:"url" binding:"required"`
	// SKU defaults to the marketplace prefix plus the marketplace id.
	SKU           string   `json:"sku"`
	MarginPercent *float64 `json:"margin_percent"`
	CategoryIDs   []string `json:"category_ids"`
	IsFeatured    bool     `json:"is_featured"`
}

// SyncFailure names a product whose price could not be refreshed.
type SyncFailure struct {
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}

// SyncResult summarises one price sync run.
type SyncResult struct {
	Checked   int           `json:"checked"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	Errors    []SyncFailure `json:"errors"`
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	DefaultMargin float64
	StaleAfter    time.Duration
	Now           func() time.Time
	Logger        zerolog.Logger
}

// Service imports marketplace products into the catalog and keeps their
// prices current.
type Service struct {
	parser     *Parser
	catalog    Catalog
	margin     float64
	staleAfter time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// NewService returns a Service. A zero DefaultMargin means
// DefaultMarginPercent and a zero StaleAfter means DefaultStaleAfter.
func NewService(parser *Parser, catalog Catalog, opts ServiceOptions) *Service {
	margin := opts.DefaultMargin
	if margin <= 0 {
		margin = DefaultMarginPercent
	}
	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		parser:     parser,
		catalog:    catalog,
		margin:     margin,
		staleAfter: staleAfter,
		now:        now,
		logger:     opts.Logger,
	}
}

// Preview parses rawURL without touching the catalog.
func (s *Service) Preview(ctx context.Context, rawURL string) (Listing, error) {
	return s.parser.Parse(ctx, rawURL)
}

// Import parses req.URL and creates a catalog product priced with the margin.
func (s *Service) Import(ctx context.Context, req ImportRequest) (models.Product, error) {
	l, err := s.parser.Parse(ctx, req.URL)
	if err != nil {
		importsTotal.WithLabelValues("parse_failed").Inc()
		return models.Product{}, err
	}

	margin := s.margin
	if req.MarginPercent != nil && *req.MarginPercent >= 0 {
		margin = *req.MarginPercent
	}
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		sku = SKU(l.Source, l.ExternalID)
	}
	checked := s.now()

	p := models.Product{
		SKU:              sku,
		Name:             l.Title,
		Description:      l.Description,
		Composition:      l.Composition,
		Price:            Markup(l.Price, margin),
		OriginalPrice:    markedUpOriginal(l.OldPrice, margin),
		Images:           l.Images,
		CategoryIDs:      req.CategoryIDs,
		Status:           stockStatus(l.InStock),
		Type:             models.TypeProduct,
		IsFeatured:       req.IsFeatured,
		Specifications:   l.Characteristics,
		SourceURL:        l.URL,
		IsImported:       true,
		MarginPercent:    &margin,
		LastPriceCheckAt: &checked,
	}
	created, err := s.catalog.CreateProduct(ctx, p)
	if err != nil {
		importsTotal.WithLabelValues("rejected").Inc()
		return models.Product{}, err
	}
	importsTotal.WithLabelValues("created").Inc()
	s.logger.Info().Str("product", created.ID).Str("sku", created.SKU).Str("source", string(l.Source)).Msg("marketplace product imported")
	return created, nil
}

// SyncStale refreshes imported products whose last check is older than
// the stale threshold.
func (s *Service) SyncStale(ctx context.Context) (SyncResult, error) {
	return s.sync(ctx, s.now().Add(-s.staleAfter))
}

// SyncAll refreshes every imported product.
func (s *Service) SyncAll(ctx context.Context) (SyncResult, error) {
	return s.sync(ctx, time.Time{})
}

func (s *Service) sync(ctx context.Context, checkedBefore time.Time) (SyncResult, error) {
	products, err := s.catalog.ListImportedProducts(ctx, checkedBefore)
	if err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{Errors: []SyncFailure{}}
	for _, p := range products {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Checked++
		changed, err := s.SyncProduct(ctx, p)
		switch {
		case err != nil:
			res.Failed++
			res.Errors = append(res.Errors, SyncFailure{ProductID: p.ID, Error: err.Error()})
			priceChecksTotal.WithLabelValues("failed").Inc()
		case changed:
			res.Updated++
			priceChecksTotal.WithLabelValues("updated").Inc()
		default:
			res.Unchanged++
			priceChecksTotal.WithLabelValues("unchanged").Inc()
		}
	}

	ev := s.logger.Info()
	if res.Failed > 0 {
		ev = s.logger.Warn()
	}
	ev.Int("checked", res.Checked).Int("updated", res.Updated).Int("failed", res.Failed).Msg("price sync finished")
	return res, nil
}

// SyncProduct re-reads p's source and records the result. The product's
// own margin is kept; products without one get the default.
func (s *Service) SyncProduct(ctx context.Context, p models.Product) (bool, error) {
	l, err := s.parser.Parse(ctx, p.SourceURL)
	if err != nil {
		return false, err
	}
	margin := s.margin
	if p.MarginPercent != nil {
		margin = *p.MarginPercent
	}
	_, changed, err := s.catalog.ApplyPriceCheck(ctx, p.ID, store.PriceCheck{
		Price:         Markup(l.Price, margin),
		OriginalPrice: markedUpOriginal(l.OldPrice, margin),
		Status:        stockStatus(l.InStock),
		CheckedAt:     s.now(),
	})
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.Info().Str("product", p.ID).Float64("old_price", p.Price).Float64("new_price", Markup(l.Price, margin)).Msg("imported price changed")
	}
	return changed, nil
}

func markedUpOriginal(old, margin float64) *float64 {
	if old <= 0 {
		return nil
	}
	v := Markup(old, margin)
	return &v
}

func stockStatus(inStock bool) models.ProductStatus {
	if inStock {
		return models.StatusInStock
	}
	return models.StatusOutOfStock
}

// StartPriceSync runs SyncStale every interval until ctx is cancelled.
// The returned channel is closed once the goroutine has exited.
func StartPriceSync(ctx context.Context, s *Service, interval time.Duration, logger zerolog.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SyncStale(ctx); err != nil && ctx.Err() == nil {
					logger.Error().Err(err).Msg("price sync failed")
				}
			}
		}
	}()
	return done
}
