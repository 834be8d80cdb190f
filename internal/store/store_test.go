package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"gift-storefront-api/internal/cache"
	"gift-storefront-api/internal/models"
	"gift-storefront-api/internal/testutil"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*Store, *gorm.DB, *testClock) {
	t.Helper()
	db := testutil.MustDB(t)
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(db, Options{
		Cache:  cache.NewLRUCache[string, any](cache.Options{Name: "store-test", MaxSize: 500, ConcurrencySafe: true}),
		Logger: zerolog.Nop(),
		Now:    clock.Now,
	})
	return s, db, clock
}

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func seedProduct(t *testing.T, s *Store, sku string, price float64, mutate func(*models.Product)) models.Product {
	t.Helper()
	p := models.Product{SKU: sku, Name: "Gift " + sku, Price: price}
	if mutate != nil {
		mutate(&p)
	}
	created, err := s.CreateProduct(context.Background(), p)
	require.NoError(t, err)
	return created
}

func skus(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.SKU
	}
	return out
}

func TestListProducts_FiltersAndSorts(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	featured := true

	seedProduct(t, s, "MUG", 300, func(p *models.Product) {
		p.Description = "ceramic mug"
		p.CategoryIDs = []string{"kitchen"}
		p.CreatedAt = base
	})
	seedProduct(t, s, "TEA", 150, func(p *models.Product) {
		p.IsFeatured = true
		p.CategoryIDs = []string{"kitchen", "food"}
		p.CreatedAt = base.Add(time.Hour)
	})
	seedProduct(t, s, "SET", 1500, func(p *models.Product) {
		p.Type = models.TypeBundle
		p.IsFeatured = true
		p.CreatedAt = base.Add(2 * time.Hour)
	})
	seedProduct(t, s, "SOCK", 90, func(p *models.Product) {
		p.Status = models.StatusOutOfStock
		p.CreatedAt = base.Add(3 * time.Hour)
	})

	tests := []struct {
		name   string
		filter ProductFilter
		want   []string
	}{
		{"newest by default", ProductFilter{}, []string{"SOCK", "SET", "TEA", "MUG"}},
		{"price ascending", ProductFilter{SortBy: SortPriceAsc}, []string{"SOCK", "TEA", "MUG", "SET"}},
		{"price descending", ProductFilter{SortBy: SortPriceDesc}, []string{"SET", "MUG", "TEA", "SOCK"}},
		{"search matches description", ProductFilter{Search: "ceramic"}, []string{"MUG"}},
		{"featured", ProductFilter{Featured: &featured}, []string{"SET", "TEA"}},
		{"type", ProductFilter{Types: []models.ProductType{models.TypeBundle}}, []string{"SET"}},
		{"status", ProductFilter{Statuses: []models.ProductStatus{models.StatusInStock}}, []string{"SET", "TEA", "MUG"}},
		{"category", ProductFilter{CategoryID: "kitchen"}, []string{"TEA", "MUG"}},
		{"price range", ProductFilter{MinPrice: ptr(100.0), MaxPrice: ptr(400.0)}, []string{"TEA", "MUG"}},
		{"unknown sort falls back to newest", ProductFilter{SortBy: "random"}, []string{"SOCK", "SET", "TEA", "MUG"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.ListProducts(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, skus(page.Products))
			assert.EqualValues(t, len(tt.want), page.Total)
		})
	}
}

func TestListProducts_SearchWildcardsMatchLiterally(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, s, "COTTON", 500, func(p *models.Product) { p.Name = "100% cotton scarf" })
	seedProduct(t, s, "WOOL", 700, func(p *models.Product) { p.Name = "Wool scarf" })
	seedProduct(t, s, "SNAKE", 50, func(p *models.Product) { p.Name = "snake_case mug" })
	seedProduct(t, s, "SLASH", 60, func(p *models.Product) { p.Name = `back\slash` })

	tests := []struct {
		search string
		want   []string
	}{
		{"%", []string{"COTTON"}},
		{"_", []string{"SNAKE"}},
		{"0%", []string{"COTTON"}},
		{"e_c", []string{"SNAKE"}},
		{`\`, []string{"SLASH"}},
		{"scarf", []string{"WOOL", "COTTON"}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			page, err := s.ListProducts(ctx, ProductFilter{Search: tt.search})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, skus(page.Products))
		})
	}
}

func TestListProducts_Pagination(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	for i, sku := range []string{"A", "B", "C", "D", "E"} {
		at := base.Add(time.Duration(i) * time.Minute)
		seedProduct(t, s, sku, 10, func(p *models.Product) { p.CreatedAt = at })
	}

	page, err := s.ListProducts(ctx, ProductFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, skus(page.Products))
	assert.EqualValues(t, 5, page.Total)
	assert.True(t, page.HasMore)

	page, err = s.ListProducts(ctx, ProductFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, skus(page.Products))
	assert.False(t, page.HasMore)
}

func TestListProducts_CachedUntilWrite(t *testing.T) {
	s, db, _ := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "A", 10, nil)

	page, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)

	// a row written behind the store's back is not seen while cached
	require.NoError(t, db.Create(&models.Product{SKU: "RAW", Name: "raw", Price: 1, Images: []string{}, CategoryIDs: []string{}}).Error)
	page, err = s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)

	// a write through the store invalidates every listing
	seedProduct(t, s, "B", 20, nil)
	page, err = s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, page.Products, 3)

	stats := s.Cache().(*cache.LRUCache[string, any]).Stats()
	assert.Positive(t, stats.Hits)
}

func TestGetProduct(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "A", 10, func(p *models.Product) { p.Images = []string{"a.jpg"} })

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.SKU)
	assert.Equal(t, []string{"a.jpg"}, got.Images)

	_, err = s.GetProduct(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateProduct_Validation(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "DUP", 10, nil)

	_, err := s.CreateProduct(ctx, models.Product{SKU: "DUP", Name: "again", Price: 1})
	require.ErrorIs(t, err, ErrConflict)

	_, err = s.CreateProduct(ctx, models.Product{SKU: "X", Name: "x", Price: 1, CategoryIDs: []string{"a", "b", "c", "d"}})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreateProduct(ctx, models.Product{SKU: "X", Name: "", Price: 1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreateProduct(ctx, models.Product{SKU: "X", Name: "x", Price: -1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreateProduct(ctx, models.Product{SKU: "X", Name: "x", Price: 1, Status: "sold"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateProduct_RefreshesCachedProduct(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "A", 10, nil)
	other := seedProduct(t, s, "B", 10, nil)

	_, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)

	p.Price = 25
	p.Name = "Renamed"
	updated, err := s.UpdateProduct(ctx, p.ID, p)
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Price)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	p.SKU = other.SKU
	_, err = s.UpdateProduct(ctx, p.ID, p)
	require.ErrorIs(t, err, ErrConflict)

	_, err = s.UpdateProduct(ctx, "missing", models.Product{SKU: "Z", Name: "z"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "A", 10, nil)
	_, _, err := s.ToggleLike(ctx, "user_1", p.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	_, err = s.GetProduct(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)

	ids, err := s.LikedProductIDs(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.ErrorIs(t, s.DeleteProduct(ctx, p.ID), ErrNotFound)
}

func TestCategories(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateCategory(ctx, models.Category{Name: "Mugs"})
	require.NoError(t, err)
	c, err := s.CreateCategory(ctx, models.Category{Name: "Cards"})
	require.NoError(t, err)
	_, err = s.CreateCategory(ctx, models.Category{Name: "Mugs"})
	require.ErrorIs(t, err, ErrConflict)

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Cards", list[0].Name)

	require.NoError(t, s.DeleteCategory(ctx, c.ID))
	list, err = s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestBanners_OrderedByPosition(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateBanner(ctx, models.Banner{Title: "second", Image: "2.jpg", Position: 2, IsActive: true})
	require.NoError(t, err)
	first, err := s.CreateBanner(ctx, models.Banner{Title: "first", Image: "1.jpg", Position: 1, IsActive: true})
	require.NoError(t, err)
	_, err = s.CreateBanner(ctx, models.Banner{Title: "hidden", Image: "0.jpg", Position: 0})
	require.NoError(t, err)

	active, err := s.ListBanners(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "first", active[0].Title)

	all, err := s.ListBanners(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "hidden", all[0].Title)

	first.Position = 5
	_, err = s.UpdateBanner(ctx, first.ID, first)
	require.NoError(t, err)
	active, err = s.ListBanners(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "second", active[0].Title)

	_, err = s.CreateBanner(ctx, models.Banner{Title: "no image"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func seedCheckoutExtras(t *testing.T, s *Store) (models.Packaging, models.AdditionalService) {
	t.Helper()
	ctx := context.Background()
	pkg, err := s.CreatePackaging(ctx, models.Packaging{Name: "Kraft box", Price: 200, IsActive: true})
	require.NoError(t, err)
	_, err = s.CreatePackaging(ctx, models.Packaging{Name: "Retired box", Price: 50})
	require.NoError(t, err)
	svc, err := s.CreateService(ctx, models.AdditionalService{Name: "Greeting card", Price: 100, IsActive: true})
	require.NoError(t, err)
	return pkg, svc
}

var customer = Customer{Name: "Anna", Email: "anna@example.com", Phone: "+7 900 000 00 00"}

func TestCreateOrder_PricesFromCatalog(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	mug := seedProduct(t, s, "MUG", 300, func(p *models.Product) { p.Images = []string{"mug.jpg"} })
	tea := seedProduct(t, s, "TEA", 150, nil)
	pkg, svc := seedCheckoutExtras(t, s)

	order, err := s.CreateOrder(ctx, OrderInput{
		Session:              "user_1",
		Customer:             customer,
		Type:                 models.OrderCustomBundle,
		Lines:                []Line{{ProductID: mug.ID, Quantity: 2}, {ProductID: tea.ID, Quantity: 1}, {ProductID: mug.ID, Quantity: 1}},
		PackagingID:          pkg.ID,
		ServiceIDs:           []string{svc.ID, svc.ID},
		AssemblyServicePrice: 500,
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 2)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, "mug.jpg", order.Items[0].Image)
	// 3*300 + 150 + 200 packaging + 100 card + 500 assembly
	assert.Equal(t, 1850.0, order.Total)
	assert.Equal(t, models.OrderPending, order.Status)
	require.NotNil(t, order.PackagingID)
	require.Len(t, order.Services, 1)

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Items, got.Items)
	assert.Len(t, got.Services, 1)

	mine, err := s.ListOrders(ctx, OrderFilter{Session: "user_1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	theirs, err := s.ListOrders(ctx, OrderFilter{Session: "user_2"})
	require.NoError(t, err)
	require.Empty(t, theirs)
}

func TestCreateOrder_Rejections(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	mug := seedProduct(t, s, "MUG", 300, nil)
	gone := seedProduct(t, s, "GONE", 10, func(p *models.Product) { p.Status = models.StatusOutOfStock })
	seedCheckoutExtras(t, s)

	retired, err := s.ListPackaging(ctx, false)
	require.NoError(t, err)
	var retiredID string
	for _, p := range retired {
		if !p.IsActive {
			retiredID = p.ID
		}
	}
	require.NotEmpty(t, retiredID)

	tests := []struct {
		name string
		in   OrderInput
	}{
		{"no lines", OrderInput{Customer: customer}},
		{"unknown product", OrderInput{Customer: customer, Lines: []Line{{ProductID: "nope", Quantity: 1}}}},
		{"zero quantity", OrderInput{Customer: customer, Lines: []Line{{ProductID: mug.ID, Quantity: 0}}}},
		{"out of stock", OrderInput{Customer: customer, Lines: []Line{{ProductID: gone.ID, Quantity: 1}}}},
		{"bad email", OrderInput{Customer: Customer{Name: "a", Email: "nope", Phone: "1"}, Lines: []Line{{ProductID: mug.ID, Quantity: 1}}}},
		{"inactive packaging", OrderInput{Customer: customer, Lines: []Line{{ProductID: mug.ID, Quantity: 1}}, PackagingID: retiredID}},
		{"unknown service", OrderInput{Customer: customer, Lines: []Line{{ProductID: mug.ID, Quantity: 1}}, ServiceIDs: []string{"nope"}}},
		{"unknown type", OrderInput{Customer: customer, Type: "wholesale", Lines: []Line{{ProductID: mug.ID, Quantity: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateOrder(ctx, tt.in)
			require.ErrorIs(t, err, ErrInvalidOrder)
		})
	}

	orders, err := s.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestUpdateOrderStatus(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	mug := seedProduct(t, s, "MUG", 300, nil)
	order, err := s.CreateOrder(ctx, OrderInput{Customer: customer, Lines: []Line{{ProductID: mug.ID, Quantity: 1}}})
	require.NoError(t, err)

	pending, err := s.ListOrders(ctx, OrderFilter{Status: models.OrderPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	updated, err := s.UpdateOrderStatus(ctx, order.ID, models.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, updated.Status)

	pending, err = s.ListOrders(ctx, OrderFilter{Status: models.OrderPending})
	require.NoError(t, err)
	require.Empty(t, pending)

	_, err = s.UpdateOrderStatus(ctx, order.ID, "lost")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.UpdateOrderStatus(ctx, "missing", models.OrderShipped)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReviews_Lifecycle(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "MUG", 300, nil)

	r, err := s.CreateReview(ctx, ReviewInput{ProductID: p.ID, Session: "user_1", AuthorName: "Anna", Rating: 5, Comment: "lovely"})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, r.Status)
	assert.Equal(t, clock.Now().Add(24*time.Hour), r.CanEditUntil)

	// pending reviews are not public
	public, err := s.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, public)

	_, err = s.ModerateReview(ctx, r.ID, models.ReviewApproved, "thank you")
	require.NoError(t, err)
	public, err = s.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "thank you", public[0].AdminReply)
	require.NotNil(t, public[0].AdminReplyAt)

	// the author may edit within the window, which sends it back to moderation
	clock.Advance(time.Hour)
	_, err = s.UpdateReview(ctx, r.ID, ReviewInput{Session: "user_2", AuthorName: "Eve", Rating: 1})
	require.ErrorIs(t, err, ErrForbidden)
	edited, err := s.UpdateReview(ctx, r.ID, ReviewInput{Session: "user_1", AuthorName: "Anna", Rating: 4, Comment: "nice"})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, edited.Status)
	public, err = s.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, public)

	clock.Advance(24 * time.Hour)
	_, err = s.UpdateReview(ctx, r.ID, ReviewInput{Session: "user_1", AuthorName: "Anna", Rating: 3})
	require.ErrorIs(t, err, ErrForbidden)

	all, err := s.ListAllReviews(ctx, models.ReviewPending)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestReviews_Validation(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "MUG", 300, nil)

	for _, rating := range []int{0, 6} {
		_, err := s.CreateReview(ctx, ReviewInput{ProductID: p.ID, AuthorName: "A", Rating: rating})
		require.ErrorIs(t, err, ErrInvalidInput)
	}
	_, err := s.CreateReview(ctx, ReviewInput{ProductID: "missing", AuthorName: "A", Rating: 3})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.ModerateReview(ctx, "missing", models.ReviewApproved, "")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.ModerateReview(ctx, "missing", "spam", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestToggleLike(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	a := seedProduct(t, s, "A", 10, func(p *models.Product) { p.CreatedAt = base })
	b := seedProduct(t, s, "B", 10, func(p *models.Product) { p.CreatedAt = base.Add(time.Hour) })

	// warm the caches that a like must refresh
	_, err := s.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	_, err = s.ListProducts(ctx, ProductFilter{SortBy: SortPopular})
	require.NoError(t, err)

	liked, count, err := s.ToggleLike(ctx, "user_1", a.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, count)
	_, count, err = s.ToggleLike(ctx, "user_2", a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := s.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.LikesCount)

	page, err := s.ListProducts(ctx, ProductFilter{SortBy: SortPopular})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, skus(page.Products))

	ids, err := s.LikedProductIDs(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids)

	liked, count, err = s.ToggleLike(ctx, "user_1", a.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 1, count)
	ids, err = s.LikedProductIDs(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, _, err = s.ToggleLike(ctx, "user_1", "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.ToggleLike(ctx, "", b.ID)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestClearCache(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "A", 10, nil)
	_, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Positive(t, s.Cache().Len())

	s.ClearCache()
	require.Zero(t, s.Cache().Len())
}

func ptr[T any](v T) *T { return &v }

func TestListImportedProducts_OnlyStaleImports(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	checked := base.Add(time.Hour)

	seedProduct(t, s, "LOCAL", 100, nil)
	seedProduct(t, s, "NOURL", 100, func(p *models.Product) { p.IsImported = true })
	seedProduct(t, s, "NEVER", 100, func(p *models.Product) {
		p.IsImported = true
		p.SourceURL = "https://www.wildberries.ru/catalog/1/detail.aspx"
	})
	seedProduct(t, s, "OLD", 100, func(p *models.Product) {
		p.IsImported = true
		p.SourceURL = "https://www.wildberries.ru/catalog/2/detail.aspx"
		p.LastPriceCheckAt = &base
	})
	seedProduct(t, s, "FRESH", 100, func(p *models.Product) {
		p.IsImported = true
		p.SourceURL = "https://www.wildberries.ru/catalog/3/detail.aspx"
		p.LastPriceCheckAt = &checked
	})

	stale, err := s.ListImportedProducts(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"NEVER", "OLD"}, skus(stale))

	all, err := s.ListImportedProducts(ctx, time.Time{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"NEVER", "OLD", "FRESH"}, skus(all))
}

func TestApplyPriceCheck(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "WB-1", 120, func(p *models.Product) {
		p.IsImported = true
		p.SourceURL = "https://www.wildberries.ru/catalog/1/detail.aspx"
	})

	// warm the caches so the check has to invalidate them
	_, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	_, err = s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)

	first := base.Add(time.Hour)
	got, changed, err := s.ApplyPriceCheck(ctx, p.ID, PriceCheck{Price: 120, Status: models.StatusInStock, CheckedAt: first})
	require.NoError(t, err)
	assert.False(t, changed)
	require.NotNil(t, got.LastPriceCheckAt)
	assert.True(t, first.Equal(*got.LastPriceCheckAt))

	second := first.Add(time.Hour)
	got, changed, err = s.ApplyPriceCheck(ctx, p.ID, PriceCheck{
		Price:         150,
		OriginalPrice: ptr(200.0),
		Status:        models.StatusOutOfStock,
		CheckedAt:     second,
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 150.0, got.Price)

	reloaded, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, reloaded.Price)
	require.NotNil(t, reloaded.OriginalPrice)
	assert.Equal(t, 200.0, *reloaded.OriginalPrice)
	assert.Equal(t, models.StatusOutOfStock, reloaded.Status)
	require.NotNil(t, reloaded.LastPriceCheckAt)
	assert.True(t, second.Equal(*reloaded.LastPriceCheckAt))

	page, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, 150.0, page.Products[0].Price)

	_, _, err = s.ApplyPriceCheck(ctx, "missing", PriceCheck{Price: 1, Status: models.StatusInStock, CheckedAt: second})
	require.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.ApplyPriceCheck(ctx, p.ID, PriceCheck{Price: -1, Status: models.StatusInStock, CheckedAt: second})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateProduct_KeepsLastPriceCheck(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "WB-2", 100, func(p *models.Product) {
		p.IsImported = true
		p.SourceURL = "https://www.wildberries.ru/catalog/2/detail.aspx"
	})
	_, _, err := s.ApplyPriceCheck(ctx, p.ID, PriceCheck{Price: 100, Status: models.StatusInStock, CheckedAt: base})
	require.NoError(t, err)

	p.Name = "Renamed"
	p.LastPriceCheckAt = nil
	updated, err := s.UpdateProduct(ctx, p.ID, p)
	require.NoError(t, err)
	require.NotNil(t, updated.LastPriceCheckAt)
	assert.True(t, base.Equal(*updated.LastPriceCheckAt))
}
