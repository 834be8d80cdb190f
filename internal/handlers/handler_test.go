package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"gift-storefront-api/internal/auth"
	"gift-storefront-api/internal/bundle"
	"gift-storefront-api/internal/cache"
	"gift-storefront-api/internal/marketplace"
	"gift-storefront-api/internal/media"
	"gift-storefront-api/internal/middleware"
	"gift-storefront-api/internal/models"
	"gift-storefront-api/internal/realtime"
	"gift-storefront-api/internal/storage"
	"gift-storefront-api/internal/store"
	"gift-storefront-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse"

type testEnv struct {
	router *gin.Engine
	store  *store.Store
	hub    *realtime.Hub
	auth   *auth.Authenticator
}

type envOption func(*Deps)

func withUploader(u media.Uploader) envOption {
	return func(d *Deps) { d.Uploader = u }
}

// withMarketplace wires marketplace import over f into the env's store.
func withMarketplace(f marketplace.Fetcher) envOption {
	return func(d *Deps) {
		d.Marketplace = marketplace.NewService(marketplace.NewParser(f, marketplace.ParserOptions{}), d.Store, marketplace.ServiceOptions{
			Logger: zerolog.Nop(),
		})
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustDB(t)
	storeCache := cache.NewLRUCache[string, any](cache.Options{Name: "store", MaxSize: 500, ConcurrencySafe: true})
	st := store.New(db, store.Options{Cache: storeCache, Logger: zerolog.Nop()})
	hot := cache.NewLRUCache[string, bundle.State](cache.Options{Name: "bundles", ConcurrencySafe: true})
	bundles := bundle.NewService(storage.NewGormKV(db), bundle.ServiceOptions{
		Limits: bundle.DefaultLimits(),
		Hot:    hot,
		Logger: zerolog.Nop(),
	})

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	a := auth.New(auth.Config{
		Secret:       "test-secret",
		Issuer:       "gift-storefront-api",
		Audience:     "gift-storefront-admin",
		Username:     "admin",
		PasswordHash: hash,
	})

	hub := realtime.NewHub()
	deps := Deps{
		Store:                st,
		Bundles:              bundles,
		Hub:                  hub,
		Auth:                 a,
		Caches:               []StatsReporter{storeCache, hot},
		AssemblyServicePrice: 250,
		Logger:               zerolog.Nop(),
	}
	for _, o := range opts {
		o(&deps)
	}
	h := New(deps)

	r := gin.New()
	api := r.Group("/api")
	shop := api.Group("")
	shop.Use(middleware.Session())
	shop.GET("/products", h.ListProducts)
	shop.GET("/products/:id", h.GetProduct)
	shop.GET("/products/:id/reviews", h.ListReviews)
	shop.POST("/products/:id/reviews", h.CreateReview)
	shop.PUT("/reviews/:id", h.UpdateReview)
	shop.GET("/banners", h.ListBanners)
	shop.GET("/likes", h.ListLikes)
	shop.POST("/likes/:productId", h.ToggleLike)
	shop.POST("/orders", h.CreateOrder)
	shop.GET("/orders", h.ListMyOrders)
	shop.GET("/orders/:id", h.GetOrder)
	shop.GET("/bundle", h.GetBundle)
	shop.DELETE("/bundle", h.ClearBundle)
	shop.POST("/bundle/items", h.AddBundleItem)
	shop.PATCH("/bundle/items/:productId", h.UpdateBundleItem)
	shop.DELETE("/bundle/items/:productId", h.RemoveBundleItem)
	shop.PUT("/bundle/step", h.SetBundleStep)
	shop.POST("/bundle/checkout", h.CheckoutBundle)

	api.POST("/admin/login", h.AdminLogin)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(a))
	admin.POST("/products", h.CreateProduct)
	admin.POST("/products/parse", h.ParseMarketplaceProduct)
	admin.POST("/products/import", h.ImportProduct)
	admin.POST("/products/sync-prices", h.SyncPrices)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
	admin.GET("/banners", h.AdminListBanners)
	admin.POST("/banners", h.CreateBanner)
	admin.GET("/orders", h.AdminListOrders)
	admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
	admin.GET("/reviews", h.AdminListReviews)
	admin.PATCH("/reviews/:id", h.ModerateReview)
	admin.POST("/uploads", h.UploadImage)
	admin.POST("/cache/clear", h.ClearCache)
	admin.GET("/cache/stats", h.CacheStats)

	return &testEnv{router: r, store: st, hub: hub, auth: a}
}

// do sends a JSON request as session (when not empty) and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, session string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := e.auth.GenerateToken("admin")
	require.NoError(t, err)
	return token
}

func (e *testEnv) seedProduct(t *testing.T, sku string, price float64, mutate func(*models.Product)) models.Product {
	t.Helper()
	p := models.Product{SKU: sku, Name: "Gift " + sku, Price: price}
	if mutate != nil {
		mutate(&p)
	}
	created, err := e.store.CreateProduct(context.Background(), p)
	require.NoError(t, err)
	return created
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var testCustomer = map[string]string{
	"name":  "Anna",
	"email": "anna@example.com",
	"phone": "+7 900 000 00 00",
}

// recordingClient is a realtime.Client capturing the messages it is sent.
type recordingClient struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (r *recordingClient) Send(message []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message)
	return true
}

func (r *recordingClient) Close() {}

func (r *recordingClient) messages() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.msgs...)
}
