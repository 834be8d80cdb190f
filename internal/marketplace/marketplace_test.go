package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gift-storefront-api/internal/proxy"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchFunc func(ctx context.Context, target string) ([]byte, error)

func (f fetchFunc) Fetch(ctx context.Context, target string) ([]byte, error) { return f(ctx, target) }

// pages serves fixed bodies by URL prefix.
func pages(bodies map[string]string) fetchFunc {
	return func(_ context.Context, target string) ([]byte, error) {
		for prefix, body := range bodies {
			if strings.HasPrefix(target, prefix) {
				return []byte(body), nil
			}
		}
		return nil, fmt.Errorf("unexpected fetch %s", target)
	}
}

const wbCardV1 = `{"data":{"products":[{"id":315215210,"name":"Кружка керамическая","brand":"HomeLine",
	"subjectName":"Кружки","salePriceU":129900,"priceU":199900,"totalQuantity":12,"pics":3}]}}`

const wbCardV2 = `{"data":{"products":[{"id":42,"name":"Чай листовой","entity":"чай",
	"sizes":[{"price":{"basic":50000,"product":45000},"stocks":[{"qty":0}]}],"pics":0}]}}`

const ozonPage = `<!doctype html><html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"BreadcrumbList"}</script>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Product","name":"Плед и подушка","description":"Мягкий плед",
 "image":["//cdn.ozon.ru/1.jpg","https://cdn.ozon.ru/2.jpg","https://cdn.ozon.ru/2.jpg"],
 "brand":{"@type":"Brand","name":"Cozy"},
 "additionalProperty":[{"name":"Состав","value":"хлопок 100%"}],
 "offers":{"@type":"Offer","price":"2 490,50","priceCurrency":"RUB","availability":"https://schema.org/InStock"}}
</script></head><body><h1>ignored</h1></body></html>`

const yandexPage = `<html><head><script type="application/ld+json">
{"@graph":[{"@type":"WebPage"},{"@type":["Product"],"name":"Свеча","image":{"url":"https://avatars.mds.yandex.net/a.jpg"},
 "offers":[{"@type":"AggregateOffer","lowPrice":700,"highPrice":900,"availability":"http://schema.org/OutOfStock"}]}]}
</script></head></html>`

func TestDetect(t *testing.T) {
	tests := map[string]Source{
		"https://www.wildberries.ru/catalog/315215210/detail.aspx":   Wildberries,
		"https://card.wb.ru/cards/v2/detail?nm=1":                    Wildberries,
		"https://www.ozon.ru/product/pled-123456789/":                Ozon,
		"https://market.yandex.ru/card/svecha/102030?sku=1":          YandexMarket,
		"https://market.yandex.ru/product--svecha-aromaticheskaya/5": YandexMarket,
	}
	for raw, want := range tests {
		got, ok := Detect(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"https://example.com/catalog/1", "not a url", "https://evil.example/?u=ozon.ru"} {
		_, ok := Detect(raw)
		assert.False(t, ok, raw)
	}
}

func TestProductID(t *testing.T) {
	tests := []struct {
		src  Source
		raw  string
		want string
	}{
		{Wildberries, "https://www.wildberries.ru/catalog/315215210/detail.aspx?targetUrl=GP", "315215210"},
		{Ozon, "https://www.ozon.ru/product/pled-flisovyy-123456789/?asb=1", "123456789"},
		{Ozon, "https://www.ozon.ru/product/987654/", "987654"},
		{YandexMarket, "https://market.yandex.ru/card/svecha/s-otsvetom/102030?sku=1", "102030"},
		{YandexMarket, "https://market.yandex.ru/product--svecha/555", "555"},
	}
	for _, tt := range tests {
		got, ok := ProductID(tt.src, tt.raw)
		require.True(t, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, ok := ProductID(Wildberries, "https://www.wildberries.ru/brands/home")
	assert.False(t, ok)
}

func TestMarkupAndSKU(t *testing.T) {
	assert.Equal(t, 1559.0, Markup(1299, 20))
	assert.Equal(t, 1299.0, Markup(1299, 0))
	assert.Equal(t, 13.0, Markup(10.4, 25))
	assert.Equal(t, "WB-42", SKU(Wildberries, "42"))
	assert.Equal(t, "OZON-7", SKU(Ozon, "7"))
	assert.Equal(t, "YM-9", SKU(YandexMarket, "9"))
}

func TestParse_WildberriesCard(t *testing.T) {
	var gotURL string
	f := func(_ context.Context, target string) ([]byte, error) {
		gotURL = target
		return []byte(wbCardV1), nil
	}
	p := NewParser(fetchFunc(f), ParserOptions{Logger: zerolog.Nop()})

	l, err := p.Parse(context.Background(), " https://www.wildberries.ru/catalog/315215210/detail.aspx ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotURL, DefaultCardAPI+"?"))
	assert.Contains(t, gotURL, "nm=315215210")

	assert.Equal(t, Wildberries, l.Source)
	assert.Equal(t, "315215210", l.ExternalID)
	assert.Equal(t, "Кружка керамическая", l.Title)
	assert.Equal(t, 1299.0, l.Price)
	assert.Equal(t, 1999.0, l.OldPrice)
	assert.Equal(t, "Кружки", l.Category)
	assert.Equal(t, "HomeLine", l.Characteristics["Бренд"])
	assert.True(t, l.InStock)
	require.Len(t, l.Images, 3)
	assert.Equal(t, "https://basket-3152.wbbasket.ru/vol3152/part315215/315215210/images/big/1.webp", l.Images[0])
}

func TestParse_WildberriesSizedPrices(t *testing.T) {
	p := NewParser(pages(map[string]string{"https://cards.test/": wbCardV2}), ParserOptions{CardAPI: "https://cards.test/detail"})

	l, err := p.Parse(context.Background(), "https://www.wildberries.ru/catalog/42/detail.aspx")
	require.NoError(t, err)
	assert.Equal(t, 450.0, l.Price)
	assert.Equal(t, 500.0, l.OldPrice)
	assert.Equal(t, "чай", l.Category)
	assert.False(t, l.InStock)
	assert.Len(t, l.Images, wbMinImages)
}

func TestParse_WildberriesCardMissingProduct(t *testing.T) {
	p := NewParser(pages(map[string]string{DefaultCardAPI: `{"data":{"products":[]}}`}), ParserOptions{})
	_, err := p.Parse(context.Background(), "https://www.wildberries.ru/catalog/1/detail.aspx")
	require.ErrorIs(t, err, ErrNoProductData)
}

func TestParse_OzonJSONLD(t *testing.T) {
	const link = "https://www.ozon.ru/product/pled-123456789/"
	p := NewParser(pages(map[string]string{link: ozonPage}), ParserOptions{})

	l, err := p.Parse(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, Ozon, l.Source)
	assert.Equal(t, "123456789", l.ExternalID)
	assert.Equal(t, "Плед и подушка", l.Title)
	assert.Equal(t, "Мягкий плед", l.Description)
	assert.InDelta(t, 2490.5, l.Price, 1e-9)
	assert.Zero(t, l.OldPrice)
	assert.Equal(t, []string{"https://cdn.ozon.ru/1.jpg", "https://cdn.ozon.ru/2.jpg"}, l.Images)
	assert.Equal(t, "Cozy", l.Characteristics["Бренд"])
	assert.Equal(t, "хлопок 100%", l.Composition)
	assert.True(t, l.InStock)
}

func TestParse_YandexGraphAndAggregateOffer(t *testing.T) {
	const link = "https://market.yandex.ru/card/svecha/102030"
	p := NewParser(pages(map[string]string{link: yandexPage}), ParserOptions{})

	l, err := p.Parse(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, "Свеча", l.Title)
	assert.Equal(t, 700.0, l.Price)
	assert.Equal(t, 900.0, l.OldPrice)
	assert.False(t, l.InStock)
	assert.Equal(t, []string{"https://avatars.mds.yandex.net/a.jpg"}, l.Images)
}

func TestParse_Errors(t *testing.T) {
	boom := errors.New("connection reset")
	failing := fetchFunc(func(context.Context, string) ([]byte, error) { return nil, boom })
	p := NewParser(failing, ParserOptions{})
	ctx := context.Background()

	_, err := p.Parse(ctx, "https://example.com/item/1")
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = p.Parse(ctx, "https://www.ozon.ru/category/pledy/")
	require.ErrorIs(t, err, ErrNoProductID)

	_, err = p.Parse(ctx, "https://www.ozon.ru/product/pled-1/")
	require.ErrorIs(t, err, ErrUpstream)
	require.ErrorIs(t, err, boom)

	noLD := NewParser(pages(map[string]string{"https://www.ozon.ru/": "<html><body>captcha</body></html>"}), ParserOptions{})
	_, err = noLD.Parse(ctx, "https://www.ozon.ru/product/pled-1/")
	require.ErrorIs(t, err, ErrNoProductData)

	free := NewParser(pages(map[string]string{"https://www.ozon.ru/": `<script type="application/ld+json">{"@type":"Product","name":"X","offers":{"price":0}}</script>`}), ParserOptions{})
	_, err = free.Parse(ctx, "https://www.ozon.ru/product/x-2/")
	require.ErrorIs(t, err, ErrNoProductData)
}

func TestParse_ThroughProxyAllowList(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("nm"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"products":[{"id":7,"name":"Носки","salePriceU":19900,"priceU":19900,"totalQuantity":1}]}}`))
	}))
	defer upstream.Close()

	px := proxy.New(proxy.Options{AllowedHosts: []string{"127.0.0.1"}, Logger: zerolog.Nop()})
	p := NewParser(px, ParserOptions{CardAPI: upstream.URL + "/cards/v2/detail"})

	l, err := p.Parse(context.Background(), "https://www.wildberries.ru/catalog/7/detail.aspx")
	require.NoError(t, err)
	assert.Equal(t, 199.0, l.Price)
	assert.Zero(t, l.OldPrice)

	// the page itself is not on this proxy's allow-list
	_, err = p.Parse(context.Background(), "https://www.ozon.ru/product/x-7/")
	require.ErrorIs(t, err, proxy.ErrNotAllowed)
}
