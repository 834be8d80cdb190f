// Package marketplace reads product cards from the marketplaces the
// storefront resells from and keeps imported prices in step with them.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Source identifies a marketplace.
type Source string

const (
	Wildberries  Source = "wildberries"
	Ozon         Source = "ozon"
	YandexMarket Source = "yandex"
)

var (
	// ErrUnsupported is returned for links to an unknown marketplace
	ErrUnsupported = errors.New("unsupported marketplace, use a Wildberries, Ozon or Yandex Market link")

	// ErrNoProductID is returned when the link does not name a product
	ErrNoProductID = errors.New("could not find a product id in the link")

	// ErrNoProductData is returned when the marketplace answered without a usable card
	ErrNoProductData = errors.New("marketplace returned no product data")

	// ErrUpstream wraps failures talking to the marketplace
	ErrUpstream = errors.New("marketplace request failed")
)

var (
	wbIDPattern     = regexp.MustCompile(`/catalog/(\d+)`)
	ozonIDPattern   = regexp.MustCompile(`/product/(?:[^/]*-)?(\d+)`)
	yandexIDPattern = regexp.MustCompile(`/(?:card/.+?|product--[^/]+|product)/(\d+)`)
)

// compositionKeys are the characteristics a composition is taken from, in order.
var compositionKeys = []string{"Состав", "Материал", "Composition", "Material"}

// Listing is a product card as read from a marketplace. Prices are in
// roubles before the storefront margin.
type Listing struct {
	Source          Source            `json:"source"`
	ExternalID      string            `json:"external_id"`
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	Price           float64           `json:"price"`
	OldPrice        float64           `json:"old_price,omitempty"`
	Description     string            `json:"description"`
	Category        string            `json:"category,omitempty"`
	Characteristics map[string]string `json:"characteristics"`
	Composition     string            `json:"composition,omitempty"`
	Images          []string          `json:"images"`
	InStock         bool              `json:"in_stock"`
}

// Fetcher GETs a marketplace URL. *proxy.Proxy implements it.
type Fetcher interface {
	Fetch(ctx context.Context, target string) ([]byte, error)
}

// Detect returns the marketplace rawURL belongs to.
func Detect(rawURL string) (Source, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "wildberries.ru"), strings.Contains(host, "wb.ru"):
		return Wildberries, true
	case strings.Contains(host, "ozon.ru"):
		return Ozon, true
	case strings.Contains(host, "market.yandex.ru"):
		return YandexMarket, true
	}
	return "", false
}

// ProductID extracts the marketplace's product id from rawURL.
func ProductID(src Source, rawURL string) (string, bool) {
	path := rawURL
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
		path = u.Path
	}
	var re *regexp.Regexp
	switch src {
	case Wildberries:
		re = wbIDPattern
	case Ozon:
		re = ozonIDPattern
	case YandexMarket:
		re = yandexIDPattern
	default:
		return "", false
	}
	m := re.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SKU is the catalog SKU an imported product gets by default.
func SKU(src Source, externalID string) string {
	prefix := map[Source]string{Wildberries: "WB", Ozon: "OZON", YandexMarket: "YM"}[src]
	return prefix + "-" + externalID
}

// Markup applies a margin in percent and rounds to whole roubles.
func Markup(price, marginPercent float64) float64 {
	return math.Round(price * (1 + marginPercent/100))
}

// ParserOptions configures a Parser.
type ParserOptions struct {
	// CardAPI is the Wildberries card endpoint. Defaults to DefaultCardAPI.
	CardAPI string
	Logger  zerolog.Logger
}

// Parser turns marketplace links into Listings.
type Parser struct {
	fetcher Fetcher
	cardAPI string
	logger  zerolog.Logger
}

// NewParser returns a Parser fetching through f.
func NewParser(f Fetcher, opts ParserOptions) *Parser {
	api := opts.CardAPI
	if api == "" {
		api = DefaultCardAPI
	}
	return &Parser{fetcher: f, cardAPI: api, logger: opts.Logger}
}

// Parse reads the product card behind rawURL.
func (p *Parser) Parse(ctx context.Context, rawURL string) (Listing, error) {
	rawURL = strings.TrimSpace(rawURL)
	src, ok := Detect(rawURL)
	if !ok {
		return Listing{}, ErrUnsupported
	}
	id, ok := ProductID(src, rawURL)
	if !ok {
		return Listing{}, fmt.Errorf("%s: %w", src, ErrNoProductID)
	}

	var (
		l   Listing
		err error
	)
	switch src {
	case Wildberries:
		l, err = p.parseWildberries(ctx, id)
	default:
		l, err = p.parsePage(ctx, rawURL)
	}
	if err != nil {
		p.logger.Warn().Err(err).Str("source", string(src)).Str("url", rawURL).Msg("marketplace parse failed")
		return Listing{}, err
	}

	l.Source = src
	l.ExternalID = id
	l.URL = rawURL
	if l.Characteristics == nil {
		l.Characteristics = map[string]string{}
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	if l.Composition == "" {
		for _, k := range compositionKeys {
			if v, ok := l.Characteristics[k]; ok {
				l.Composition = v
				break
			}
		}
	}
	if l.OldPrice <= l.Price {
		l.OldPrice = 0
	}
	if strings.TrimSpace(l.Title) == "" || l.Price <= 0 {
		return Listing{}, fmt.Errorf("%s %s: %w", src, id, ErrNoProductData)
	}
	return l, nil
}

func (p *Parser) fetch(ctx context.Context, target string) ([]byte, error) {
	body, err := p.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return body, nil
}
