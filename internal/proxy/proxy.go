// Package proxy forwards storefront requests for marketplace data to a small
// set of allowed upstream hosts.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptLanguage = "ru-RU,ru;q=0.9"
	referer        = "https://www.wildberries.ru/"

	defaultContentType = "application/json"

	maxRedirects  = 10
	maxFetchBytes = 5 << 20
)

// ErrNotAllowed is returned when a target or a redirect leaves the allow-list.
var ErrNotAllowed = errors.New("domain not allowed")

// DefaultAllowedHosts are the marketplaces the storefront imports from.
var DefaultAllowedHosts = []string{"card.wb.ru", "www.wildberries.ru", "ozon.ru", "market.yandex.ru"}

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "giftshop_proxy_requests_total",
		Help: "Marketplace proxy requests by outcome",
	},
	[]string{"outcome"},
)

// Options configures a Proxy.
type Options struct {
	AllowedHosts []string
	Timeout      time.Duration
	// Client defaults to a client with Timeout. Its redirect policy is
	// replaced so every hop is checked against AllowedHosts.
	Client *http.Client
	Logger zerolog.Logger
}

// Proxy is a single pass-through GET with a host allow-list. It never
// retries and never caches.
type Proxy struct {
	allowed []string
	timeout time.Duration
	client  *http.Client
	logger  zerolog.Logger
}

// New returns a Proxy.
func New(opts Options) *Proxy {
	allowed := opts.AllowedHosts
	if len(allowed) == 0 {
		allowed = DefaultAllowedHosts
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if opts.Client != nil {
		c := *opts.Client
		client = &c
	}
	p := &Proxy{allowed: allowed, timeout: timeout, client: client, logger: opts.Logger}
	client.CheckRedirect = p.checkRedirect
	return p
}

func (p *Proxy) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if !p.Allowed(req.URL.String()) {
		return fmt.Errorf("redirect to %s: %w", req.URL.Host, ErrNotAllowed)
	}
	return nil
}

// Allowed reports whether target may be fetched. The hostname must contain
// one of the allowed hosts and the scheme must be http or https.
func (p *Proxy) Allowed(target string) bool {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, h := range p.allowed {
		if strings.Contains(host, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// Handle serves GET /api/proxy?url=<target>.
func (p *Proxy) Handle(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")

	target := c.Query("url")
	if target == "" {
		requestsTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL parameter is required"})
		return
	}
	if !p.Allowed(target) {
		requestsTotal.WithLabelValues("forbidden").Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": "Domain not allowed"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), p.timeout)
	defer cancel()

	req, err := newUpstreamRequest(ctx, target)
	if err != nil {
		requestsTotal.WithLabelValues("forbidden").Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": "Domain not allowed"})
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("upstream_error").Inc()
		p.logger.Warn().Err(err).Str("url", target).Msg("proxy upstream request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Proxy request failed"})
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	requestsTotal.WithLabelValues("forwarded").Inc()
	c.Status(resp.StatusCode)
	c.Header("Content-Type", contentType)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		p.logger.Warn().Err(err).Str("url", target).Msg("proxy response copy interrupted")
	}
}

// Fetch GETs target with the same allow-list and headers as Handle and
// returns the body of a 2xx response.
func (p *Proxy) Fetch(ctx context.Context, target string) ([]byte, error) {
	if !p.Allowed(target) {
		requestsTotal.WithLabelValues("forbidden").Inc()
		return nil, ErrNotAllowed
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := newUpstreamRequest(ctx, target)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("fetch %s: upstream status %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	requestsTotal.WithLabelValues("fetched").Inc()
	return body, nil
}

func newUpstreamRequest(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Referer", referer)
	return req, nil
}
