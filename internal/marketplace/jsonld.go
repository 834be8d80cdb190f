package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const ldMaxImages = 10

// parsePage reads the schema.org Product embedded in a product page as
// JSON-LD. Ozon and Yandex Market both publish one.
func (p *Parser) parsePage(ctx context.Context, rawURL string) (Listing, error) {
	body, err := p.fetch(ctx, rawURL)
	if err != nil {
		return Listing{}, err
	}
	for _, block := range ldBlocks(body) {
		var doc any
		if json.Unmarshal(block, &doc) != nil {
			continue
		}
		if prod := findLDProduct(doc); prod != nil {
			return ldListing(prod), nil
		}
	}
	return Listing{}, fmt.Errorf("%s: %w", rawURL, ErrNoProductData)
}

// ldBlocks returns the bodies of every application/ld+json script.
func ldBlocks(page []byte) [][]byte {
	z := html.NewTokenizer(bytes.NewReader(page))
	var (
		blocks [][]byte
		inLD   bool
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return blocks
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			inLD = false
			if string(name) != "script" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "type" && strings.EqualFold(strings.TrimSpace(string(val)), "application/ld+json") {
					inLD = true
				}
				if !more {
					break
				}
			}
		case html.TextToken:
			if inLD {
				blocks = append(blocks, bytes.Clone(z.Text()))
			}
		case html.EndTagToken:
			inLD = false
		}
	}
}

// findLDProduct walks a JSON-LD document, including arrays and @graph,
// for the first node typed Product.
func findLDProduct(doc any) map[string]any {
	switch v := doc.(type) {
	case []any:
		for _, item := range v {
			if p := findLDProduct(item); p != nil {
				return p
			}
		}
	case map[string]any:
		if isLDProduct(v["@type"]) {
			return v
		}
		if g, ok := v["@graph"]; ok {
			return findLDProduct(g)
		}
	}
	return nil
}

func isLDProduct(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product" || strings.HasSuffix(v, "schema.org/Product")
	case []any:
		for _, item := range v {
			if isLDProduct(item) {
				return true
			}
		}
	}
	return false
}

func ldListing(prod map[string]any) Listing {
	l := Listing{
		Title:           ldString(prod["name"]),
		Description:     ldString(prod["description"]),
		Category:        ldString(prod["category"]),
		Characteristics: map[string]string{},
		Images:          ldImages(prod["image"]),
		InStock:         true,
	}
	if brand := ldBrand(prod["brand"]); brand != "" {
		l.Characteristics["Бренд"] = brand
	}
	if props, ok := prod["additionalProperty"].([]any); ok {
		for _, item := range props {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, value := ldString(m["name"]), ldString(m["value"])
			if name != "" && value != "" {
				l.Characteristics[name] = value
			}
		}
	}

	offer := firstLDOffer(prod["offers"])
	if offer != nil {
		l.Price = ldNumber(offer["price"])
		if l.Price == 0 {
			l.Price = ldNumber(offer["lowPrice"])
		}
		l.OldPrice = ldNumber(offer["highPrice"])
		if avail := ldString(offer["availability"]); avail != "" {
			l.InStock = strings.HasSuffix(avail, "InStock") || strings.HasSuffix(avail, "LimitedAvailability")
		}
	}
	return l
}

func firstLDOffer(v any) map[string]any {
	switch o := v.(type) {
	case map[string]any:
		return o
	case []any:
		for _, item := range o {
			if m, ok := item.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func ldBrand(v any) string {
	if m, ok := v.(map[string]any); ok {
		return ldString(m["name"])
	}
	return ldString(v)
}

func ldImages(v any) []string {
	var out []string
	add := func(s string) {
		if s == "" || len(out) >= ldMaxImages {
			return
		}
		if strings.HasPrefix(s, "//") {
			s = "https:" + s
		}
		for _, seen := range out {
			if seen == s {
				return
			}
		}
		out = append(out, s)
	}
	var walk func(any)
	walk = func(v any) {
		switch img := v.(type) {
		case string:
			add(img)
		case map[string]any:
			add(ldString(img["url"]))
		case []any:
			for _, item := range img {
				walk(item)
			}
		}
	}
	walk(v)
	return out
}

func ldString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

// ldNumber reads a price given as a number or a string like "1 299,00".
func ldNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		s := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".").Replace(n)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
