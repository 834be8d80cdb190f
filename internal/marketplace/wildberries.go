package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultCardAPI serves Wildberries product cards as JSON.
const DefaultCardAPI = "https://card.wb.ru/cards/v2/detail"

const (
	wbDest      = "-1257786"
	wbMaxImages = 10
	wbMinImages = 5
)

// wbCard covers both the v1 shape (prices on the product) and the v2
// shape (prices per size) of the card endpoint.
type wbCard struct {
	Data struct {
		Products []wbProduct `json:"products"`
	} `json:"data"`
}

type wbProduct struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	Entity        string `json:"entity"`
	SubjectName   string `json:"subjectName"`
	SalePriceU    int64  `json:"salePriceU"`
	PriceU        int64  `json:"priceU"`
	TotalQuantity *int   `json:"totalQuantity"`
	Pics          int    `json:"pics"`
	Sizes         []struct {
		Price struct {
			Basic   int64 `json:"basic"`
			Product int64 `json:"product"`
		} `json:"price"`
		Stocks []struct {
			Qty int `json:"qty"`
		} `json:"stocks"`
	} `json:"sizes"`
}

func (p *Parser) parseWildberries(ctx context.Context, id string) (Listing, error) {
	q := url.Values{}
	q.Set("appType", "1")
	q.Set("curr", "rub")
	q.Set("dest", wbDest)
	q.Set("nm", id)

	body, err := p.fetch(ctx, p.cardAPI+"?"+q.Encode())
	if err != nil {
		return Listing{}, err
	}
	var card wbCard
	if err := json.Unmarshal(body, &card); err != nil {
		return Listing{}, fmt.Errorf("wildberries %s: %w: %v", id, ErrNoProductData, err)
	}

	want, _ := strconv.ParseInt(id, 10, 64)
	var prod *wbProduct
	for i := range card.Data.Products {
		if card.Data.Products[i].ID == want {
			prod = &card.Data.Products[i]
			break
		}
	}
	if prod == nil {
		return Listing{}, fmt.Errorf("wildberries %s: %w", id, ErrNoProductData)
	}

	sale, basic := prod.SalePriceU, prod.PriceU
	if sale == 0 {
		for _, s := range prod.Sizes {
			if s.Price.Product > 0 {
				sale, basic = s.Price.Product, s.Price.Basic
				break
			}
		}
	}

	category := prod.SubjectName
	if category == "" {
		category = prod.Entity
	}
	chars := map[string]string{}
	if prod.Brand != "" {
		chars["Бренд"] = prod.Brand
	}

	return Listing{
		Title:           prod.Name,
		Price:           float64(sale) / 100,
		OldPrice:        float64(basic) / 100,
		Category:        category,
		Characteristics: chars,
		Images:          wbImages(prod.ID, prod.Pics),
		InStock:         wbInStock(prod),
	}, nil
}

func wbInStock(p *wbProduct) bool {
	if p.TotalQuantity != nil {
		return *p.TotalQuantity > 0
	}
	listed := false
	for _, s := range p.Sizes {
		for _, st := range s.Stocks {
			listed = true
			if st.Qty > 0 {
				return true
			}
		}
	}
	return !listed
}

// wbImages builds CDN links for the first pics photos of product id.
func wbImages(id int64, pics int) []string {
	if pics <= 0 {
		pics = wbMinImages
	}
	if pics > wbMaxImages {
		pics = wbMaxImages
	}
	vol, part := id/100000, id/1000
	images := make([]string, 0, pics)
	for i := 1; i <= pics; i++ {
		images = append(images, fmt.Sprintf("https://basket-%02d.wbbasket.ru/vol%d/part%d/%d/images/big/%d.webp", vol, vol, part, id, i))
	}
	return images
}
