package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Category identifies which kind of travel product a catalog item is.  The
// string values are part of the wire contract and are stored verbatim in the
// products.category column.
type Category string

const (
	CategoryHotel    Category = "HOTEL"
	CategoryGolf     Category = "GOLF"
	CategoryTour     Category = "TOUR"
	CategorySpa      Category = "SPA"
	CategoryActivity Category = "ACTIVITY"
	CategoryVehicle  Category = "VEHICLE"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryHotel, CategoryGolf, CategoryTour, CategorySpa, CategoryActivity, CategoryVehicle,
}

// Valid reports whether c is one of the six known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// ParseCategory normalizes a user supplied category name.  Matching is
// case-insensitive; unknown values are rejected.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown product category %q", s)
	}
	return c, nil
}

// Product is a catalog entry.  The envelope fields are shared by every
// category while the category specific data lives in exactly one Detail
// variant.  The category of a product is taken from its variant, so a
// product cannot carry details that belong to another category.
//
// Fields:
//
//	ID            – opaque catalog identifier (e.g. "TOUR-1").
//	Name          – display name.
//	Location      – free-form location label.
//	OriginalPrice – list price; never below SalePrice.
//	SalePrice     – advertised price after the catalog discount.
//	Rating        – average rating between 0.0 and 5.0.
//	ImageURL      – reference to the primary image.
//	Includes      – ordered list of inclusions; order drives truncation.
//	Active        – inactive products cannot be quoted.
type Product struct {
	ID            string
	Name          string
	Location      string
	OriginalPrice int64
	SalePrice     int64
	Rating        float64
	ImageURL      string
	Includes      []string
	Active        bool

	detail Detail
}

// NewProduct builds a product from its envelope and detail variant and
// validates the envelope invariants.
func NewProduct(p Product, detail Detail) (Product, error) {
	if detail == nil {
		return Product{}, fmt.Errorf("product %q: detail variant is required", p.ID)
	}
	p.detail = detail
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Category returns the category selected by the product's detail variant.
func (p Product) Category() Category {
	if p.detail == nil {
		return ""
	}
	return p.detail.Category()
}

// Detail returns the category specific detail variant.  Callers use a type
// switch to reach the concrete fields.
func (p Product) Detail() Detail { return p.detail }

// Clone returns a copy of p that shares no slices with it, including the
// slices inside the detail variant.
func (p Product) Clone() Product {
	if p.Includes != nil {
		p.Includes = append([]string(nil), p.Includes...)
	}
	if p.detail != nil {
		p.detail = p.detail.clone()
	}
	return p
}

// Validate checks the envelope invariants of a product.
func (p Product) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("product id is required")
	case p.detail == nil:
		return fmt.Errorf("product %q: detail variant is required", p.ID)
	case p.OriginalPrice < 0 || p.SalePrice < 0:
		return fmt.Errorf("product %q: prices must not be negative", p.ID)
	case p.SalePrice > p.OriginalPrice:
		return fmt.Errorf("product %q: sale price %d exceeds original price %d", p.ID, p.SalePrice, p.OriginalPrice)
	case p.Rating < 0 || p.Rating > 5:
		return fmt.Errorf("product %q: rating %.1f outside 0.0-5.0", p.ID, p.Rating)
	}
	return nil
}

// DiscountRate returns the advertised discount in whole percent.
func (p Product) DiscountRate() int { return DiscountRate(p) }

// Highlights returns the short display strings of the detail variant.
func (p Product) Highlights() []string {
	if p.detail == nil {
		return nil
	}
	return p.detail.Highlights()
}

// IncludesPreview returns at most n inclusions in insertion order together
// with the number of inclusions left out.
func (p Product) IncludesPreview(n int) ([]string, int) {
	if n < 0 {
		n = 0
	}
	if len(p.Includes) <= n {
		return append([]string(nil), p.Includes...), 0
	}
	return append([]string(nil), p.Includes[:n]...), len(p.Includes) - n
}

// productJSON is the wire shape of a product.  Details are kept raw so they
// can be decoded once the category is known.
type productJSON struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      Category        `json:"category"`
	Location      string          `json:"location"`
	OriginalPrice int64           `json:"original_price"`
	SalePrice     int64           `json:"sale_price"`
	Rating        float64         `json:"rating"`
	ImageURL      string          `json:"image_url"`
	Includes      []string        `json:"includes"`
	Active        bool            `json:"active"`
	Details       json.RawMessage `json:"details"`
}

// MarshalJSON writes the product with its category tag next to the details.
func (p Product) MarshalJSON() ([]byte, error) {
	details, err := json.Marshal(p.detail)
	if err != nil {
		return nil, err
	}
	includes := p.Includes
	if includes == nil {
		includes = []string{}
	}
	return json.Marshal(productJSON{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category(),
		Location:      p.Location,
		OriginalPrice: p.OriginalPrice,
		SalePrice:     p.SalePrice,
		Rating:        p.Rating,
		ImageURL:      p.ImageURL,
		Includes:      includes,
		Active:        p.Active,
		Details:       details,
	})
}

// UnmarshalJSON decodes the details according to the category tag and
// rejects products that fail validation.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw productJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	detail, err := DecodeDetail(raw.Category, raw.Details)
	if err != nil {
		return err
	}
	out, err := NewProduct(Product{
		ID:            raw.ID,
		Name:          raw.Name,
		Location:      raw.Location,
		OriginalPrice: raw.OriginalPrice,
		SalePrice:     raw.SalePrice,
		Rating:        raw.Rating,
		ImageURL:      raw.ImageURL,
		Includes:      raw.Includes,
		Active:        raw.Active,
	}, detail)
	if err != nil {
		return err
	}
	*p = out
	return nil
}

// ProductSearchQuery defines filters and pagination for catalog searches.
type ProductSearchQuery struct {
	Category Category // empty means all categories
	Location string
	Keyword  string
	Page     int
	PageSize int
}

// Normalize applies paging defaults: page 1, page size 20, capped at 100.
func (q ProductSearchQuery) Normalize() ProductSearchQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	q.Location = strings.TrimSpace(q.Location)
	q.Keyword = strings.TrimSpace(q.Keyword)
	return q
}

// Offset returns the number of rows skipped by the query's page.
func (q ProductSearchQuery) Offset() int { return (q.Page - 1) * q.PageSize }

// ProductPage is one page of catalog search results.
type ProductPage struct {
	Items    []Product `json:"items"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// Pages returns the number of pages needed for Total items.
func (pg ProductPage) Pages() int {
	if pg.PageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(pg.Total) / float64(pg.PageSize)))
}
