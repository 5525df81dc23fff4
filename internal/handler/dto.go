package handler

import (
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
)

// includesPreviewSize is how many inclusions a product card shows.
const includesPreviewSize = 3

// BookingResponse is the JSON shape of a booking for both customers and
// admins.
type BookingResponse struct {
	ID               string              `json:"id"`
	ProductID        string              `json:"product_id"`
	ProductName      string              `json:"product_name"`
	CustomerID       string              `json:"customer_id"`
	CustomerName     string              `json:"customer_name"`
	TravelDate       string              `json:"travel_date"`
	Travelers        int                 `json:"travelers"`
	OriginalPrice    int64               `json:"original_price"`
	DiscountedAmount int64               `json:"discounted_amount"`
	TotalPrice       int64               `json:"total_price"`
	SpecialRequests  *string             `json:"special_requests,omitempty"`
	Status           model.Status        `json:"status"`
	StatusDisplay    model.StatusDisplay `json:"status_display"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func toBookingResponse(b model.Booking) BookingResponse {
	return BookingResponse{
		ID:               b.ID,
		ProductID:        b.ProductID,
		ProductName:      b.ProductName,
		CustomerID:       b.CustomerID,
		CustomerName:     b.CustomerName,
		TravelDate:       model.DateOf(b.TravelDate).Format(model.DateLayout),
		Travelers:        b.Travelers,
		OriginalPrice:    b.OriginalPrice,
		DiscountedAmount: b.DiscountedAmount,
		TotalPrice:       model.FinalPrice(b),
		SpecialRequests:  b.SpecialRequests,
		Status:           b.Status,
		StatusDisplay:    b.Status.Display(),
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func toBookingResponses(bs []model.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingResponse(b))
	}
	return out
}

// ProductResponse is a catalog entry with its derived display fields.
// Details holds the variant selected by Category.
type ProductResponse struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Category        model.Category `json:"category"`
	Location        string         `json:"location"`
	OriginalPrice   int64          `json:"original_price"`
	SalePrice       int64          `json:"sale_price"`
	DiscountRate    int            `json:"discount_rate"`
	Rating          float64        `json:"rating"`
	ImageURL        string         `json:"image_url"`
	Includes        []string       `json:"includes"`
	IncludesPreview []string       `json:"includes_preview"`
	MoreIncludes    int            `json:"more_includes"`
	Highlights      []string       `json:"highlights"`
	Details         model.Detail   `json:"details"`
}

func toProductResponse(p model.Product) ProductResponse {
	preview, more := p.IncludesPreview(includesPreviewSize)
	return ProductResponse{
		ID:              p.ID,
		Name:            p.Name,
		Category:        p.Category(),
		Location:        p.Location,
		OriginalPrice:   p.OriginalPrice,
		SalePrice:       p.SalePrice,
		DiscountRate:    p.DiscountRate(),
		Rating:          p.Rating,
		ImageURL:        p.ImageURL,
		Includes:        nonNil(p.Includes),
		IncludesPreview: nonNil(preview),
		MoreIncludes:    more,
		Highlights:      nonNil(p.Highlights()),
		Details:         p.Detail(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
