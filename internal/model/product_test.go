package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tourProduct(t *testing.T) Product {
	t.Helper()
	p, err := NewProduct(Product{
		ID:            "TOUR-1",
		Name:          "Jeju Island 3 Days",
		Location:      "Jeju",
		OriginalPrice: 1000000,
		SalePrice:     850000,
		Rating:        4.6,
		Includes:      []string{"Hotel", "Breakfast", "Guide", "Insurance"},
		Active:        true,
	}, TourDetails{
		DeparturePlace: "Seoul",
		DurationDays:   3,
		MajorCities:    []string{"Jeju City", "Seogwipo"},
		MajorSpots:     []string{"Hallasan"},
	})
	require.NoError(t, err)
	return p
}

func TestProduct_CategoryComesFromVariant(t *testing.T) {
	variants := []Detail{
		HotelDetails{}, GolfDetails{}, TourDetails{}, SpaDetails{}, ActivityDetails{}, VehicleDetails{},
	}
	for i, d := range variants {
		p, err := NewProduct(Product{ID: "P", OriginalPrice: 10, SalePrice: 10}, d)
		require.NoError(t, err)
		assert.Equal(t, Categories[i], p.Category())
		assert.Equal(t, d.Category(), p.Detail().Category())
	}
}

func TestNewProduct_RejectsBrokenEnvelope(t *testing.T) {
	cases := map[string]Product{
		"missing id":       {OriginalPrice: 10, SalePrice: 5},
		"sale above list":  {ID: "X", OriginalPrice: 10, SalePrice: 11},
		"negative price":   {ID: "X", OriginalPrice: -1, SalePrice: -2},
		"rating too large": {ID: "X", OriginalPrice: 10, SalePrice: 10, Rating: 5.5},
	}
	for name, p := range cases {
		_, err := NewProduct(p, HotelDetails{RoomType: "Twin", Capacity: 2})
		assert.Error(t, err, name)
	}
	_, err := NewProduct(Product{ID: "X"}, nil)
	assert.Error(t, err)
}

func TestProduct_UnmarshalDecodesDetailsByCategory(t *testing.T) {
	payload := `{"id":"H-1","name":"Hotel","category":"TOUR","original_price":10,"sale_price":5,
		"details":{"room_type":"Deluxe","capacity":2}}`
	var p Product
	// unknown fields are ignored, so the tour decodes empty; category stays TOUR
	require.NoError(t, json.Unmarshal([]byte(payload), &p))
	assert.Equal(t, CategoryTour, p.Category())
	_, isHotel := p.Detail().(HotelDetails)
	assert.False(t, isHotel)

	var missing Product
	err := json.Unmarshal([]byte(`{"id":"H-1","category":"HOTEL","original_price":1,"sale_price":1}`), &missing)
	assert.Error(t, err)

	var unknown Product
	err = json.Unmarshal([]byte(`{"id":"H-1","category":"CRUISE","details":{}}`), &unknown)
	assert.Error(t, err)
}

func TestProduct_JSONKeepsCategoryAndDetails(t *testing.T) {
	p := tourProduct(t)
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "TOUR", generic["category"])
	details := generic["details"].(map[string]any)
	assert.Equal(t, "Seoul", details["departure_place"])

	var back Product
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p.Detail(), back.Detail())
	assert.Equal(t, p.Includes, back.Includes)
}

func TestProduct_IncludesPreviewKeepsOrder(t *testing.T) {
	p := tourProduct(t)
	shown, rest := p.IncludesPreview(2)
	assert.Equal(t, []string{"Hotel", "Breakfast"}, shown)
	assert.Equal(t, 2, rest)

	shown, rest = p.IncludesPreview(10)
	assert.Len(t, shown, 4)
	assert.Zero(t, rest)
}

func TestDetail_Highlights(t *testing.T) {
	deadline := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"3 days", "from Seoul", "Jeju City · Seogwipo"}, tourProduct(t).Highlights())
	assert.Equal(t, []string{"Deluxe", "1 guest"}, HotelDetails{RoomType: "Deluxe", Capacity: 1}.Highlights())
	assert.Equal(t, []string{"Rafting", "book by 2025-05-20"}, ActivityDetails{ActivityType: "Rafting", ReservationDeadline: deadline}.Highlights())
	assert.Equal(t, []string{"Carnival", "Van", "9 seats", "Diesel", "driver included"},
		VehicleDetails{CarName: "Carnival", VehicleType: "Van", PassengerCapacity: 9, GasType: "Diesel", IsDriverIncluded: true}.Highlights())
}

func TestProductSearchQuery_Normalize(t *testing.T) {
	q := ProductSearchQuery{Page: 0, PageSize: 500, Keyword: "  jeju "}.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 100, q.PageSize)
	assert.Equal(t, "jeju", q.Keyword)
	assert.Zero(t, q.Offset())

	q = ProductSearchQuery{Page: 3}.Normalize()
	assert.Equal(t, 20, q.PageSize)
	assert.Equal(t, 40, q.Offset())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("golf")
	require.NoError(t, err)
	assert.Equal(t, CategoryGolf, c)
	_, err = ParseCategory("cruise")
	assert.Error(t, err)
}

func TestActivityDetails_DeadlineIsADate(t *testing.T) {
	d, err := DecodeDetail(CategoryActivity, []byte(`{"activity_type":"Rafting","activities":["Rafting"],"reservation_deadline":"2025-06-01"}`))
	require.NoError(t, err)
	act := d.(ActivityDetails)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), act.ReservationDeadline)

	body, err := json.Marshal(act)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"reservation_deadline":"2025-06-01"`)

	legacy, err := DecodeDetail(CategoryActivity, []byte(`{"activity_type":"Rafting","reservation_deadline":"2025-06-01T15:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), legacy.(ActivityDetails).ReservationDeadline)

	none, err := DecodeDetail(CategoryActivity, []byte(`{"activity_type":"Rafting"}`))
	require.NoError(t, err)
	assert.True(t, none.(ActivityDetails).ReservationDeadline.IsZero())
	body, err = json.Marshal(none)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "reservation_deadline")

	_, err = DecodeDetail(CategoryActivity, []byte(`{"reservation_deadline":"June 1st"}`))
	assert.Error(t, err)
}

func TestProduct_CloneSharesNoSlices(t *testing.T) {
	p, err := NewProduct(Product{ID: "GOLF-1", OriginalPrice: 10, SalePrice: 10, Includes: []string{"Cart"}},
		GolfDetails{GolfClubNames: []string{"Pinx", "Nine Bridges"}})
	require.NoError(t, err)

	c := p.Clone()
	c.Includes[0] = "MUTATED"
	c.Detail().(GolfDetails).GolfClubNames[0] = "MUTATED"

	assert.Equal(t, []string{"Cart"}, p.Includes)
	assert.Equal(t, []string{"Pinx", "Nine Bridges"}, p.Detail().(GolfDetails).GolfClubNames)
}
