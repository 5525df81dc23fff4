package repository

import (
	"context"
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
)

// SampleCatalog returns one demo product per category.  It backs the
// memory store in local runs and can be written to MySQL with SeedCatalog.
func SampleCatalog() []model.Product {
	return []model.Product{
		mustProduct(model.Product{
			ID: "HOTEL-1", Name: "Haeundae Ocean Suites", Location: "Busan",
			OriginalPrice: 320000, SalePrice: 256000, Rating: 4.6,
			ImageURL: "/images/hotel-1.jpg",
			Includes: []string{"Breakfast for two", "Late checkout", "Pool access", "Parking"},
			Active:   true,
		}, model.HotelDetails{RoomType: "Deluxe Ocean View", Capacity: 2}),
		mustProduct(model.Product{
			ID: "GOLF-1", Name: "Jeju Highlands Golf Package", Location: "Jeju",
			OriginalPrice: 450000, SalePrice: 405000, Rating: 4.4,
			ImageURL: "/images/golf-1.jpg",
			Includes: []string{"Green fee", "Cart fee", "Caddie"},
			Active:   true,
		}, model.GolfDetails{GolfClubNames: []string{"Pinx", "Nine Bridges"}, Round: "18 holes", Difficulty: "intermediate"}),
		mustProduct(model.Product{
			ID: "TOUR-1", Name: "Jeju Island Highlights", Location: "Jeju",
			OriginalPrice: 1000000, SalePrice: 900000, Rating: 4.8,
			ImageURL: "/images/tour-1.jpg",
			Includes: []string{"Round-trip flight", "2 nights hotel", "Guide", "Entrance fees", "Travel insurance"},
			Active:   true,
		}, model.TourDetails{
			DeparturePlace: "Seoul", DurationDays: 3,
			MajorCities: []string{"Jeju City", "Seogwipo"},
			MajorSpots:  []string{"Hallasan", "Seongsan Ilchulbong"},
		}),
		mustProduct(model.Product{
			ID: "SPA-1", Name: "Hanok Herbal Spa", Location: "Gyeongju",
			OriginalPrice: 180000, SalePrice: 150000, Rating: 4.2,
			ImageURL: "/images/spa-1.jpg",
			Includes: []string{"Herbal tea", "Sauna"},
			Active:   true,
		}, model.SpaDetails{
			TreatmentType: "Herbal massage", DurationMinutes: 90,
			TreatmentOptions: []string{"Aroma", "Hot stone"},
			Facilities:       []string{"Sauna", "Lounge"},
		}),
		mustProduct(model.Product{
			ID: "ACTIVITY-1", Name: "Hallasan Sunrise Hike", Location: "Jeju",
			OriginalPrice: 90000, SalePrice: 90000, Rating: 4.7,
			ImageURL: "/images/activity-1.jpg",
			Includes: []string{"Guide", "Headlamp", "Breakfast box"},
			Active:   true,
		}, model.ActivityDetails{
			ActivityType:        "Hiking",
			Activities:          []string{"Sunrise viewing", "Crater lake"},
			ReservationDeadline: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		}),
		mustProduct(model.Product{
			ID: "VEHICLE-1", Name: "Jeju Van with Driver", Location: "Jeju",
			OriginalPrice: 250000, SalePrice: 200000, Rating: 4.5,
			ImageURL: "/images/vehicle-1.jpg",
			Includes: []string{"Fuel", "Insurance"},
			Active:   true,
		}, model.VehicleDetails{
			CarName: "Carnival", VehicleType: "Van", PassengerCapacity: 9,
			GasType: "Diesel", IsDriverIncluded: true,
		}),
	}
}

// productWriter is implemented by ProductRepo and MemoryStore.
type productWriter interface {
	Upsert(ctx context.Context, p model.Product) error
}

// SeedCatalog writes the sample catalog through w.  Existing products with
// the same ids are replaced.
func SeedCatalog(ctx context.Context, w productWriter) error {
	for _, p := range SampleCatalog() {
		if err := w.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func mustProduct(p model.Product, d model.Detail) model.Product {
	out, err := model.NewProduct(p, d)
	if err != nil {
		panic(err)
	}
	return out
}
