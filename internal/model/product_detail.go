package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Detail is the category specific part of a product.  The set of
// implementations is closed: only the six variants in this file satisfy it.
type Detail interface {
	Category() Category
	Highlights() []string
	isDetail()
	clone() Detail
}

// HotelDetails describes a room offer.
//
//	RoomType – room class shown to customers, e.g. "Deluxe Ocean View".
//	Capacity – number of guests the room sleeps.
type HotelDetails struct {
	RoomType string `json:"room_type"`
	Capacity int    `json:"capacity"`
}

// GolfDetails describes a golf package.
//
//	GolfClubNames – courses played, in itinerary order.
//	Round         – round format, e.g. "18 holes".
//	Difficulty    – free-form course difficulty label.
type GolfDetails struct {
	GolfClubNames []string `json:"golf_club_names"`
	Round         string   `json:"round"`
	Difficulty    string   `json:"difficulty"`
}

// TourDetails describes a guided tour.
type TourDetails struct {
	DeparturePlace string   `json:"departure_place"`
	DurationDays   int      `json:"duration_days"`
	MajorCities    []string `json:"major_cities"`
	MajorSpots     []string `json:"major_spots"`
}

// SpaDetails describes a spa treatment.  DurationMinutes is the length of
// the base treatment.
type SpaDetails struct {
	TreatmentType    string   `json:"treatment_type"`
	DurationMinutes  int      `json:"duration_minutes"`
	TreatmentOptions []string `json:"treatment_options"`
	Facilities       []string `json:"facilities"`
}

// ActivityDetails describes a bookable activity.  ReservationDeadline is
// a calendar date (UTC midnight) and travels as YYYY-MM-DD; the zero value
// means no deadline.
type ActivityDetails struct {
	ActivityType        string
	Activities          []string
	ReservationDeadline time.Time
}

type activityJSON struct {
	ActivityType        string   `json:"activity_type"`
	Activities          []string `json:"activities"`
	ReservationDeadline string   `json:"reservation_deadline,omitempty"`
}

// MarshalJSON writes the deadline in DateLayout.
func (d ActivityDetails) MarshalJSON() ([]byte, error) {
	out := activityJSON{ActivityType: d.ActivityType, Activities: d.Activities}
	if !d.ReservationDeadline.IsZero() {
		out.ReservationDeadline = DateOf(d.ReservationDeadline).Format(DateLayout)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts a YYYY-MM-DD deadline.  RFC3339 timestamps written
// by older rows are still read and truncated to their UTC date.
func (d *ActivityDetails) UnmarshalJSON(data []byte) error {
	var in activityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = ActivityDetails{ActivityType: in.ActivityType, Activities: in.Activities}
	if in.ReservationDeadline == "" {
		return nil
	}
	t, err := ParseDate(in.ReservationDeadline)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, in.ReservationDeadline)
		if tsErr != nil {
			return fmt.Errorf("reservation_deadline %q is not a YYYY-MM-DD date", in.ReservationDeadline)
		}
		t = DateOf(ts)
	}
	d.ReservationDeadline = t
	return nil
}

// VehicleDetails describes a rental vehicle.
//
//	CarName           – model name, e.g. "Carnival".
//	VehicleType       – body type, e.g. "Van".
//	PassengerCapacity – seats including the driver's.
//	GasType           – fuel, e.g. "Diesel" or "EV".
//	IsDriverIncluded  – whether a chauffeur comes with the vehicle.
type VehicleDetails struct {
	CarName           string `json:"car_name"`
	VehicleType       string `json:"vehicle_type"`
	PassengerCapacity int    `json:"passenger_capacity"`
	GasType           string `json:"gas_type"`
	IsDriverIncluded  bool   `json:"is_driver_included"`
}

func (HotelDetails) Category() Category    { return CategoryHotel }
func (GolfDetails) Category() Category     { return CategoryGolf }
func (TourDetails) Category() Category     { return CategoryTour }
func (SpaDetails) Category() Category      { return CategorySpa }
func (ActivityDetails) Category() Category { return CategoryActivity }
func (VehicleDetails) Category() Category  { return CategoryVehicle }

func (HotelDetails) isDetail()    {}
func (GolfDetails) isDetail()     {}
func (TourDetails) isDetail()     {}
func (SpaDetails) isDetail()      {}
func (ActivityDetails) isDetail() {}
func (VehicleDetails) isDetail()  {}

func (d HotelDetails) clone() Detail { return d }

func (d GolfDetails) clone() Detail {
	d.GolfClubNames = cloneStrings(d.GolfClubNames)
	return d
}

func (d TourDetails) clone() Detail {
	d.MajorCities = cloneStrings(d.MajorCities)
	d.MajorSpots = cloneStrings(d.MajorSpots)
	return d
}

func (d SpaDetails) clone() Detail {
	d.TreatmentOptions = cloneStrings(d.TreatmentOptions)
	d.Facilities = cloneStrings(d.Facilities)
	return d
}

func (d ActivityDetails) clone() Detail {
	d.Activities = cloneStrings(d.Activities)
	return d
}

func (d VehicleDetails) clone() Detail { return d }

func (d HotelDetails) Highlights() []string {
	return compact(d.RoomType, plural(d.Capacity, "guest"))
}

func (d GolfDetails) Highlights() []string {
	return compact(d.Round, d.Difficulty, strings.Join(d.GolfClubNames, ", "))
}

func (d TourDetails) Highlights() []string {
	var from string
	if d.DeparturePlace != "" {
		from = "from " + d.DeparturePlace
	}
	return compact(plural(d.DurationDays, "day"), from, strings.Join(d.MajorCities, " · "))
}

func (d SpaDetails) Highlights() []string {
	var dur string
	if d.DurationMinutes > 0 {
		dur = fmt.Sprintf("%d min", d.DurationMinutes)
	}
	return compact(d.TreatmentType, dur)
}

func (d ActivityDetails) Highlights() []string {
	var deadline string
	if !d.ReservationDeadline.IsZero() {
		deadline = "book by " + d.ReservationDeadline.Format(DateLayout)
	}
	return compact(d.ActivityType, deadline)
}

func (d VehicleDetails) Highlights() []string {
	driver := "self drive"
	if d.IsDriverIncluded {
		driver = "driver included"
	}
	return compact(d.CarName, d.VehicleType, plural(d.PassengerCapacity, "seat"), d.GasType, driver)
}

// DecodeDetail decodes raw JSON into the variant that belongs to category.
// It is used for both API payloads and the products.details column.
func DecodeDetail(category Category, raw []byte) (Detail, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("details for category %q are missing", category)
	}
	var (
		d   Detail
		err error
	)
	switch category {
	case CategoryHotel:
		var v HotelDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case CategoryGolf:
		var v GolfDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case CategoryTour:
		var v TourDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case CategorySpa:
		var v SpaDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case CategoryActivity:
		var v ActivityDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case CategoryVehicle:
		var v VehicleDetails
		err = json.Unmarshal(raw, &v)
		d = v
	default:
		return nil, fmt.Errorf("unknown product category %q", category)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s details: %w", strings.ToLower(string(category)), err)
	}
	return d, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func compact(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func plural(n int, unit string) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return "1 " + unit
	default:
		return fmt.Sprintf("%d %ss", n, unit)
	}
}
