package models

import (
	"time"
)

// Country is a reference country
type Country struct {
	Code string `json:"code" db:"code"`
	Name string `json:"name" db:"name"`
}

// City is a reference city; hotels are grouped by city for by-city searches
type City struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	LiteAPICityID *string   `json:"liteapi_city_id,omitempty" db:"liteapi_city_id"`
	CountryCode   string    `json:"country_code" db:"country_code"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Hotel is the locally cached hotel metadata. Locally curated values always win
// over upstream values; upstream only fills empty fields.
type Hotel struct {
	ID             int64       `json:"id" db:"id"`
	Name           string      `json:"name" db:"name"`
	LiteAPIHotelID string      `json:"liteapi_hotel_id" db:"liteapi_hotel_id"`
	CityID         *int64      `json:"city_id,omitempty" db:"city_id"`
	Address        *string     `json:"address,omitempty" db:"address"`
	Latitude       *float64    `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64    `json:"longitude,omitempty" db:"longitude"`
	ImageURL       *string     `json:"image_url,omitempty" db:"image_url"`
	StarRating     *int        `json:"star_rating,omitempty" db:"star_rating"`
	Description    *string     `json:"description,omitempty" db:"description"`
	Amenities      StringArray `json:"amenities,omitempty" db:"amenities"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// HotelMetadataPatch is an only-if-empty backfill of hotel metadata.
// Empty fields are not sent.
type HotelMetadataPatch struct {
	ImageURL    string
	StarRating  int
	Description string
}

// IsEmpty reports whether the patch carries nothing to write
func (p HotelMetadataPatch) IsEmpty() bool {
	return p.ImageURL == "" && p.StarRating <= 0 && p.Description == ""
}

// RateOption is one bookable rate on the hotel details page
type RateOption struct {
	OfferID              string  `json:"offer_id"`
	Name                 string  `json:"name"`
	Price                float64 `json:"price"`
	Currency             string  `json:"currency"`
	BoardName            string  `json:"board"`
	Refundable           bool    `json:"refundable"`
	CancellationDeadline string  `json:"cancellation_deadline,omitempty"`
	Description          string  `json:"description,omitempty"`
}

// RoomOption groups rates of the same mapped room
type RoomOption struct {
	Key   string       `json:"key"`
	Name  string       `json:"name"`
	Image string       `json:"image"`
	Rates []RateOption `json:"rates"`
}

// HotelDetails is the merged local + upstream view of one hotel
type HotelDetails struct {
	LiteAPIID      string       `json:"liteapi_id"`
	Name           string       `json:"name"`
	Address        string       `json:"address"`
	Rating         float64      `json:"rating"`
	Stars          int          `json:"stars"`
	Images         []string     `json:"images"`
	Description    string       `json:"description"`
	Facilities     []string     `json:"facilities"`
	GoogleMapsLink string       `json:"google_maps_link"`
	Rooms          []RoomOption `json:"rooms"`
	RatesError     string       `json:"rates_error,omitempty"`
}

// StayQuery carries the stay for live rates on the details page
type StayQuery struct {
	Checkin  string `form:"checkin" validate:"required,stay_date"`
	Checkout string `form:"checkout" validate:"required,stay_date"`
	Guests   int    `form:"guests" validate:"omitempty,min=1,max=10"`
}

// CityMinRate is the "from" price of one hotel in a city
type CityMinRate struct {
	LiteAPIID string  `json:"liteapi_id"`
	Name      string  `json:"name"`
	OfferID   string  `json:"offer_id"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
}
