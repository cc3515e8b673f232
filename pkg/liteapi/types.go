package liteapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString decodes a JSON string or number into a string. LiteAPI returns some
// identifiers (mappedRoomId, city ids) as either.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// ============================================================================
// RATES
// ============================================================================

// Occupancy is one room's guest allocation
type Occupancy struct {
	Adults   int   `json:"adults"`
	Children []int `json:"children,omitempty"`
}

// RatesRequest is the body of POST /hotels/rates and /hotels/min-rates.
// Exactly one of HotelIDs or AISearch is expected to be set.
type RatesRequest struct {
	Occupancies      []Occupancy `json:"occupancies"`
	Checkin          string      `json:"checkin"`
	Checkout         string      `json:"checkout"`
	Currency         string      `json:"currency"`
	GuestNationality string      `json:"guestNationality"`
	RoomMapping      bool        `json:"roomMapping"`
	HotelIDs         []string    `json:"hotelIds,omitempty"`
	AISearch         string      `json:"aiSearch,omitempty"`
	Language         string      `json:"language,omitempty"`
}

// RatesResponse is the response of POST /hotels/rates
type RatesResponse struct {
	Data []HotelRates `json:"data"`
}

// HotelImage is one entry of hotelImages / photos
type HotelImage struct {
	URL          string `json:"url"`
	URLHD        string `json:"urlHd,omitempty"`
	Caption      string `json:"caption,omitempty"`
	DefaultImage bool   `json:"defaultImage,omitempty"`
}

// HotelRates is one hotel in a rates response. Rates appear either directly on the
// hotel or nested under roomTypes; use AllRates.
type HotelRates struct {
	HotelID          string       `json:"hotelId"`
	Name             string       `json:"name,omitempty"`
	StarRating       *float64     `json:"starRating,omitempty"`
	Rating           *float64     `json:"rating,omitempty"`
	ReviewScore      *float64     `json:"reviewScore,omitempty"`
	Address          string       `json:"address,omitempty"`
	HotelDescription string       `json:"hotelDescription,omitempty"`
	MainPhoto        string       `json:"main_photo,omitempty"`
	HotelImages      []HotelImage `json:"hotelImages,omitempty"`
	Rates            []Rate       `json:"rates,omitempty"`
	RoomTypes        []RoomType   `json:"roomTypes,omitempty"`
}

// FirstImageURL returns the first hotel image, falling back to main_photo.
func (h HotelRates) FirstImageURL() string {
	for _, img := range h.HotelImages {
		if img.URL != "" {
			return img.URL
		}
	}
	return h.MainPhoto
}

// RoomType groups the rates of one room
type RoomType struct {
	RoomTypeID   string       `json:"roomTypeId,omitempty"`
	MappedRoomID FlexString   `json:"mappedRoomId,omitempty"`
	OfferID      string       `json:"offerId,omitempty"`
	Name         string       `json:"name,omitempty"`
	Description  string       `json:"description,omitempty"`
	Photos       []HotelImage `json:"photos,omitempty"`
	Rates        []Rate       `json:"rates,omitempty"`
}

// GroupKey returns mappedRoomId, or roomTypeId when unmapped.
func (r RoomType) GroupKey() string {
	if r.MappedRoomID != "" {
		return string(r.MappedRoomID)
	}
	return r.RoomTypeID
}

// Money is an amount with an optional currency
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

// RetailRate is the nested price shape: total is a list, first entry wins.
type RetailRate struct {
	Total                 []Money `json:"total,omitempty"`
	SuggestedSellingPrice []Money `json:"suggestedSellingPrice,omitempty"`
}

// CancellationPolicies carries the refundability of a rate
type CancellationPolicies struct {
	RefundableTag        string `json:"refundableTag,omitempty"`
	CancellationDeadline string `json:"cancellationDeadline,omitempty"`
}

// Rate is one bookable rate. Price is in RetailPrice or RetailRate.Total[0];
// see ResolvePrice.
type Rate struct {
	RateID               string                `json:"rateId,omitempty"`
	OfferID              string                `json:"offerId,omitempty"`
	Name                 string                `json:"name,omitempty"`
	BoardName            string                `json:"boardName,omitempty"`
	MaxOccupancy         int                   `json:"maxOccupancy,omitempty"`
	RetailPrice          *Money                `json:"retailPrice,omitempty"`
	RetailRate           *RetailRate           `json:"retailRate,omitempty"`
	CancellationPolicies *CancellationPolicies `json:"cancellationPolicies,omitempty"`
}

// OfferToken returns offerId, falling back to rateId.
func (r Rate) OfferToken() string {
	if r.OfferID != "" {
		return r.OfferID
	}
	return r.RateID
}

// Refundable reports whether the rate carries the REF tag.
func (r Rate) Refundable() bool {
	return r.CancellationPolicies != nil && r.CancellationPolicies.RefundableTag == "REF"
}

// CancellationDeadline returns the deadline string or "".
func (r Rate) CancellationDeadline() string {
	if r.CancellationPolicies == nil {
		return ""
	}
	return r.CancellationPolicies.CancellationDeadline
}

// Currency returns the currency of whichever price shape resolves.
func (r Rate) Currency() string {
	if r.RetailPrice != nil && r.RetailPrice.Amount > 0 {
		return r.RetailPrice.Currency
	}
	if r.RetailRate != nil && len(r.RetailRate.Total) > 0 {
		return r.RetailRate.Total[0].Currency
	}
	return ""
}

// MinRatesResponse is the response of POST /hotels/min-rates
type MinRatesResponse struct {
	Data []MinRate `json:"data"`
}

// MinRate is the cheapest offer of one hotel
type MinRate struct {
	HotelID               string  `json:"hotelId"`
	OfferID               string  `json:"offerId,omitempty"`
	Price                 float64 `json:"price"`
	SuggestedSellingPrice float64 `json:"suggestedSellingPrice,omitempty"`
}

// ============================================================================
// STATIC DATA
// ============================================================================

// HotelDetails is the data of GET /data/hotel
type HotelDetails struct {
	ID               string       `json:"id"`
	Name             string       `json:"name,omitempty"`
	Description      string       `json:"description,omitempty"`
	HotelDescription string       `json:"hotelDescription,omitempty"`
	StarRating       *float64     `json:"starRating,omitempty"`
	Stars            *float64     `json:"stars,omitempty"`
	Rating           *float64     `json:"rating,omitempty"`
	ReviewCount      int          `json:"reviewCount,omitempty"`
	Address          string       `json:"address,omitempty"`
	City             string       `json:"city,omitempty"`
	Country          string       `json:"country,omitempty"`
	Latitude         *float64     `json:"latitude,omitempty"`
	Longitude        *float64     `json:"longitude,omitempty"`
	HotelFacilities  []string     `json:"hotelFacilities,omitempty"`
	HotelImages      []HotelImage `json:"hotelImages,omitempty"`
	MainPhoto        string       `json:"main_photo,omitempty"`
}

// DescriptionText returns description, falling back to hotelDescription.
func (d HotelDetails) DescriptionText() string {
	if d.Description != "" {
		return d.Description
	}
	return d.HotelDescription
}

// StarValue returns starRating, falling back to stars, as an int.
func (d HotelDetails) StarValue() int {
	if d.StarRating != nil && *d.StarRating > 0 {
		return int(*d.StarRating)
	}
	if d.Stars != nil {
		return int(*d.Stars)
	}
	return 0
}

// ImageURLs returns the non-empty hotel image URLs in order.
func (d HotelDetails) ImageURLs() []string {
	urls := make([]string, 0, len(d.HotelImages))
	for _, img := range d.HotelImages {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	if len(urls) == 0 && d.MainPhoto != "" {
		urls = append(urls, d.MainPhoto)
	}
	return urls
}

// Country is one entry of GET /data/countries
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// City is one entry of GET /data/cities
type City struct {
	City string `json:"city"`
}

// CatalogHotel is one entry of GET /data/hotels
type CatalogHotel struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	HotelDescription string   `json:"hotelDescription,omitempty"`
	Country          string   `json:"country,omitempty"`
	City             string   `json:"city,omitempty"`
	Address          string   `json:"address,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Stars            *float64 `json:"stars,omitempty"`
	MainPhoto        string   `json:"main_photo,omitempty"`
}

// HotelListQuery filters GET /data/hotels
type HotelListQuery struct {
	CountryCode string
	CityName    string
	Limit       int
	Offset      int
}

// ============================================================================
// BOOKING
// ============================================================================

// PrebookRequest is the body of POST /rates/prebook
type PrebookRequest struct {
	OfferID              string `json:"offerId"`
	UsePaymentSDK        bool   `json:"usePaymentSdk"`
	IncludeCreditBalance bool   `json:"includeCreditBalance"`
}

// PrebookResponse is the data of a successful prebook
type PrebookResponse struct {
	PrebookID     string  `json:"prebookId"`
	TransactionID string  `json:"transactionId,omitempty"`
	SecretKey     string  `json:"secretKey,omitempty"`
	OfferID       string  `json:"offerId,omitempty"`
	HotelID       string  `json:"hotelId,omitempty"`
	Price         float64 `json:"price,omitempty"`
	Currency      string  `json:"currency,omitempty"`
}

// BookPayment identifies how the stay was paid
type BookPayment struct {
	Method        string `json:"method"`
	TransactionID string `json:"transactionId"`
}

// BookHolder is the person responsible for the booking
type BookHolder struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// BookGuest is one occupant
type BookGuest struct {
	OccupancyNumber int    `json:"occupancyNumber"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
}

// BookRequest is the body of POST /rates/book
type BookRequest struct {
	PrebookID       string      `json:"prebookId"`
	Payment         BookPayment `json:"payment"`
	Holder          BookHolder  `json:"holder"`
	Guests          []BookGuest `json:"guests"`
	ClientReference string      `json:"clientReference"`
}

// BookPrice is either a bare number or {amount, currency}.
type BookPrice struct {
	Amount   float64
	Currency string
}

// UnmarshalJSON implements json.Unmarshaler
func (p *BookPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '{':
		var m Money
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		p.Amount, p.Currency = m.Amount, m.Currency
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		amount, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("book price: %w", err)
		}
		p.Amount = amount
		return nil
	default:
		return json.Unmarshal(data, &p.Amount)
	}
}

// BookResponse is the data of POST /rates/book
type BookResponse struct {
	BookingID            string          `json:"bookingId"`
	Status               string          `json:"status,omitempty"`
	HotelID              string          `json:"hotelId,omitempty"`
	HotelName            string          `json:"hotelName,omitempty"`
	RoomName             string          `json:"roomName,omitempty"`
	Checkin              string          `json:"checkin,omitempty"`
	Checkout             string          `json:"checkout,omitempty"`
	Price                BookPrice       `json:"price"`
	Currency             string          `json:"currency,omitempty"`
	CancellationDeadline string          `json:"cancellationDeadline,omitempty"`
	RefundableTag        string          `json:"refundableTag,omitempty"`
	Error                json.RawMessage `json:"error,omitempty"`

	// Raw is the undecoded data object, kept for the booking record.
	Raw json.RawMessage `json:"-"`
}
