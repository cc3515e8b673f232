package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount decodes a JSON number or a display string such as "1,000.50".
type Amount string

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

// Float parses the amount, ignoring thousands separators and spaces.
// Unparsable, empty, negative or non-finite values return 0.
func (a Amount) Float() float64 {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(string(a))
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Offer is an upstream price quote. Never persisted.
type Offer struct {
	OfferID   string  `json:"offer_id"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	HotelID   string  `json:"hotel_id"`
	RoomName  string  `json:"room_name,omitempty"`
	BoardName string  `json:"board_name,omitempty"`
}

// SearchContext carries the search that produced an offer so an expired offer can
// be re-derived. Price is the price the guest last saw.
type SearchContext struct {
	HotelID  string `json:"hotel_id" validate:"required"`
	Checkin  string `json:"checkin" validate:"required,stay_date"`
	Checkout string `json:"checkout" validate:"required,stay_date"`
	Guests   int    `json:"guests" validate:"omitempty,min=1,max=10"`
	Price    Amount `json:"price"`
}

// PrebookRequest represents the prebook request from the web layer
type PrebookRequest struct {
	OfferID       string         `json:"offer_id" validate:"required"`
	SearchContext *SearchContext `json:"search_context,omitempty" validate:"omitempty"`
}

// PrebookSession is produced once per successful prebook and drives the payment SDK
type PrebookSession struct {
	PrebookID     string  `json:"prebook_id"`
	TransactionID string  `json:"transaction_id"`
	SecretKey     string  `json:"secret_key"`
	OfferID       string  `json:"offer_id"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
}

// PrebookResult wraps the session and reports whether the offer was refreshed
type PrebookResult struct {
	Session    PrebookSession `json:"session"`
	Refreshed  bool           `json:"is_refreshed"`
	NewOfferID string         `json:"new_offer_id,omitempty"`
	NewPrice   float64        `json:"new_price,omitempty"`
}
