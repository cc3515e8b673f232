package liteapi

// ResolvePrice returns the price of a rate. Precedence:
//
//  1. retailPrice.amount, when present and non-zero
//  2. retailRate.total[0].amount, when the whole path resolves and is non-zero
//
// Otherwise the rate has no usable price and ok is false.
func ResolvePrice(rate Rate) (price float64, ok bool) {
	if rate.RetailPrice != nil && rate.RetailPrice.Amount > 0 {
		return rate.RetailPrice.Amount, true
	}
	if rate.RetailRate != nil && len(rate.RetailRate.Total) > 0 && rate.RetailRate.Total[0].Amount > 0 {
		return rate.RetailRate.Total[0].Amount, true
	}
	return 0, false
}

// AllRates returns the hotel-level rates or, when there are none, the rates of
// every room type. Rates without an offerId inherit the room type's offerId.
func (h HotelRates) AllRates() []Rate {
	if len(h.Rates) > 0 {
		return h.Rates
	}
	var rates []Rate
	for _, rt := range h.RoomTypes {
		for _, r := range rt.Rates {
			if r.OfferID == "" {
				r.OfferID = rt.OfferID
			}
			rates = append(rates, r)
		}
	}
	return rates
}

// LowestPrice returns the cheapest resolvable price across AllRates.
func LowestPrice(h HotelRates) (float64, bool) {
	var (
		lowest float64
		found  bool
	)
	for _, r := range h.AllRates() {
		price, ok := ResolvePrice(r)
		if !ok {
			continue
		}
		if !found || price < lowest {
			lowest = price
			found = true
		}
	}
	return lowest, found
}
