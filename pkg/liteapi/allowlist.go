package liteapi

import "strings"

// DefaultAllowedEndpoints is the set of upstream paths the client may call.
// Bare "/rates" is not listed: '/'-bounded prefix matching would admit every path
// below it.
var DefaultAllowedEndpoints = []string{
	"/hotels/rates",
	"/hotels/min-rates",
	"/hotels/details",
	"/rates/prebook",
	"/rates/book",
	"/data/cities",
	"/data/countries",
	"/data/hotels",
	"/data/hotel",
	"/data/places",
}

// IsAllowed reports whether endpoint matches an allow-list entry exactly or as a
// prefix bounded by '?' or '/'. "/rates/booking-evil" does not match "/rates".
func IsAllowed(endpoint string, allowed []string) bool {
	if endpoint == "" {
		return false
	}
	for _, a := range allowed {
		if endpoint == a ||
			strings.HasPrefix(endpoint, a+"?") ||
			strings.HasPrefix(endpoint, a+"/") {
			return true
		}
	}
	return false
}
