package services

import (
	"context"
	"math"
	"strings"

	"github.com/hotelbridge/liteapi-booking/internal/config"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
	"github.com/sirupsen/logrus"
)

// PrebookClient is the part of the LiteAPI client used to hold an offer
type PrebookClient interface {
	Prebook(ctx context.Context, req liteapi.PrebookRequest, bookingBaseURL string, timeoutSeconds int) (*liteapi.PrebookResponse, error)
}

// RateFetcher fetches live, uncached rates
type RateFetcher interface {
	FetchRates(ctx context.Context, q RateQuery) (*liteapi.RatesResponse, error)
}

// RefreshMetrics counts offer refresh outcomes
type RefreshMetrics interface {
	IncPrebookRefresh(outcome string)
}

// Offer refresh outcomes
const (
	RefreshOutcomeRefreshed   = "refreshed"
	RefreshOutcomeNoOffer     = "no_offer"
	RefreshOutcomeFetchFailed = "fetch_failed"
	RefreshOutcomeRetryFailed = "retry_failed"
)

// PrebookService holds an offer with the upstream. When the offer has expired
// and the caller sent its search context, the offer is re-derived from a fresh
// rate lookup once and the prebook is retried once.
type PrebookService struct {
	client         PrebookClient
	rates          RateFetcher
	metrics        RefreshMetrics
	config         config.PrebookConfig
	bookingBaseURL string
	currency       string
	logger         *logrus.Logger
}

// NewPrebookService creates a new prebook service. metrics may be nil.
func NewPrebookService(
	client PrebookClient,
	rates RateFetcher,
	metrics RefreshMetrics,
	cfg config.PrebookConfig,
	bookingBaseURL string,
	currency string,
	logger *logrus.Logger,
) *PrebookService {
	if cfg.PriceTolerance <= 0 {
		cfg.PriceTolerance = 10
	}
	if cfg.DefaultTargetPrice <= 0 {
		cfg.DefaultTargetPrice = 1000
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	return &PrebookService{
		client:         client,
		rates:          rates,
		metrics:        metrics,
		config:         cfg,
		bookingBaseURL: bookingBaseURL,
		currency:       currency,
		logger:         logger,
	}
}

// Prebook holds req.OfferID. Errors are *OfferExpiredError when the offer
// expired and could not be replaced, otherwise *BookingError.
func (s *PrebookService) Prebook(ctx context.Context, req models.PrebookRequest) (*models.PrebookResult, error) {
	offerID := strings.TrimSpace(req.OfferID)
	if offerID == "" {
		return nil, &BookingError{Stage: "prebook", Cause: ErrMissingOfferID}
	}

	// 1. Try the offer as given
	session, err := s.hold(ctx, offerID)
	if err == nil {
		return &models.PrebookResult{Session: *session}, nil
	}

	class := liteapi.ClassifyError(err)
	logEntry := s.logger.WithFields(logrus.Fields{
		"offer_id":    offerID,
		"error_class": class.String(),
	})

	// 2. Only expiry-like failures with a search context can be refreshed
	sc := req.SearchContext
	if sc == nil || (class != liteapi.ClassOfferExpired && class != liteapi.ClassBadRequest) {
		logEntry.WithError(err).Warn("Prebook failed")
		return nil, s.finalError(offerID, class, err)
	}

	// 3. Re-derive the offer from live rates
	logEntry.Info("Offer rejected, refreshing rates")
	resp, fetchErr := s.rates.FetchRates(ctx, RateQuery{
		HotelIDs: []string{sc.HotelID},
		Checkin:  sc.Checkin,
		Checkout: sc.Checkout,
		Guests:   sc.Guests,
	})
	if fetchErr != nil {
		s.countRefresh(RefreshOutcomeFetchFailed)
		logEntry.WithError(fetchErr).Warn("Rate refresh failed")
		return nil, s.finalError(offerID, class, err)
	}

	offer, ok := SelectOffer(collectOffers(resp, s.currency), sc.Price.Float(), s.config.DefaultTargetPrice, s.config.PriceTolerance)
	if !ok {
		s.countRefresh(RefreshOutcomeNoOffer)
		logEntry.Warn("Rate refresh found no offers")
		return nil, s.finalError(offerID, class, err)
	}

	// 4. Retry exactly once with the replacement
	session, retryErr := s.hold(ctx, offer.OfferID)
	if retryErr != nil {
		s.countRefresh(RefreshOutcomeRetryFailed)
		logEntry.WithFields(logrus.Fields{
			"new_offer_id": offer.OfferID,
			"error":        retryErr.Error(),
		}).Warn("Prebook retry failed")
		return nil, s.finalError(offerID, class, retryErr)
	}

	s.countRefresh(RefreshOutcomeRefreshed)
	logEntry.WithFields(logrus.Fields{
		"new_offer_id": offer.OfferID,
		"new_price":    offer.Price,
	}).Info("Prebook succeeded with refreshed offer")

	return &models.PrebookResult{
		Session:    *session,
		Refreshed:  true,
		NewOfferID: offer.OfferID,
		NewPrice:   offer.Price,
	}, nil
}

func (s *PrebookService) hold(ctx context.Context, offerID string) (*models.PrebookSession, error) {
	resp, err := s.client.Prebook(ctx, liteapi.PrebookRequest{
		OfferID:              offerID,
		UsePaymentSDK:        true,
		IncludeCreditBalance: false,
	}, s.bookingBaseURL, s.config.TimeoutSeconds)
	if err != nil {
		return nil, err
	}

	session := &models.PrebookSession{
		PrebookID:     resp.PrebookID,
		TransactionID: resp.TransactionID,
		SecretKey:     resp.SecretKey,
		OfferID:       offerID,
		Price:         resp.Price,
		Currency:      resp.Currency,
	}
	if session.Currency == "" {
		session.Currency = s.currency
	}
	return session, nil
}

// finalError maps the original failure class onto the error returned to callers.
// Only a genuine expiry becomes an OfferExpiredError.
func (s *PrebookService) finalError(offerID string, class liteapi.ErrorClass, cause error) error {
	if class == liteapi.ClassOfferExpired {
		return &OfferExpiredError{OfferID: offerID, Cause: cause}
	}
	return &BookingError{Stage: "prebook", Cause: cause}
}

func (s *PrebookService) countRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.IncPrebookRefresh(outcome)
	}
}

// collectOffers flattens every priced rate of a rates response into offers
func collectOffers(resp *liteapi.RatesResponse, currency string) []models.Offer {
	if resp == nil {
		return nil
	}

	var offers []models.Offer
	add := func(hotelID, roomName, fallbackOfferID string, rate liteapi.Rate) {
		price, ok := liteapi.ResolvePrice(rate)
		if !ok {
			return
		}
		offerID := rate.OfferToken()
		if offerID == "" {
			offerID = fallbackOfferID
		}
		if offerID == "" {
			return
		}
		cur := rate.Currency()
		if cur == "" {
			cur = currency
		}
		if roomName == "" {
			roomName = rate.Name
		}
		offers = append(offers, models.Offer{
			OfferID:   offerID,
			Price:     price,
			Currency:  cur,
			HotelID:   hotelID,
			RoomName:  roomName,
			BoardName: rate.BoardName,
		})
	}

	for _, hotel := range resp.Data {
		for _, rate := range hotel.Rates {
			add(hotel.HotelID, "", "", rate)
		}
		for _, rt := range hotel.RoomTypes {
			for _, rate := range rt.Rates {
				add(hotel.HotelID, rt.Name, rt.OfferID, rate)
			}
		}
	}
	return offers
}

// SelectOffer picks the replacement offer. The closest price within tolerance of
// target wins, ties going to the lower price. When nothing is within tolerance
// the cheapest offer is taken. A non-positive target uses defaultTarget.
func SelectOffer(offers []models.Offer, target, defaultTarget, tolerance float64) (models.Offer, bool) {
	if len(offers) == 0 {
		return models.Offer{}, false
	}
	if target <= 0 {
		target = defaultTarget
	}

	var (
		best     models.Offer
		bestDiff float64
		matched  bool
	)
	for _, o := range offers {
		diff := math.Abs(o.Price - target)
		if diff >= tolerance {
			continue
		}
		if !matched || diff < bestDiff || (diff == bestDiff && o.Price < best.Price) {
			best, bestDiff, matched = o, diff, true
		}
	}
	if matched {
		return best, true
	}

	cheapest := offers[0]
	for _, o := range offers[1:] {
		if o.Price < cheapest.Price {
			cheapest = o
		}
	}
	return cheapest, true
}
