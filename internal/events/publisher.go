package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// BookingConfirmed is the event emitted after a booking is stored
type BookingConfirmed struct {
	BookingID        string    `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	CustomerID       string    `json:"customer_id"`
	HotelID          string    `json:"hotel_id,omitempty"`
	HotelName        string    `json:"hotel_name"`
	Price            float64   `json:"price"`
	Currency         string    `json:"currency"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NewBookingConfirmed builds the event from a stored booking
func NewBookingConfirmed(b *models.Booking) BookingConfirmed {
	evt := BookingConfirmed{
		BookingID:        b.ID.String(),
		BookingReference: b.BookingReference,
		CustomerID:       b.CustomerID.String(),
		HotelName:        b.HotelName,
		Price:            b.Price,
		Currency:         b.Currency,
		OccurredAt:       b.CreatedAt,
	}
	if b.HotelID != nil {
		evt.HotelID = *b.HotelID
	}
	return evt
}

// messageWriter is the subset of kafka.Writer used here
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends booking events to Kafka
type Publisher struct {
	writer messageWriter
	logger *logrus.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic
func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// PublishBookingConfirmed sends the event keyed by booking reference so all
// events of one booking land on the same partition
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, evt BookingConfirmed) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode booking event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.BookingReference),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish booking event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"booking_reference": evt.BookingReference,
	}).Debug("Booking event published")
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events. Used when no brokers are configured.
type NoopPublisher struct{}

// PublishBookingConfirmed does nothing
func (NoopPublisher) PublishBookingConfirmed(context.Context, BookingConfirmed) error { return nil }

// Close does nothing
func (NoopPublisher) Close() error { return nil }
