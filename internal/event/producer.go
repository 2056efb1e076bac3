// Package event publishes storefront activity to Kafka: cart additions and
// searches relayed from session stores, and catalog edits from the admin
// panel.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vegasarees/storefront/internal/store"
	pkgkafka "github.com/vegasarees/storefront/pkg/kafka"
	"github.com/vegasarees/storefront/pkg/logger"
)

// Topics.
var (
	TopicCartItemAdded  = pkgkafka.Topic("cart", "item_added")
	TopicSearchRecorded = pkgkafka.Topic("search", "recorded")
	TopicProductChanged = pkgkafka.Topic("product", "changed")
)

// Aggregate types and source.
const (
	AggregateTypeSession = "session"
	AggregateTypeProduct = "product"
	SourceStorefront     = "storefront"
)

// CartItemAddedData is the payload of a cart.item_added event.
type CartItemAddedData struct {
	SessionID string  `json:"session_id"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Token     int64   `json:"animation_token"`
	CartCount int     `json:"cart_count"`
}

// SearchRecordedData is the payload of a search.recorded event.
type SearchRecordedData struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// ProductChangedData is the payload of a product.changed event. ProductID
// is 0 for a catalog reset.
type ProductChangedData struct {
	Action    string `json:"action"`
	ProductID int64  `json:"product_id"`
}

// Publisher sends an envelope to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer builds and publishes storefront events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a Producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishItemAdded publishes a cart.item_added event for ev, which must be
// an ItemAdded event.
func (p *Producer) PublishItemAdded(ctx context.Context, sessionID string, ev store.Event) error {
	data := CartItemAddedData{
		SessionID: sessionID,
		Token:     ev.Token,
		CartCount: ev.Counts.Cart,
	}
	if ev.Product != nil {
		data.ProductID = ev.Product.ID
		data.Name = ev.Product.Name
		data.Price = ev.Product.Price
	}
	return p.publish(ctx, TopicCartItemAdded, sessionID, AggregateTypeSession, data)
}

// PublishSearchRecorded publishes a search.recorded event.
func (p *Producer) PublishSearchRecorded(ctx context.Context, sessionID, query string) error {
	data := SearchRecordedData{SessionID: sessionID, Query: query}
	return p.publish(ctx, TopicSearchRecorded, sessionID, AggregateTypeSession, data)
}

// PublishProductChanged publishes a product.changed event.
func (p *Producer) PublishProductChanged(ctx context.Context, action string, id int64) error {
	data := ProductChangedData{Action: action, ProductID: id}
	return p.publish(ctx, TopicProductChanged, strconv.FormatInt(id, 10), AggregateTypeProduct, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
