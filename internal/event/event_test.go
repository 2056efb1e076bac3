package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasarees/storefront/internal/domain"
	"github.com/vegasarees/storefront/internal/storage/memory"
	"github.com/vegasarees/storefront/internal/store"
	pkgkafka "github.com/vegasarees/storefront/pkg/kafka"
	"github.com/vegasarees/storefront/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: e})
	return nil
}

func (f *fakePublisher) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.sent...)
}

func TestProducer_PublishItemAdded(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, logger.Discard())

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ev := store.Event{
		Kind:    store.ItemAdded,
		Product: &domain.Product{ID: 7, Name: "Banarasi", Price: 1200},
		Token:   3,
		Counts:  domain.Counts{Cart: 2},
	}
	require.NoError(t, p.PublishItemAdded(ctx, "sess-1", ev))

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "storefront.cart.item_added", msgs[0].topic)
	assert.Equal(t, "sess-1", msgs[0].event.AggregateID)
	assert.Equal(t, "corr-1", msgs[0].event.CorrelationID)

	var data CartItemAddedData
	require.NoError(t, msgs[0].event.UnmarshalData(&data))
	assert.Equal(t, int64(7), data.ProductID)
	assert.Equal(t, int64(3), data.Token)
	assert.Equal(t, 2, data.CartCount)
}

func TestProducer_PublishProductChanged(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, logger.Discard())

	require.NoError(t, p.PublishProductChanged(context.Background(), "deleted", 42))

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TopicProductChanged, msgs[0].topic)
	assert.Equal(t, "42", msgs[0].event.AggregateID)
	assert.Equal(t, AggregateTypeProduct, msgs[0].event.AggregateType)

	var data ProductChangedData
	require.NoError(t, msgs[0].event.UnmarshalData(&data))
	assert.Equal(t, ProductChangedData{Action: "deleted", ProductID: 42}, data)
}

func TestProducer_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	p := NewProducer(pub, logger.Discard())

	err := p.PublishSearchRecorded(context.Background(), "s", "silk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storefront.search.recorded")
}

func TestRelay_ForwardsCartAndSearchEvents(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	relay := NewRelay(NewProducer(pub, logger.Discard()), 16, logger.Discard())

	reg := store.NewRegistry(memory.New(), logger.Discard())
	defer reg.CloseAll()
	reg.OnOpen(relay.Attach)

	s, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)

	product := domain.Product{ID: 1, Name: "Silk", Price: 1000}
	require.NoError(t, s.AddToCart(ctx, product, 1))
	require.NoError(t, s.ToggleWishlist(ctx, product))
	require.NoError(t, s.AddSearchQuery(ctx, "  red silk "))
	require.NoError(t, s.AddRecentlyViewed(ctx, product))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		relay.Run(runCtx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(pub.messages()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	msgs := pub.messages()
	assert.Equal(t, TopicCartItemAdded, msgs[0].topic)
	assert.Equal(t, TopicSearchRecorded, msgs[1].topic)

	var search SearchRecordedData
	require.NoError(t, msgs[1].event.UnmarshalData(&search))
	assert.Equal(t, "red silk", search.Query)
	assert.Equal(t, "sess-1", search.SessionID)
}

func TestRelay_DropsWhenFull(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	relay := NewRelay(NewProducer(pub, logger.Discard()), 1, logger.Discard())

	s, err := store.Open(ctx, memory.New())
	require.NoError(t, err)
	relay.Attach("sess-1", s)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.AddToCart(ctx, domain.Product{ID: i, Price: 10}, 1))
	}

	// Nothing is running, so only the first event fit in the queue.
	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	relay.Run(runCtx)

	require.Len(t, pub.messages(), 1)
}
