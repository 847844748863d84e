package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lerian-oss/coord/common/mrabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQBus publishes events to a topic exchange and gives each
// process its own exclusive queue bound to every kind ("#"); the
// process then hands each delivery only to the handlers subscribed to
// its kind, so events dispatched by one process are observed by every
// other process sharing the same exchange.
type RabbitMQBus struct {
	conn     *mrabbitmq.RabbitMQConnection
	exchange string

	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

// NewRabbitMQBus declares exchange (a topic exchange, created if
// absent) and returns a bus publishing/consuming through conn.
func NewRabbitMQBus(ctx context.Context, conn *mrabbitmq.RabbitMQConnection, exchange string) (*RabbitMQBus, error) {
	ch, err := conn.GetChannel(ctx)
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}

	bus := &RabbitMQBus{conn: conn, exchange: exchange, handlers: make(map[Kind][]Handler)}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}

	if err := ch.QueueBind(queue.Name, "#", exchange, false, nil); err != nil {
		return nil, err
	}

	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, err
	}

	go bus.consume(ctx, deliveries)

	return bus, nil
}

type wireEvent struct {
	Kind    Kind   `json:"kind"`
	Key     string `json:"key"`
	LockID  string `json:"lockId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func (b *RabbitMQBus) Publish(ctx context.Context, event Event) {
	ch, err := b.conn.GetChannel(ctx)
	if err != nil {
		return
	}

	body, err := json.Marshal(wireEvent{Kind: event.Kind, Key: event.Key, LockID: event.LockID, Payload: event.Payload})
	if err != nil {
		return
	}

	_ = ch.PublishWithContext(ctx, b.exchange, string(event.Kind), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (b *RabbitMQBus) Subscribe(kind Kind, handler Handler) func() {
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], handler)
	idx := len(b.handlers[kind]) - 1
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		// The slot is replaced rather than removed, so the indices held
		// by other subscriptions stay valid.
		list := b.handlers[kind]
		if idx < len(list) {
			list[idx] = func(context.Context, Event) {}
		}
	}
}

func (b *RabbitMQBus) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for delivery := range deliveries {
		var wire wireEvent
		if err := json.Unmarshal(delivery.Body, &wire); err != nil {
			continue
		}

		event := Event{Kind: wire.Kind, Key: wire.Key, LockID: wire.LockID, Payload: wire.Payload}

		b.mu.RLock()
		handlers := append([]Handler(nil), b.handlers[wire.Kind]...)
		b.mu.RUnlock()

		for _, handler := range handlers {
			go func(h Handler) {
				defer func() { _ = recover() }()
				h(ctx, event)
			}(handler)
		}
	}
}
