package rabbitmq

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type declaredQueue struct {
	name string
	args amqp.Table
}

type binding struct {
	queue, key, exchange string
}

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

// fakeChannel records AMQP calls. It satisfies PublishChannel and ConsumeChannel.
type fakeChannel struct {
	mu sync.Mutex

	exchanges []string
	queues    []declaredQueue
	bindings  []binding
	published []published
	prefetch  int
	closed    bool

	exchangeErr error
	confirmErr  error
	publishErr  error
	consumeErr  error
	// confirmAck is sent after a publish; nil sends nothing.
	confirmAck *bool

	confirms   chan amqp.Confirmation
	closeNotes chan *amqp.Error
	deliveries chan amqp.Delivery
}

func newFakeChannel() *fakeChannel {
	ack := true
	return &fakeChannel{confirmAck: &ack, deliveries: make(chan amqp.Delivery)}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exchangeErr != nil {
		return f.exchangeErr
	}
	if kind != "topic" || !durable {
		return errors.New("expected durable topic exchange")
	}
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !durable {
		return amqp.Queue{}, errors.New("expected durable queue")
	}
	f.queues = append(f.queues, declaredQueue{name: name, args: args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings = append(f.bindings, binding{queue: name, key: key, exchange: exchange})
	return nil
}

func (f *fakeChannel) Confirm(noWait bool) error {
	return f.confirmErr
}

func (f *fakeChannel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms = confirm
	return confirm
}

func (f *fakeChannel) PublishWithContext(
	ctx context.Context,
	exchange, key string,
	mandatory, immediate bool,
	msg amqp.Publishing,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	if f.confirmAck != nil && f.confirms != nil {
		f.confirms <- amqp.Confirmation{DeliveryTag: uint64(len(f.published)), Ack: *f.confirmAck}
	}
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefetch = prefetchCount
	return nil
}

func (f *fakeChannel) Consume(
	queue, consumer string,
	autoAck, exclusive, noLocal, noWait bool,
	args amqp.Table,
) (<-chan amqp.Delivery, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	if autoAck {
		return nil, errors.New("expected manual ack")
	}
	return f.deliveries, nil
}

func (f *fakeChannel) NotifyClose(c chan *amqp.Error) chan *amqp.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeNotes = c
	return c
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// breakChannel simulates the broker closing the channel.
func (f *fakeChannel) breakChannel() {
	f.mu.Lock()
	notes := f.closeNotes
	f.mu.Unlock()
	notes <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
}

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type ackResult struct {
	tag     uint64
	ack     bool
	requeue bool
}

// fakeAcknowledger reports every ack and nack on results.
type fakeAcknowledger struct {
	results chan ackResult
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.results <- ackResult{tag: tag, ack: true}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.results <- ackResult{tag: tag, requeue: requeue}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}
