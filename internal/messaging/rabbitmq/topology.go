// Package rabbitmq publishes and consumes order events over AMQP 0-9-1.
package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeKindTopic = "topic"

// TopologyChannel is the subset of *amqp.Channel used to declare exchanges and queues.
type TopologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Topology names the exchange and queues shared by the publisher and the consumer.
type Topology struct {
	Exchange   string
	Queue      string
	BindingKey string

	// DeadLetterEnabled declares DeadLetterExchange and DeadLetterQueue and points the main
	// queue at them. Toggling it on an existing queue requires deleting the queue first,
	// because RabbitMQ rejects redeclaration with different arguments.
	DeadLetterEnabled  bool
	DeadLetterExchange string
	DeadLetterQueue    string
}

// ExchangeDeclarer declares the durable topic exchange.
type ExchangeDeclarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
}

// DeclareExchange declares name as a durable topic exchange.
func DeclareExchange(ch ExchangeDeclarer, name string) error {
	if err := ch.ExchangeDeclare(name, exchangeKindTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %q: %w", name, err)
	}
	return nil
}

// DeclareConsumerTopology declares the exchange, the optional dead-letter pair and the
// durable queue bound with the binding key.
func DeclareConsumerTopology(ch TopologyChannel, t Topology) error {
	if err := DeclareExchange(ch, t.Exchange); err != nil {
		return err
	}

	var queueArgs amqp.Table
	if t.DeadLetterEnabled {
		if err := declareDeadLetter(ch, t); err != nil {
			return err
		}
		queueArgs = amqp.Table{
			"x-dead-letter-exchange":    t.DeadLetterExchange,
			"x-dead-letter-routing-key": t.BindingKey,
		}
	}

	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, queueArgs); err != nil {
		return fmt.Errorf("declare queue %q: %w", t.Queue, err)
	}

	if err := ch.QueueBind(t.Queue, t.BindingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q to %q: %w", t.Queue, t.Exchange, err)
	}

	return nil
}

func declareDeadLetter(ch TopologyChannel, t Topology) error {
	if err := DeclareExchange(ch, t.DeadLetterExchange); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(t.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue %q: %w", t.DeadLetterQueue, err)
	}

	if err := ch.QueueBind(t.DeadLetterQueue, "#", t.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue %q: %w", t.DeadLetterQueue, err)
	}

	return nil
}
