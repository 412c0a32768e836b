package queue

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client is the consumer/producer contract shared by the web handlers and the
// worker pool manager.
type Client interface {
	Produce(job Job) error
	// Consume is a non-blocking get: it returns (nil, nil) when the queue is
	// empty. The returned job stays unacknowledged until AckLast.
	Consume() (Job, error)
	AckLast() error
	// RequeueLast puts the last consumed message back when the hand-off to a
	// worker failed.
	RequeueLast() error
	Close() error
}

// Adapter talks to the durable ladder job queue over AMQP with prefetch=1 and
// manual acknowledgment.
type Adapter struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	last  *amqp.Delivery
}

var _ Client = (*Adapter)(nil)

// Dial connects to the broker and declares the durable job queue.
func Dial(url, queueName string) (*Adapter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	// One outstanding unacknowledged message per consumer bounds redelivery
	// to crash scenarios only.
	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp qos: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}

	log.Printf("[QUEUE] Connected, queue %q declared", queueName)
	return &Adapter{conn: conn, ch: ch, queue: queueName}, nil
}

// Produce publishes a job with persistent delivery mode.
func (a *Adapter) Produce(job Job) error {
	body, err := Marshal(job)
	if err != nil {
		return err
	}
	return a.ch.PublishWithContext(context.Background(), "", a.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume fetches at most one message from the queue without blocking.
func (a *Adapter) Consume() (Job, error) {
	delivery, ok, err := a.ch.Get(a.queue, false)
	if err != nil {
		return nil, fmt.Errorf("amqp get: %w", err)
	}
	if !ok {
		return nil, nil
	}

	job, err := Unmarshal(delivery.Body)
	if err != nil {
		// Poison message: reject without requeue so it does not loop forever.
		if nerr := delivery.Nack(false, false); nerr != nil {
			log.Printf("[QUEUE] Nack of invalid message failed: %v", nerr)
		}
		return nil, err
	}

	a.last = &delivery
	return job, nil
}

// AckLast acknowledges the message returned by the previous Consume.
func (a *Adapter) AckLast() error {
	if a.last == nil {
		return fmt.Errorf("no consumed message to acknowledge")
	}
	err := a.last.Ack(false)
	a.last = nil
	return err
}

// RequeueLast returns the message of the previous Consume to the queue.
func (a *Adapter) RequeueLast() error {
	if a.last == nil {
		return fmt.Errorf("no consumed message to requeue")
	}
	err := a.last.Nack(false, true)
	a.last = nil
	return err
}

func (a *Adapter) Close() error {
	return a.conn.Close()
}
