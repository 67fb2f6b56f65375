// Package queue_publisher publishes domain events to RabbitMQ. Publishing is
// strictly best-effort: errors are logged and returned, but callers ignore
// them so a broker outage never fails the originating request.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/taller-ot/productos-api/internal/queue"
)

// PublishProductoCreado publishes a ProductoCreadoEvent to the
// "producto.creado" queue.
func PublishProductoCreado(ctx context.Context, event q.ProductoCreadoEvent) error {
	return publish(ctx, "producto.creado", event)
}

// PublishStockAjustado publishes a StockAjustadoEvent to the
// "producto.stock" queue.
func PublishStockAjustado(ctx context.Context, event q.StockAjustadoEvent) error {
	return publish(ctx, "producto.stock", event)
}

// publish opens a short-lived connection, declares the durable queue and
// sends one persistent JSON message. When no broker URL is configured the
// call is a silent no-op, which keeps local development and tests broker-free.
func publish(ctx context.Context, queueName string, event any) error {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	if url == "" {
		return nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
