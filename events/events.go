// Package events publishes order lifecycle events to Kafka for the
// tracking and operations consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doorstep-app/doorstep/config"
	"github.com/doorstep-app/doorstep/core/order"
	"github.com/doorstep-app/doorstep/validate"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Type string

const (
	TypeOrderCreated           Type = "order.created"
	TypeOrderStatusChanged     Type = "order.status_changed"
	TypeReconciliationRequired Type = "checkout.reconciliation_required"
)

type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Key       string          `json:"key"`
	UserID    string          `json:"userId"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Reconciliation describes a payment that was captured while order
// composition did not fully commit. The ops consumer of this event owns
// refunding or re-creating the missing shop orders.
type Reconciliation struct {
	CheckoutRef string              `json:"checkoutRef"`
	PaymentRef  string              `json:"paymentRef"`
	UserID      string              `json:"userId"`
	Committed   []string            `json:"committed"`
	Failed      []order.ShopFailure `json:"failed"`
}

type Kafka struct {
	writer *kafka.Writer
	log    logrus.FieldLogger
}

func NewKafka(cfg config.Kafka, log logrus.FieldLogger) *Kafka {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrdersTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &Kafka{writer: writer, log: log}
}

func (k *Kafka) OrderCreated(ctx context.Context, ord order.Order) error {
	data, err := json.Marshal(ord)
	if err != nil {
		return fmt.Errorf("encoding order: %w", err)
	}

	return k.publish(ctx, Event{
		ID:        validate.GenerateID(),
		Type:      TypeOrderCreated,
		Key:       ord.ID,
		UserID:    ord.UserID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (k *Kafka) OrderStatusChanged(ctx context.Context, ord order.Order, previous order.Status) error {
	payload := struct {
		Order    order.Order  `json:"order"`
		Previous order.Status `json:"previousStatus"`
		Next     order.Status `json:"newStatus"`
	}{ord, previous, ord.Status}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding status change: %w", err)
	}

	return k.publish(ctx, Event{
		ID:        validate.GenerateID(),
		Type:      TypeOrderStatusChanged,
		Key:       ord.ID,
		UserID:    ord.UserID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (k *Kafka) ReconciliationRequired(ctx context.Context, rec Reconciliation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding reconciliation: %w", err)
	}

	return k.publish(ctx, Event{
		ID:        validate.GenerateID(),
		Type:      TypeReconciliationRequired,
		Key:       rec.CheckoutRef,
		UserID:    rec.UserID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (k *Kafka) publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.Key),
		Value: raw,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "event_id", Value: []byte(evt.ID)},
		},
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.log.WithFields(logrus.Fields{
			"event_id":   evt.ID,
			"event_type": evt.Type,
			"key":        evt.Key,
			"message":    err,
		}).Error("publishing event")
		return err
	}

	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Noop keeps the service runnable without a broker.
type Noop struct{}

func (Noop) OrderCreated(ctx context.Context, ord order.Order) error { return nil }

func (Noop) OrderStatusChanged(ctx context.Context, ord order.Order, previous order.Status) error {
	return nil
}

func (Noop) ReconciliationRequired(ctx context.Context, rec Reconciliation) error { return nil }

func (Noop) Close() error { return nil }
