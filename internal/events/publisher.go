package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderCancelled     = "order.cancelled"
)

type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	SellerID    string    `json:"seller_id"`
	Status      string    `json:"status"`
	Amount      int64     `json:"amount"`
	At          time.Time `json:"at"`
}

// Publisher emits order lifecycle events, keyed by order id so per-order
// ordering is preserved. A nil Publisher, or one built from an empty broker
// list, is a no-op.
type Publisher struct {
	w *kafka.Writer
}

func NewPublisher(brokersCSV, topic string) *Publisher {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return &Publisher{}
	}

	return &Publisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.w != nil
}

func (p *Publisher) PublishOrderEvent(ctx context.Context, ev OrderEvent) error {
	if !p.Enabled() {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: payload,
	})
}

func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.w.Close()
}
