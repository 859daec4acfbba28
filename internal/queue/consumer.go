package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer drains booking.confirmed and tokens.purchased and writes one
// structured audit entry per event.
type Consumer struct {
	url   string
	log   *zap.Logger
	audit *zap.Logger
}

// NewConsumer logs operational messages to log and events to audit.
func NewConsumer(url string, log, audit *zap.Logger) *Consumer {
	return &Consumer{url: url, log: log.Named("consumer"), audit: audit}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}

	bookings, err := c.declareAndConsume(ch, BookingConfirmedQueue)
	if err != nil {
		return err
	}
	tokens, err := c.declareAndConsume(ch, TokensPurchasedQueue)
	if err != nil {
		return err
	}
	c.log.Info("consuming", zap.Strings("queues", []string{BookingConfirmedQueue, TokensPurchasedQueue}))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-bookings:
			if !ok {
				return errors.New("booking deliveries channel closed")
			}
			c.ack(d, c.HandleBookingConfirmed(d.Body))
		case d, ok := <-tokens:
			if !ok {
				return errors.New("token deliveries channel closed")
			}
			c.ack(d, c.HandleTokensPurchased(d.Body))
		}
	}
}

func (c *Consumer) declareAndConsume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

// ack rejects undecodable messages without requeue so they cannot loop.
func (c *Consumer) ack(d amqp.Delivery, err error) {
	if err != nil {
		c.log.Error("handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// HandleBookingConfirmed writes the audit entry for one booking event.
func (c *Consumer) HandleBookingConfirmed(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == 0 {
		return errors.New("booking_id missing")
	}
	fields := []zap.Field{
		zap.Uint64("booking_id", ev.BookingID),
		zap.Uint64("user_id", ev.UserID),
		zap.Uint64("item_id", ev.ItemID),
		zap.String("item", ev.ItemName),
		zap.String("date", ev.BookingDate),
		zap.String("time", ev.BookingTime),
		zap.String("payment_method", ev.PaymentMethod),
		zap.Uint64("total_cents", ev.FinalPriceCents),
		zap.String("confirmed_at", ev.ConfirmedAt),
	}
	if ev.SlotID != nil {
		fields = append(fields, zap.Uint64("slot_id", *ev.SlotID))
	}
	c.audit.Info("booking confirmed", fields...)
	return nil
}

// HandleTokensPurchased writes the audit entry for one token purchase.
func (c *Consumer) HandleTokensPurchased(body []byte) error {
	var ev TokensPurchasedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.PurchaseID == 0 {
		return errors.New("purchase_id missing")
	}
	c.audit.Info("tokens purchased",
		zap.Uint64("purchase_id", ev.PurchaseID),
		zap.Uint64("user_id", ev.UserID),
		zap.Uint32("tokens", ev.Tokens),
		zap.Uint64("amount_cents", ev.AmountCents),
		zap.String("order_id", ev.OrderID),
		zap.String("confirmed_at", ev.ConfirmedAt),
	)
	return nil
}
