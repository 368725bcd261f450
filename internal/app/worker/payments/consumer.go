// internal/app/worker/payments/consumer.go
package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/retreathub/retreathub/internal/app/metrics"
	"go.uber.org/zap"
)

// Consumer drains payment-confirmation events from a queue and hands each
// one to the processor. It reconnects with backoff when the broker drops
// the connection and stops cleanly when its context is cancelled.
type Consumer struct {
	URL       string
	Queue     string
	Processor *Processor
	Log       *zap.Logger

	done chan struct{}
}

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// Start launches the consume loop in its own goroutine. Call Stop to wait
// for it to drain after cancelling the context passed here.
func (c *Consumer) Start(ctx context.Context) {
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.run(ctx)
	}()
}

// Stop blocks until the consume loop has exited.
func (c *Consumer) Stop() {
	if c.done != nil {
		<-c.done
	}
}

func (c *Consumer) run(ctx context.Context) {
	backoff := reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		c.Log.Warn("payment consumer disconnected",
			zap.Error(err),
			zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

// consume holds one connection open and processes deliveries until the
// connection breaks or the context is cancelled.
func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return err
	}
	// One unacked event at a time: processing is ordered per worker and a
	// crash loses at most one in-flight delivery back to the queue.
	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	// Unique consumer tag so parallel workers are tellable apart in the
	// broker's management UI.
	tag := "retreathub-" + uuid.NewString()
	deliveries, err := ch.Consume(c.Queue, tag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	c.Log.Info("payment consumer connected",
		zap.String("queue", c.Queue),
		zap.String("consumer_tag", tag))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	ev, err := ParseEvent(d.Body)
	if err != nil {
		metrics.PaymentEvents.WithLabelValues(metrics.OutcomeDropped).Inc()
		c.Log.Warn("dropping malformed payment event", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	err = c.Processor.Process(ctx, ev)
	switch {
	case err == nil:
		metrics.PaymentEvents.WithLabelValues(metrics.OutcomeProcessed).Inc()
		_ = d.Ack(false)
	case errors.Is(err, ErrPermanent):
		metrics.PaymentEvents.WithLabelValues(metrics.OutcomeDropped).Inc()
		c.Log.Warn("dropping unprocessable payment event",
			zap.String("payment_id", ev.PaymentID),
			zap.Error(err))
		_ = d.Nack(false, false)
	default:
		metrics.PaymentEvents.WithLabelValues(metrics.OutcomeRequeued).Inc()
		c.Log.Error("payment event failed, requeueing",
			zap.String("payment_id", ev.PaymentID),
			zap.Error(err))
		_ = d.Nack(false, true)
	}
}
