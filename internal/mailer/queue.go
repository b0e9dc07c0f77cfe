package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Publisher publishes a message body to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// QueueMailer hands verification emails to a broker queue; a Worker performs
// the actual delivery.
type QueueMailer struct {
	publisher Publisher
	queue     string
}

// NewQueueMailer creates a QueueMailer publishing to queue.
func NewQueueMailer(publisher Publisher, queue string) *QueueMailer {
	return &QueueMailer{publisher: publisher, queue: queue}
}

func (m *QueueMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	body, err := json.Marshal(VerificationMessage{Email: email, Token: token})
	if err != nil {
		return fmt.Errorf("failed to marshal verification message: %w", err)
	}
	if err := m.publisher.Publish(ctx, m.queue, body); err != nil {
		return fmt.Errorf("failed to queue verification email: %w", err)
	}
	return nil
}

// Worker drains queued verification messages into a delivering Mailer.
type Worker struct {
	delivery Mailer
	logger   *zap.Logger
}

// NewWorker creates a Worker that delivers through delivery.
func NewWorker(delivery Mailer, logger *zap.Logger) *Worker {
	return &Worker{delivery: delivery, logger: logger}
}

// Run processes deliveries until ctx is cancelled or the channel closes.
// Malformed messages are rejected without requeue; a failed delivery is
// requeued once and dropped when it fails again.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg VerificationMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.Email == "" || msg.Token == "" {
		w.logger.Warn("rejecting malformed verification message",
			zap.Uint64("delivery_tag", d.DeliveryTag),
			zap.Error(err),
		)
		if err := d.Reject(false); err != nil {
			w.logger.Error("failed to reject message", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
		}
		return
	}

	if err := w.delivery.SendVerificationEmail(ctx, msg.Email, msg.Token); err != nil {
		requeue := !d.Redelivered
		w.logger.Error("failed to deliver verification email",
			zap.String("to", msg.Email),
			zap.Bool("requeue", requeue),
			zap.Error(err),
		)
		if err := d.Nack(false, requeue); err != nil {
			w.logger.Error("failed to nack message", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
		}
		return
	}

	if err := d.Ack(false); err != nil {
		w.logger.Error("failed to ack message", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
	}
}
