// Package messaging publishes due-date reminder events for the circulation
// system. Reminders flow through an explicit, injected publisher instead of
// ambient process state, so pending notifications survive restarts and can
// be consumed by any downstream worker.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/config"
)

type DueReminder struct {
	UserID    uuid.UUID `json:"user_id"`
	BookID    uuid.UUID `json:"book_id"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ReminderWriter is the slice of kafka.Writer the publisher uses.
type ReminderWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ReminderPublisher struct {
	writer ReminderWriter
	logger *logrus.Logger
}

func NewReminderPublisher(cfg *config.KafkaConfig, logger *logrus.Logger) *ReminderPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topics.DueReminders,
		Balancer:     &kafka.Hash{}, // key by user so one user's reminders stay ordered
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &ReminderPublisher{writer: writer, logger: logger}
}

func (p *ReminderPublisher) Publish(ctx context.Context, reminder DueReminder) error {
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(reminder)
	if err != nil {
		return fmt.Errorf("marshal due reminder: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(reminder.UserID.String()),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publish due reminder: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"user_id": reminder.UserID,
		"book_id": reminder.BookID,
		"due_at":  reminder.DueAt,
	}).Debug("Due reminder published")

	return nil
}

func (p *ReminderPublisher) Close() error {
	return p.writer.Close()
}
