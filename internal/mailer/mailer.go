// Package mailer queues outgoing mail as jobs on the mail topic. Delivery is
// done by a separate consumer.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/coursehub/internal/events"
)

const TemplatePasswordReset = "password_reset"

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

type Job struct {
	ID       string            `json:"id"`
	To       string            `json:"to"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
	QueuedAt time.Time         `json:"queued_at"`
}

type KafkaMailer struct {
	publisher     events.Publisher
	publicBaseURL string
}

func New(p events.Publisher, publicBaseURL string) *KafkaMailer {
	return &KafkaMailer{publisher: p, publicBaseURL: publicBaseURL}
}

func (m *KafkaMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link, err := url.JoinPath(m.publicBaseURL, "reset-password")
	if err != nil {
		return fmt.Errorf("build reset link: %w", err)
	}
	link += "?token=" + url.QueryEscape(token)

	job := Job{
		ID:       uuid.NewString(),
		To:       to,
		Template: TemplatePasswordReset,
		Data:     map[string]string{"link": link},
		QueuedAt: time.Now().UTC(),
	}
	return m.publisher.PublishEvent(ctx, events.TopicMailEvents, to, job)
}
