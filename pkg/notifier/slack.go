package notifier

import (
	"context"

	"github.com/artzaitsev/submission-scheduler/pkg/slack"
)

// SlackTransport adapts pkg/slack.Service to the Transport interface.
type SlackTransport struct {
	service *slack.Service
}

// NewSlackTransport wraps an already-constructed slack.Service.
func NewSlackTransport(service *slack.Service) *SlackTransport {
	return &SlackTransport{service: service}
}

// SendResultNotification posts message to the configured Slack channel.
func (t *SlackTransport) SendResultNotification(ctx context.Context, submissionID, message string) (string, error) {
	return t.service.SendResultNotification(ctx, submissionID, message)
}
