package slack

import (
	"context"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token   string
	Channel string
}

// Service sends submission result notifications to a Slack channel. It
// implements pkg/notifier.Transport.
type Service struct {
	client *Client
}

// NewService creates a new Slack notification service. Returns nil if Token
// or Channel is empty, matching the teacher's nil-safe-client idiom.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{client: NewClient(cfg.Token, cfg.Channel)}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client) *Service {
	return &Service{client: client}
}

// SendResultNotification posts message to the configured channel and
// returns the Slack message timestamp as the external_message_id.
func (s *Service) SendResultNotification(ctx context.Context, submissionID, message string) (string, error) {
	blocks := BuildResultMessage(submissionID, message)
	return s.client.PostMessage(ctx, blocks, 10*time.Second)
}
