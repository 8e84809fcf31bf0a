package fcm

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const channelID = "hunter_alerts"

var ErrDisabled = errors.New("fcm client not initialized")

// sender is the part of messaging.Client the alert path uses.
type sender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Client struct {
	client sender
	log    *zap.Logger
}

// NewClient initializes Firebase Cloud Messaging from a credentials file or
// an inline JSON document. Without either, it returns a disabled client.
func NewClient(ctx context.Context, credPath, credJSON string, log *zap.Logger) (*Client, error) {
	log = log.Named("fcm")

	var opt option.ClientOption
	switch {
	case credPath != "":
		opt = option.WithCredentialsFile(credPath)
	case credJSON != "":
		opt = option.WithCredentialsJSON([]byte(credJSON))
	default:
		log.Warn("no firebase credentials found, push notifications disabled")
		return &Client{log: log}, nil
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	log.Info("firebase cloud messaging initialized")
	return &Client{client: client, log: log}, nil
}

func multicastMessage(tokens []string, title, body string, data map[string]string) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: channelID,
				Priority:  messaging.PriorityHigh,
			},
		},
	}
}

// SendMulticast sends one notification to every token. Partial failures are
// logged; only a failed request is returned as an error.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if c.client == nil {
		return ErrDisabled
	}
	if len(tokens) == 0 {
		return nil
	}

	response, err := c.client.SendEachForMulticast(ctx, multicastMessage(tokens, title, body, data))
	if err != nil {
		return fmt.Errorf("error sending multicast: %w", err)
	}

	c.log.Debug("multicast sent",
		zap.Int("success", response.SuccessCount),
		zap.Int("failure", response.FailureCount))
	return nil
}

// IsEnabled returns true if FCM client is initialized
func (c *Client) IsEnabled() bool {
	return c.client != nil
}
