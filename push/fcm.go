package push

import (
	"context"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"github.com/motocabz/dispatch-core/domain"
)

// FCMSink is the concrete domain.PushSink backed by Firebase Cloud
// Messaging.
type FCMSink struct {
	client *messaging.Client
}

// NewFCMSink builds an FCMSink from an initialized Firebase app. The
// messaging client is constructed once at startup and injected into the
// worker that uses it.
func NewFCMSink(ctx context.Context, app *firebase.App) (*FCMSink, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FCMSink{client: client}, nil
}

// Send implements domain.PushSink. It sets the high-urgency Android channel
// and distinctive sound when priority=="high".
func (s *FCMSink) Send(ctx context.Context, token, title, body string, data map[string]string, priority string) (domain.SendResult, error) {
	androidPriority := "normal"
	channelID := "default"
	sound := "default"
	if priority == "high" {
		androidPriority = "high"
		channelID = "mission_offers"
		sound = "mission_offer_alert"
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				ChannelID: channelID,
				Sound:     sound,
			},
		},
	}

	_, err := s.client.Send(ctx, msg)
	if err == nil {
		return domain.SendResult{Success: true}, nil
	}
	if isInvalidTokenErr(err) {
		return domain.SendResult{Success: false, InvalidToken: true}, nil
	}
	return domain.SendResult{}, err
}

// isInvalidTokenErr recognizes FCM's registration-token error codes that
// mean the token is permanently dead and must be nullified rather than
// retried.
func isInvalidTokenErr(err error) bool {
	if err == nil {
		return false
	}
	return messaging.IsRegistrationTokenNotRegistered(err) ||
		messaging.IsInvalidArgument(err) && strings.Contains(err.Error(), "registration-token")
}
