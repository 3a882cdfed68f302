package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var errNoToken = errors.New("device has no push token")

// FCMService delivers push notifications to devices that are not connected
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service. It returns nil when push is not
// configured or Firebase cannot be initialized.
func NewFCMService(ctx context.Context, credentialsFile string) *FCMService {
	if credentialsFile == "" {
		log.Println("⚠️ Firebase credentials not provided, push notifications disabled")
		return nil
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		log.Printf("⚠️ Failed to initialize Firebase app: %v (push notifications disabled)", err)
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("⚠️ Failed to get messaging client: %v", err)
		return nil
	}

	log.Println("✅ Firebase FCM initialized")
	return &FCMService{client: client}
}

// SendPush sends one notification to a device token
func (s *FCMService) SendPush(ctx context.Context, token, title, body string, data map[string]string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if token == "" {
		return errNoToken
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	id, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending push message: %w", err)
	}
	log.Printf("📲 Push sent (%s)", id)
	return nil
}
