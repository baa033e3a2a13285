package push

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMMaxTokens is the largest token list Firebase accepts in one multicast.
const FCMMaxTokens = 500

// multicastSender is the part of *messaging.Client the gateway uses.
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMGateway delivers through Firebase Cloud Messaging.
type FCMGateway struct {
	client         multicastSender
	isUnregistered func(error) bool
}

// NewFCMGateway initializes a Firebase app. An empty credentialsFile falls
// back to application default credentials.
func NewFCMGateway(ctx context.Context, projectID, credentialsFile string) (*FCMGateway, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return newFCMGateway(client), nil
}

func newFCMGateway(client multicastSender) *FCMGateway {
	return &FCMGateway{client: client, isUnregistered: messaging.IsUnregistered}
}

func (g *FCMGateway) SendMulticast(ctx context.Context, msg *Message, tokens []string) (*BatchResponse, error) {
	if len(tokens) > FCMMaxTokens {
		return nil, fmt.Errorf("fcm multicast: %d tokens exceeds limit of %d", len(tokens), FCMMaxTokens)
	}
	resp, err := g.client.SendEachForMulticast(ctx, toMulticast(msg, tokens))
	if err != nil {
		return nil, fmt.Errorf("fcm multicast: %w", err)
	}

	out := &BatchResponse{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
		Responses:    make([]SendResponse, len(resp.Responses)),
	}
	for i, r := range resp.Responses {
		sr := SendResponse{Success: r.Success}
		if i < len(tokens) {
			sr.Token = tokens[i]
		}
		if r.Error != nil {
			sr.Error = r.Error.Error()
			sr.Unregistered = g.isUnregistered(r.Error)
		}
		out.Responses[i] = sr
	}
	return out, nil
}

// toMulticast maps a Message onto the Firebase wire type. APNs expiry travels
// as the apns-expiration header.
func toMulticast(msg *Message, tokens []string) *messaging.MulticastMessage {
	mm := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   maps.Clone(msg.Data),
		Notification: &messaging.Notification{
			Title: msg.Notification.Title,
			Body:  msg.Notification.Body,
		},
	}
	if msg.Android != nil {
		ttl := msg.Android.TTL
		mm.Android = &messaging.AndroidConfig{TTL: &ttl, Priority: msg.Android.Priority}
	}
	if msg.Webpush != nil {
		mm.Webpush = &messaging.WebpushConfig{Headers: maps.Clone(msg.Webpush.Headers)}
	}
	if msg.APNS != nil && msg.APNS.Payload.Aps.Expiration > 0 {
		mm.APNS = &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-expiration": strconv.FormatInt(msg.APNS.Payload.Aps.Expiration, 10),
			},
		}
	}
	return mm
}
