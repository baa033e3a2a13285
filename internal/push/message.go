// Package push defines the multicast push message and the gateways that
// deliver it to device tokens.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Notification is the user-visible part of a push message.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// AndroidConfig carries Android delivery options. TTL is relative.
type AndroidConfig struct {
	TTL      time.Duration
	Priority string
}

// MarshalJSON encodes TTL in the "<seconds>s" duration form push services
// expect.
func (a AndroidConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TTL      string `json:"ttl"`
		Priority string `json:"priority,omitempty"`
	}{
		TTL:      fmt.Sprintf("%ds", int64(a.TTL/time.Second)),
		Priority: a.Priority,
	})
}

func (a *AndroidConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		TTL      string `json:"ttl"`
		Priority string `json:"priority"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Priority = raw.Priority
	a.TTL = 0
	if raw.TTL != "" {
		ttl, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return fmt.Errorf("android ttl: %w", err)
		}
		a.TTL = ttl
	}
	return nil
}

// WebpushConfig carries Web Push options. The TTL header is in seconds.
type WebpushConfig struct {
	Headers map[string]string `json:"headers,omitempty"`
}

// Aps is the APNs dictionary. Expiration is an absolute unix timestamp.
type Aps struct {
	Expiration int64 `json:"expiration"`
}

type APNSPayload struct {
	Aps Aps `json:"aps"`
}

type APNSConfig struct {
	Payload APNSPayload `json:"payload"`
}

// Message is one logical notification sent to many tokens.
type Message struct {
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *AndroidConfig    `json:"android,omitempty"`
	Webpush      *WebpushConfig    `json:"webpush,omitempty"`
	APNS         *APNSConfig       `json:"apns,omitempty"`
}

// SendResponse is the outcome for one token.
type SendResponse struct {
	Token   string `json:"token"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// Unregistered marks tokens the provider no longer recognizes. They are
	// candidates for cleanup.
	Unregistered bool `json:"unregistered,omitempty"`
}

// BatchResponse is the outcome of one SendMulticast call.
type BatchResponse struct {
	SuccessCount int            `json:"successCount"`
	FailureCount int            `json:"failureCount"`
	Responses    []SendResponse `json:"responses"`
}

// Gateway delivers a message to a batch of tokens. An error means the whole
// call failed (transport error, timeout, provider outage); per-token
// failures are reported in the BatchResponse instead.
type Gateway interface {
	SendMulticast(ctx context.Context, msg *Message, tokens []string) (*BatchResponse, error)
}
