package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
)

// Observer receives the feed. OnSnapshot is called once per connection,
// before any OnChange of that connection.
type Observer interface {
	OnSnapshot(reports []*entities.Report)
	OnChange(change entities.ReportChange)
}

// Client follows a Hub and reconnects with exponential backoff whenever the
// connection drops. Every reconnect starts with a fresh snapshot.
type Client struct {
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	backoff *backoff.Backoff
	logger  *zap.Logger
}

func NewClient(url string, header http.Header, logger *zap.Logger) *Client {
	return &Client{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		backoff: &backoff.Backoff{
			Min:    500 * time.Millisecond,
			Max:    30 * time.Second,
			Factor: 2,
			Jitter: true,
		},
		logger: logger,
	}
}

// Run follows the feed until ctx is done.
func (c *Client) Run(ctx context.Context, obs Observer) error {
	for {
		err := c.session(ctx, obs)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := c.backoff.Duration()
		c.logger.Warn("report stream disconnected",
			zap.Error(err),
			zap.Duration("retry_in", wait),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) session(ctx context.Context, obs Observer) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	snapshotSeen := false
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case MessageSnapshot:
			snapshotSeen = true
			c.backoff.Reset()
			obs.OnSnapshot(msg.Reports)
		case MessageChange:
			if !snapshotSeen || msg.Change == nil {
				continue
			}
			obs.OnChange(*msg.Change)
		}
	}
}
