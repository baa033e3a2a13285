package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
)

// Connect dials NATS and keeps reconnecting for the life of the process.
func Connect(url, name string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes report writes as JSON on a subject. Any instance
// subscribed in the queue group picks each write up exactly once.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

func (p *NATSPublisher) Publish(_ context.Context, w entities.ReportWrite) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode report write: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// NATSSubscriber consumes report writes from a queue group and runs the alert
// cycle for each.
type NATSSubscriber struct {
	conn    *nats.Conn
	subject string
	queue   string
	runner  runner
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sub    *nats.Subscription
}

func NewNATSSubscriber(conn *nats.Conn, subject, queue string, handler Handler, cycleTimeout time.Duration, logger *zap.Logger) *NATSSubscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &NATSSubscriber{
		conn:    conn,
		subject: subject,
		queue:   queue,
		runner:  newRunner(handler, cycleTimeout, logger),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start joins the queue group. Messages are handled on the subscription's
// goroutine, one at a time per instance.
func (s *NATSSubscriber) Start() error {
	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, s.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.sub = sub
	s.logger.Info("listening for report writes",
		zap.String("subject", s.subject),
		zap.String("queue", s.queue),
	)
	return nil
}

func (s *NATSSubscriber) handle(msg *nats.Msg) {
	var w entities.ReportWrite
	if err := json.Unmarshal(msg.Data, &w); err != nil {
		s.logger.Error("drop malformed report write", zap.Error(err))
		return
	}
	s.runner.run(s.ctx, w)
}

// Stop drains the subscription so in-flight messages finish.
func (s *NATSSubscriber) Stop() error {
	defer s.cancel()
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}
