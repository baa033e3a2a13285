package push

import (
	"context"

	"go.uber.org/zap"
)

// LogGateway logs each multicast and reports every token as delivered. It is
// selected when no push endpoint is configured.
type LogGateway struct {
	log *zap.Logger
}

func NewLogGateway(log *zap.Logger) *LogGateway {
	return &LogGateway{log: log.Named("push")}
}

func (g *LogGateway) SendMulticast(ctx context.Context, msg *Message, tokens []string) (*BatchResponse, error) {
	g.log.Info("multicast",
		zap.String("title", msg.Notification.Title),
		zap.String("body", msg.Notification.Body),
		zap.String("report_id", msg.Data["reportId"]),
		zap.Int("tokens", len(tokens)),
	)

	resp := &BatchResponse{
		SuccessCount: len(tokens),
		Responses:    make([]SendResponse, len(tokens)),
	}
	for i, token := range tokens {
		resp.Responses[i] = SendResponse{Token: token, Success: true}
	}
	return resp, nil
}
