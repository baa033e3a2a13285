package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"geosafe/internal/config"
	"geosafe/internal/domain/entities"
	"geosafe/internal/metrics"
	"geosafe/internal/push"
)

const (
	alertTitle      = "⚠️ DANGER VERIFIED"
	alertTTL        = 10 * time.Minute
	defaultBatch    = 500
	maxSendAttempts = 2
)

// BatchResult summarizes one multicast batch.
type BatchResult struct {
	Index        int    `json:"index"`
	Tokens       int    `json:"tokens"`
	Attempts     int    `json:"attempts"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
	Err          string `json:"error,omitempty"`
}

// DispatchResult aggregates every batch of one alert.
type DispatchResult struct {
	SuccessCount int           `json:"successCount"`
	FailureCount int           `json:"failureCount"`
	Batches      []BatchResult `json:"batches"`
	// Failed lists every token that did not receive the alert. Entries with
	// Unregistered set are stale and can be pruned.
	Failed []push.SendResponse `json:"failed,omitempty"`
}

// UnregisteredTokens returns the failed tokens the provider no longer knows.
func (r *DispatchResult) UnregisteredTokens() []string {
	var out []string
	for _, f := range r.Failed {
		if f.Unregistered {
			out = append(out, f.Token)
		}
	}
	return out
}

// NotificationService builds the verified-danger alert and delivers it to
// recipients in bounded multicast batches.
type NotificationService struct {
	gateway  push.Gateway
	dispatch config.DispatchConfig
	push     config.PushConfig
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewNotificationService(
	gateway push.Gateway,
	dispatch config.DispatchConfig,
	pushCfg config.PushConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *NotificationService {
	if dispatch.BatchSize <= 0 {
		dispatch.BatchSize = defaultBatch
	}
	if dispatch.MaxConcurrentBatches <= 0 {
		dispatch.MaxConcurrentBatches = 1
	}
	if pushCfg.TTL <= 0 {
		pushCfg.TTL = alertTTL
	}
	return &NotificationService{
		gateway:  gateway,
		dispatch: dispatch,
		push:     pushCfg,
		now:      time.Now,
		logger:   logger,
		metrics:  m,
	}
}

// BuildMessage renders the alert for a report. User-supplied text is reduced
// to plain text first.
func (s *NotificationService) BuildMessage(summary entities.ReportSummary, sentAt time.Time) *push.Message {
	title := plainText(summary.Title)
	data := map[string]string{
		"url":      s.push.ClickURL,
		"reportId": summary.ID,
	}
	if summary.EvidenceURL != "" {
		data["evidenceUrl"] = summary.EvidenceURL
	}

	return &push.Message{
		Notification: push.Notification{
			Title: alertTitle,
			Body:  fmt.Sprintf("%s is %s near your location!", title, summary.Category),
		},
		Data: data,
		Android: &push.AndroidConfig{
			TTL:      s.push.TTL,
			Priority: "high",
		},
		Webpush: &push.WebpushConfig{
			Headers: map[string]string{
				"TTL": strconv.FormatInt(int64(s.push.TTL/time.Second), 10),
			},
		},
		APNS: &push.APNSConfig{
			Payload: push.APNSPayload{
				Aps: push.Aps{Expiration: sentAt.Add(s.push.TTL).Unix()},
			},
		},
	}
}

// Dispatch sends one alert to every recipient's token. Tokens are split into
// batches of at most BatchSize, sent with at most MaxConcurrentBatches in
// flight. A batch whose call fails or times out is retried exactly once; if
// the retry also fails every token in that batch is counted as failed.
// Dispatch itself never fails: the outcome is in the result.
func (s *NotificationService) Dispatch(ctx context.Context, recipients []entities.Recipient, summary entities.ReportSummary) *DispatchResult {
	tokens := uniqueTokens(recipients)
	result := &DispatchResult{}
	if len(tokens) == 0 {
		return result
	}

	msg := s.BuildMessage(summary, s.now())
	batches := chunk(tokens, s.dispatch.BatchSize)
	results := make([]BatchResult, len(batches))
	failed := make([][]push.SendResponse, len(batches))

	var g errgroup.Group
	g.SetLimit(s.dispatch.MaxConcurrentBatches)
	for i, batch := range batches {
		g.Go(func() error {
			results[i], failed[i] = s.sendBatch(ctx, i, msg, batch)
			return nil
		})
	}
	_ = g.Wait()

	for i := range batches {
		result.Batches = append(result.Batches, results[i])
		result.SuccessCount += results[i].SuccessCount
		result.FailureCount += results[i].FailureCount
		result.Failed = append(result.Failed, failed[i]...)
	}
	s.metrics.PushTokens(result.SuccessCount, result.FailureCount)

	s.logger.Info("alert dispatched",
		zap.String("report_id", summary.ID),
		zap.Int("tokens", len(tokens)),
		zap.Int("batches", len(batches)),
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount),
	)
	return result
}

func (s *NotificationService) sendBatch(ctx context.Context, index int, msg *push.Message, tokens []string) (BatchResult, []push.SendResponse) {
	br := BatchResult{Index: index, Tokens: len(tokens)}

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		br.Attempts = attempt
		resp, err := s.send(ctx, msg, tokens)
		if err == nil {
			if attempt > 1 {
				s.metrics.PushBatch("retried")
			} else {
				s.metrics.PushBatch("ok")
			}
			failures := failedResponses(resp, tokens)
			br.SuccessCount = resp.SuccessCount
			br.FailureCount = resp.FailureCount
			if br.SuccessCount+br.FailureCount == 0 {
				br.FailureCount = len(failures)
				br.SuccessCount = len(tokens) - len(failures)
			}
			return br, failures
		}
		lastErr = err
		s.logger.Warn("push batch failed",
			zap.Int("batch", index),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	s.metrics.PushBatch("failed")
	br.FailureCount = len(tokens)
	br.Err = lastErr.Error()
	failures := make([]push.SendResponse, len(tokens))
	for i, tok := range tokens {
		failures[i] = push.SendResponse{Token: tok, Error: br.Err}
	}
	return br, failures
}

func (s *NotificationService) send(ctx context.Context, msg *push.Message, tokens []string) (*push.BatchResponse, error) {
	if s.dispatch.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.dispatch.BatchTimeout)
		defer cancel()
	}
	resp, err := s.gateway.SendMulticast(ctx, msg, tokens)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("push gateway returned no response")
	}
	return resp, nil
}

// failedResponses collects per-token failures, filling in tokens the gateway
// left blank from the request order.
func failedResponses(resp *push.BatchResponse, tokens []string) []push.SendResponse {
	var out []push.SendResponse
	for i, r := range resp.Responses {
		if r.Success {
			continue
		}
		if r.Token == "" && i < len(tokens) {
			r.Token = tokens[i]
		}
		out = append(out, r)
	}
	return out
}

func uniqueTokens(recipients []entities.Recipient) []string {
	seen := make(map[string]struct{}, len(recipients))
	tokens := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.Subscription == nil || r.Subscription.PushToken == "" {
			continue
		}
		tok := r.Subscription.PushToken
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
