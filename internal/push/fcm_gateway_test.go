package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"geosafe/internal/config"
)

var errUnregistered = errors.New("requested entity was not found")

type fakeSender struct {
	got  *messaging.MulticastMessage
	resp *messaging.BatchResponse
	err  error
}

func (f *fakeSender) SendEachForMulticast(ctx context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.got = m
	return f.resp, f.err
}

func TestFCMGateway_SendMulticast(t *testing.T) {
	sender := &fakeSender{resp: &messaging.BatchResponse{
		SuccessCount: 1,
		FailureCount: 2,
		Responses: []*messaging.SendResponse{
			{Success: true, MessageID: "m1"},
			{Error: errUnregistered},
			{Error: errors.New("internal error")},
		},
	}}
	gw := newFCMGateway(sender)
	gw.isUnregistered = func(err error) bool { return errors.Is(err, errUnregistered) }

	resp, err := gw.SendMulticast(context.Background(), testMessage(), []string{"t1", "t2", "t3"})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.SuccessCount)
	assert.Equal(t, 2, resp.FailureCount)
	require.Len(t, resp.Responses, 3)
	assert.Equal(t, SendResponse{Token: "t1", Success: true}, resp.Responses[0])
	assert.Equal(t, "t2", resp.Responses[1].Token)
	assert.True(t, resp.Responses[1].Unregistered)
	assert.False(t, resp.Responses[2].Unregistered)
	assert.Equal(t, "internal error", resp.Responses[2].Error)

	m := sender.got
	require.NotNil(t, m)
	assert.Equal(t, []string{"t1", "t2", "t3"}, m.Tokens)
	assert.Equal(t, "⚠️ DANGER VERIFIED", m.Notification.Title)
	assert.Equal(t, "r1", m.Data["reportId"])
	require.NotNil(t, m.Android.TTL)
	assert.Equal(t, 600*time.Second, *m.Android.TTL)
	assert.Equal(t, "high", m.Android.Priority)
	assert.Equal(t, "600", m.Webpush.Headers["TTL"])
	assert.Equal(t, "1700000600", m.APNS.Headers["apns-expiration"])
}

func TestFCMGateway_Errors(t *testing.T) {
	gw := newFCMGateway(&fakeSender{err: errors.New("quota exceeded")})

	_, err := gw.SendMulticast(context.Background(), testMessage(), []string{"t1"})
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = gw.SendMulticast(context.Background(), testMessage(), make([]string, FCMMaxTokens+1))
	assert.ErrorContains(t, err, "exceeds limit")
}

func TestToMulticast_OptionalSections(t *testing.T) {
	m := toMulticast(&Message{Notification: Notification{Title: "t", Body: "b"}}, []string{"x"})
	assert.Nil(t, m.Android)
	assert.Nil(t, m.Webpush)
	assert.Nil(t, m.APNS)
	assert.Equal(t, "b", m.Notification.Body)
}

func TestNewGateway(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	gw, err := NewGateway(ctx, config.PushConfig{}, log)
	require.NoError(t, err)
	assert.IsType(t, &LogGateway{}, gw)

	gw, err = NewGateway(ctx, config.PushConfig{Endpoint: "http://relay.local/send"}, log)
	require.NoError(t, err)
	assert.IsType(t, &HTTPGateway{}, gw)

	_, err = NewGateway(ctx, config.PushConfig{Provider: ProviderHTTP}, log)
	assert.Error(t, err)

	_, err = NewGateway(ctx, config.PushConfig{Provider: "carrier-pigeon"}, log)
	assert.ErrorContains(t, err, "unknown push provider")
}
