package push

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"geosafe/internal/config"
)

// Gateway providers accepted in config.PushConfig.Provider.
const (
	ProviderLog  = "log"
	ProviderHTTP = "http"
	ProviderFCM  = "fcm"
)

// NewGateway builds the gateway named by cfg.Provider. An empty provider
// picks the HTTP relay when an endpoint is set and the log gateway otherwise.
func NewGateway(ctx context.Context, cfg config.PushConfig, log *zap.Logger) (Gateway, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderLog
		if cfg.Endpoint != "" {
			provider = ProviderHTTP
		}
	}

	switch provider {
	case ProviderFCM:
		return NewFCMGateway(ctx, cfg.ProjectID, cfg.CredentialsFile)
	case ProviderHTTP:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("push provider %q needs an endpoint", provider)
		}
		return NewHTTPGateway(cfg.Endpoint, cfg.APIKey, cfg.Timeout), nil
	case ProviderLog:
		return NewLogGateway(log), nil
	}
	return nil, fmt.Errorf("unknown push provider %q", provider)
}
