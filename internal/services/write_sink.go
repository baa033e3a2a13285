package services

import (
	"context"
	"errors"

	"geosafe/internal/domain/entities"
)

// WriteSink receives every report write after it is committed. The alert
// trigger and the live report stream are both sinks.
type WriteSink interface {
	Publish(ctx context.Context, w entities.ReportWrite) error
}

// WriteSinks fans a write out to several sinks. Every sink is attempted; the
// errors are joined.
type WriteSinks []WriteSink

func (s WriteSinks) Publish(ctx context.Context, w entities.ReportWrite) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Publish(ctx, w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
