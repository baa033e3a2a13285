package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
	"geosafe/internal/repository"
	"geosafe/pkg/utils"
)

const defaultListLimit = 200

// CreateReportInput holds the fields a client may set on a new report.
type CreateReportInput struct {
	Title        string
	Category     string
	Location     entities.Location
	ReporterID   string
	ReporterName string
	EvidenceURL  string
}

// ReportService owns the report lifecycle: submission, listing, admin
// verification and deletion. Every committed write is published to the sink.
type ReportService struct {
	repo   repository.ReportRepository
	sink   WriteSink
	logger *zap.Logger
}

func NewReportService(repo repository.ReportRepository, sink WriteSink, logger *zap.Logger) *ReportService {
	return &ReportService{repo: repo, sink: sink, logger: logger}
}

// Create stores a new Unconfirmed report with zero votes.
func (s *ReportService) Create(ctx context.Context, in CreateReportInput) (*entities.Report, error) {
	category, err := entities.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	report := entities.NewReport(utils.GenerateID(), strings.TrimSpace(in.Title), category, in.Location, in.ReporterID)
	report.ReporterName = strings.TrimSpace(in.ReporterName)
	report.EvidenceURL = strings.TrimSpace(in.EvidenceURL)
	if err := report.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.logger.Info("report created",
		zap.String("report_id", report.ID),
		zap.String("category", string(report.Category)),
		zap.String("reporter_id", report.ReporterID),
	)

	publish(ctx, s.sink, s.logger, entities.ReportWrite{
		ReportID:   report.ID,
		After:      report.Clone(),
		OccurredAt: report.CreatedAt,
	})
	return report, nil
}

func (s *ReportService) Get(ctx context.Context, id string) (*entities.Report, error) {
	report, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	return report, err
}

// List returns matching reports, newest first.
func (s *ReportService) List(ctx context.Context, filter entities.ReportFilter) ([]*entities.Report, error) {
	if filter.Limit <= 0 || filter.Limit > defaultListLimit {
		filter.Limit = defaultListLimit
	}
	return s.repo.List(ctx, filter)
}

// Verify marks a report Confirmed. Verifying an already Confirmed report is a
// no-op and publishes nothing.
func (s *ReportService) Verify(ctx context.Context, id string) (*entities.Report, error) {
	mut, err := s.repo.SetStatus(ctx, id, entities.StatusConfirmed)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verify report %s: %w", id, err)
	}
	if mut.Before.IsConfirmed() {
		return mut.After, nil
	}

	s.logger.Info("report verified", zap.String("report_id", id))
	publish(ctx, s.sink, s.logger, entities.ReportWrite{
		ReportID: id,
		Before:   mut.Before,
		After:    mut.After,
	})
	return mut.After, nil
}

// Delete removes a report and all of its votes.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrReportNotFound
	}
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}

	s.logger.Info("report deleted", zap.String("report_id", id))
	publish(ctx, s.sink, s.logger, entities.ReportWrite{
		ReportID: id,
		Before:   deleted,
	})
	return nil
}
