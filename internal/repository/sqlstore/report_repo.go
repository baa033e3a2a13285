package sqlstore

import (
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"

	"geosafe/internal/domain/entities"
	"geosafe/internal/repository"
)

// ReportRepository implements repository.ReportRepository and
// repository.VoteStore on one *gorm.DB so votes and counters share
// transactions.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *entities.Report) error {
	err := r.db.WithContext(ctx).Create(newReportRow(report)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrAlreadyExists
	}
	return err
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*entities.Report, error) {
	return findReport(r.db.WithContext(ctx), id)
}

func (r *ReportRepository) List(ctx context.Context, filter entities.ReportFilter) ([]*entities.Report, error) {
	q := r.db.WithContext(ctx).Model(&reportRow{})
	if filter.ReporterID != "" {
		q = q.Where("reporter_id = ?", filter.ReporterID)
	}
	if len(filter.Categories) > 0 {
		q = q.Where("category IN ?", filter.Categories)
	}
	if len(filter.Statuses) > 0 {
		statuses := filter.Statuses
		// Rows written without a status read back as Unconfirmed.
		if slices.Contains(statuses, entities.StatusUnconfirmed) {
			statuses = append(slices.Clone(statuses), "")
		}
		q = q.Where("status IN ?", statuses)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []reportRow
	if err := q.Order("created_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	reports := make([]*entities.Report, len(rows))
	for i := range rows {
		reports[i] = rows[i].entity()
	}
	return reports, nil
}

func (r *ReportRepository) SetStatus(ctx context.Context, id string, status entities.ReportStatus) (repository.ReportMutation, error) {
	var mut repository.ReportMutation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := findReport(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&reportRow{}).Where("id = ?", id).UpdateColumn("status", string(status)).Error; err != nil {
			return err
		}
		after, err := findReport(tx, id)
		if err != nil {
			return err
		}
		mut = repository.ReportMutation{Before: before, After: after}
		return nil
	})
	return mut, err
}

// Delete removes the report's votes and then the report in one transaction.
func (r *ReportRepository) Delete(ctx context.Context, id string) (*entities.Report, error) {
	var deleted *entities.Report
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := findReport(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&voteRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&reportRow{}).Error; err != nil {
			return err
		}
		deleted = report
		return nil
	})
	return deleted, err
}

func findReport(tx *gorm.DB, id string) (*entities.Report, error) {
	var row reportRow
	if err := tx.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.entity(), nil
}
