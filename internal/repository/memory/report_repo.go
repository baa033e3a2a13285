package memory

import (
	"context"
	"sort"
	"sync"

	"geosafe/internal/domain/entities"
	"geosafe/internal/repository"
)

// ReportRepository stores reports and their votes in memory. Both live behind
// one mutex so that a vote insert and its counter increment, or a report
// delete and its vote cascade, are a single critical section.
//
// It implements repository.ReportRepository and repository.VoteStore.
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*entities.Report
	votes   map[voteKey]*entities.Vote
}

// voteKey is the composite identity of a ballot.
type voteKey struct {
	reportID string
	voterID  string
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		reports: make(map[string]*entities.Report),
		votes:   make(map[voteKey]*entities.Vote),
	}
}

func (r *ReportRepository) Create(ctx context.Context, report *entities.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[report.ID]; exists {
		return repository.ErrAlreadyExists
	}
	r.reports[report.ID] = report.Clone()
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*entities.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, exists := r.reports[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return report.Clone(), nil
}

// List is an O(n) scan followed by a sort on CreatedAt.
func (r *ReportRepository) List(ctx context.Context, filter entities.ReportFilter) ([]*entities.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reports := make([]*entities.Report, 0, len(r.reports))
	for _, report := range r.reports {
		if filter.Matches(report) {
			reports = append(reports, report.Clone())
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].CreatedAt.After(reports[j].CreatedAt)
		}
		return reports[i].ID < reports[j].ID
	})
	if filter.Limit > 0 && len(reports) > filter.Limit {
		reports = reports[:filter.Limit]
	}
	return reports, nil
}

func (r *ReportRepository) SetStatus(ctx context.Context, id string, status entities.ReportStatus) (repository.ReportMutation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, exists := r.reports[id]
	if !exists {
		return repository.ReportMutation{}, repository.ErrNotFound
	}
	before := report.Clone()
	report.Status = status
	return repository.ReportMutation{Before: before, After: report.Clone()}, nil
}

func (r *ReportRepository) Delete(ctx context.Context, id string) (*entities.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, exists := r.reports[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	delete(r.reports, id)
	for key, vote := range r.votes {
		if vote.ReportID == id {
			delete(r.votes, key)
		}
	}
	return report, nil
}
