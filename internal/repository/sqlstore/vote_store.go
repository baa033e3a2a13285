package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geosafe/internal/domain/entities"
	"geosafe/internal/repository"
)

// counterColumn maps a ballot to the report column it increments.
func counterColumn(t entities.VoteType) (string, error) {
	switch t {
	case entities.VoteConfirm:
		return "confirm_votes", nil
	case entities.VoteDeny:
		return "deny_votes", nil
	}
	return "", fmt.Errorf("%w: %v", entities.ErrInvalidVoteType, t)
}

// CastVote runs the conditional insert and the delta increment in one
// transaction. The insert uses ON CONFLICT DO NOTHING on the (report_id,
// voter_id) primary key, so a concurrent duplicate affects zero rows instead
// of racing a read-then-write check.
func (r *ReportRepository) CastVote(ctx context.Context, vote *entities.Vote) (repository.ReportMutation, error) {
	column, err := counterColumn(vote.Type)
	if err != nil {
		return repository.ReportMutation{}, err
	}

	var mut repository.ReportMutation
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := findReport(tx, vote.ReportID)
		if err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&voteRow{
			ReportID:  vote.ReportID,
			VoterID:   vote.VoterID,
			VoteType:  vote.Type.String(),
			CreatedAt: vote.CreatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrAlreadyVoted
		}

		res = tx.Model(&reportRow{}).
			Where("id = ?", vote.ReportID).
			UpdateColumn(column, gorm.Expr(column+" + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}

		after, err := findReport(tx, vote.ReportID)
		if err != nil {
			return err
		}
		mut = repository.ReportMutation{Before: before, After: after}
		return nil
	})
	return mut, err
}

func (r *ReportRepository) GetVote(ctx context.Context, reportID, voterID string) (*entities.Vote, error) {
	var row voteRow
	err := r.db.WithContext(ctx).
		Where("report_id = ? AND voter_id = ?", reportID, voterID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	t, err := entities.ParseVoteType(row.VoteType)
	if err != nil {
		return nil, err
	}
	return &entities.Vote{ReportID: row.ReportID, VoterID: row.VoterID, Type: t, CreatedAt: row.CreatedAt}, nil
}

func (r *ReportRepository) CountVotes(ctx context.Context, reportID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&voteRow{}).Where("report_id = ?", reportID).Count(&n).Error
	return int(n), err
}
