package memory

import (
	"context"
	"fmt"

	"geosafe/internal/domain/entities"
	"geosafe/internal/repository"
)

// CastVote performs the conditional insert and the counter increment while
// holding the write lock, so concurrent duplicates cannot both pass the
// existence check.
func (r *ReportRepository) CastVote(ctx context.Context, vote *entities.Vote) (repository.ReportMutation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, exists := r.reports[vote.ReportID]
	if !exists {
		return repository.ReportMutation{}, repository.ErrNotFound
	}
	key := voteKey{reportID: vote.ReportID, voterID: vote.VoterID}
	if _, voted := r.votes[key]; voted {
		return repository.ReportMutation{}, repository.ErrAlreadyVoted
	}

	before := report.Clone()
	switch vote.Type {
	case entities.VoteConfirm:
		report.ConfirmVotes++
	case entities.VoteDeny:
		report.DenyVotes++
	default:
		return repository.ReportMutation{}, fmt.Errorf("%w: %v", entities.ErrInvalidVoteType, vote.Type)
	}
	stored := *vote
	r.votes[key] = &stored

	return repository.ReportMutation{Before: before, After: report.Clone()}, nil
}

func (r *ReportRepository) GetVote(ctx context.Context, reportID, voterID string) (*entities.Vote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vote, exists := r.votes[voteKey{reportID: reportID, voterID: voterID}]
	if !exists {
		return nil, repository.ErrNotFound
	}
	v := *vote
	return &v, nil
}

func (r *ReportRepository) CountVotes(ctx context.Context, reportID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, vote := range r.votes {
		if vote.ReportID == reportID {
			n++
		}
	}
	return n, nil
}
