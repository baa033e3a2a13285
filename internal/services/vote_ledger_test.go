package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
	"geosafe/internal/repository/memory"
)

func setupVoteLedger(t *testing.T) (*VoteLedger, *memory.ReportRepository, *recordingSink) {
	t.Helper()
	repo := memory.NewReportRepository()
	require.NoError(t, repo.Create(context.Background(), entities.NewReport("r1", "Crash", entities.CategoryAccident, penangIncident, "alice")))
	sink := &recordingSink{}
	return NewVoteLedger(repo, sink, zap.NewNop(), nil), repo, sink
}

func TestVoteLedger_CastVote(t *testing.T) {
	ledger, repo, sink := setupVoteLedger(t)
	ctx := context.Background()

	receipt, err := ledger.CastVote(ctx, "r1", "bob", "confirm")
	require.NoError(t, err)
	assert.Equal(t, entities.VoteConfirm, receipt.Vote.Type)
	assert.Equal(t, 1, receipt.Report.ConfirmVotes)

	writes := sink.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, 0, writes[0].Before.ConfirmVotes)
	assert.Equal(t, 1, writes[0].After.ConfirmVotes)

	_, err = ledger.CastVote(ctx, "r1", "carol", "deny")
	require.NoError(t, err)

	report, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.ConfirmVotes)
	assert.Equal(t, 1, report.DenyVotes)
	assert.Equal(t, entities.StatusUnconfirmed, report.Status, "votes never change status")

	vote, err := ledger.GetVote(ctx, "r1", "carol")
	require.NoError(t, err)
	assert.Equal(t, entities.VoteDeny, vote.Type)
}

func TestVoteLedger_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		reportID string
		voterID  string
		voteType string
		wantErr  error
	}{
		{name: "guest", reportID: "r1", voterID: entities.GuestReporter, voteType: "confirm", wantErr: ErrNotAuthenticated},
		{name: "anonymous", reportID: "r1", voterID: "", voteType: "confirm", wantErr: ErrNotAuthenticated},
		{name: "bad ballot", reportID: "r1", voterID: "bob", voteType: "maybe", wantErr: entities.ErrInvalidVoteType},
		{name: "missing report", reportID: "ghost", voterID: "bob", voteType: "deny", wantErr: ErrReportNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, _, sink := setupVoteLedger(t)
			_, err := ledger.CastVote(context.Background(), tt.reportID, tt.voterID, tt.voteType)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, sink.Writes())
		})
	}
}

func TestVoteLedger_SecondVoteRejected(t *testing.T) {
	ledger, repo, sink := setupVoteLedger(t)
	ctx := context.Background()

	_, err := ledger.CastVote(ctx, "r1", "bob", "confirm")
	require.NoError(t, err)
	_, err = ledger.CastVote(ctx, "r1", "bob", "deny")
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	report, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.ConfirmVotes)
	assert.Zero(t, report.DenyVotes)
	assert.Len(t, sink.Writes(), 1)

	_, err = ledger.GetVote(ctx, "r1", "nobody")
	assert.ErrorIs(t, err, ErrVoteNotFound)
}
