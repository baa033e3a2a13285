package entities

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidVoteType = errors.New("vote type must be confirm or deny")

// VoteType is the closed set of ballots. The zero value is not a valid vote,
// so an unparsed VoteType can never reach storage.
type VoteType uint8

const (
	VoteConfirm VoteType = iota + 1
	VoteDeny
)

// ParseVoteType resolves the wire name of a ballot.
func ParseVoteType(s string) (VoteType, error) {
	switch s {
	case "confirm":
		return VoteConfirm, nil
	case "deny":
		return VoteDeny, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidVoteType, s)
}

func (v VoteType) String() string {
	switch v {
	case VoteConfirm:
		return "confirm"
	case VoteDeny:
		return "deny"
	}
	return fmt.Sprintf("VoteType(%d)", uint8(v))
}

func (v VoteType) MarshalText() ([]byte, error) {
	if v != VoteConfirm && v != VoteDeny {
		return nil, ErrInvalidVoteType
	}
	return []byte(v.String()), nil
}

func (v *VoteType) UnmarshalText(text []byte) error {
	parsed, err := ParseVoteType(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Vote records one user's ballot on one report. (ReportID, VoterID) is unique.
type Vote struct {
	ReportID  string    `json:"reportId"`
	VoterID   string    `json:"voterId"`
	Type      VoteType  `json:"voteType"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewVote stamps a ballot with the current time.
func NewVote(reportID, voterID string, t VoteType) *Vote {
	return &Vote{
		ReportID:  reportID,
		VoterID:   voterID,
		Type:      t,
		CreatedAt: time.Now().UTC(),
	}
}
