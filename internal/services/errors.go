package services

import (
	"errors"

	"geosafe/internal/repository"
)

var (
	ErrNotAuthenticated = errors.New("sign in required")
	ErrReportNotFound   = errors.New("report not found")
	ErrVoteNotFound     = errors.New("vote not found")
	ErrAlreadyVoted     = repository.ErrAlreadyVoted
	// ErrDirectoryUnavailable means no covering-box scan succeeded, so the
	// cycle cannot know who to alert.
	ErrDirectoryUnavailable = errors.New("subscriber directory unavailable")
)
