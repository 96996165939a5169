package service

import (
	"context"
	"errors"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrProgramNotFound = errors.New("program not found")
)

// ProgramStats is the read projection of a program's progress aggregate.
type ProgramStats struct {
	TotalPlanned         int                          `json:"totalPlanned"`
	TotalCompleted       int                          `json:"totalCompleted"`
	CompletionRate       int                          `json:"completionRate"`
	CurrentWeek          int                          `json:"currentWeek"`
	TotalWeeks           int                          `json:"totalWeeks"`
	Frequency            int                          `json:"frequency"`
	IsActive             bool                         `json:"isActive"`
	LastCompletedSession *domain.LastCompletedSession `json:"lastCompletedSession,omitempty"`
}

// --- Service Interface ---

// ProgressService maintains the aggregate completion counters for a workout
// program. RecordCompletion only ever increments: a later "uncompleted"
// correction on the ledger does not roll the counter back.
type ProgressService interface {
	RecordCompletion(ctx context.Context, programID, sessionID primitive.ObjectID, week int) error
	Stats(ctx context.Context, programID primitive.ObjectID) (*ProgramStats, error)
	AdvanceWeek(ctx context.Context, programID primitive.ObjectID) error
}

// --- Service Implementation ---

type progressService struct {
	programRepo repository.ProgramRepository
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(programRepo repository.ProgramRepository) ProgressService {
	return &progressService{programRepo: programRepo}
}

// RecordCompletion bumps totalCompleted by exactly one, stamps the
// last-completed pointer and recomputes the completion rate from the
// post-increment counters.
func (s *progressService) RecordCompletion(ctx context.Context, programID, sessionID primitive.ObjectID, week int) error {
	last := domain.LastCompletedSession{
		SessionID:   sessionID,
		Week:        week,
		CompletedAt: time.Now().UTC(),
	}
	program, err := s.programRepo.IncrementCompleted(ctx, programID, last)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProgramNotFound
		}
		return err
	}

	rate := domain.CompletionRate(program.Progress.TotalCompleted, program.Progress.TotalPlanned)
	return s.programRepo.SetCompletionRate(ctx, programID, rate)
}

// Stats projects the program's progress aggregate. Pure read.
func (s *progressService) Stats(ctx context.Context, programID primitive.ObjectID) (*ProgramStats, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}

	return &ProgramStats{
		TotalPlanned:         program.Progress.TotalPlanned,
		TotalCompleted:       program.Progress.TotalCompleted,
		CompletionRate:       program.Progress.CompletionRate,
		CurrentWeek:          program.CurrentWeek,
		TotalWeeks:           program.TotalWeeks,
		Frequency:            program.Frequency,
		IsActive:             program.IsActive,
		LastCompletedSession: program.Progress.LastCompletedSession,
	}, nil
}

// AdvanceWeek bumps the program's current week, capped at totalWeeks.
func (s *progressService) AdvanceWeek(ctx context.Context, programID primitive.ObjectID) error {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProgramNotFound
		}
		return err
	}
	if program.CurrentWeek >= program.TotalWeeks {
		return nil
	}
	return s.programRepo.SetCurrentWeek(ctx, programID, program.CurrentWeek+1)
}
