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
	ErrClientNotAssigned  = errors.New("client is not assigned to this trainer")
	ErrProgramAccess      = errors.New("access denied to this program")
	ErrInvalidFrequency   = errors.New("frequency must be 3, 4 or 5 sessions per week")
	ErrInvalidTotalWeeks  = errors.New("totalWeeks must be at least 1")
	ErrTooManySessions    = errors.New("session count exceeds the weekly frequency")
	ErrNoSessions         = errors.New("at least one scheduled session is required")
	ErrDuplicateWeekday   = errors.New("each weekday may carry at most one session")
	ErrInvalidWeekday     = errors.New("dayOfWeek must be a lowercase English weekday name")
)

// SessionInput describes one scheduled session at creation/replacement time.
type SessionInput struct {
	Name      string                   `json:"name"`
	DayOfWeek domain.Weekday           `json:"dayOfWeek"`
	Exercises []domain.SessionExercise `json:"exercises"`
}

// CreateProgramInput bundles the program creation payload.
type CreateProgramInput struct {
	ClientID    primitive.ObjectID
	Name        string
	Description string
	Frequency   int
	TotalWeeks  int
	StartDate   time.Time
	Sessions    []SessionInput
}

// --- Service Interface ---

// ProgramService manages workout programs. Programs are owned by the trainer
// who created them; only the client's currently assigned trainer may create or
// modify that client's programs.
type ProgramService interface {
	CreateProgram(ctx context.Context, trainerID primitive.ObjectID, input CreateProgramInput) (*domain.Program, error)
	GetProgram(ctx context.Context, callerID primitive.ObjectID, programID primitive.ObjectID) (*domain.Program, error)
	ListClientPrograms(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]domain.Program, error)
	ReplaceSessions(ctx context.Context, trainerID, programID primitive.ObjectID, sessions []SessionInput) (*domain.Program, error)
	DeactivateProgram(ctx context.Context, trainerID, programID primitive.ObjectID) error
}

// --- Service Implementation ---

type programService struct {
	programRepo repository.ProgramRepository
	userRepo    repository.UserRepository
}

// NewProgramService creates a new instance of programService.
func NewProgramService(programRepo repository.ProgramRepository, userRepo repository.UserRepository) ProgramService {
	return &programService{
		programRepo: programRepo,
		userRepo:    userRepo,
	}
}

// validateSessions checks the session set against the weekly frequency.
func validateSessions(sessions []SessionInput, frequency int) ([]domain.ScheduledSession, error) {
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}
	if len(sessions) > frequency {
		return nil, ErrTooManySessions
	}

	seen := make(map[domain.Weekday]bool, len(sessions))
	out := make([]domain.ScheduledSession, 0, len(sessions))
	for _, in := range sessions {
		if !in.DayOfWeek.Valid() {
			return nil, ErrInvalidWeekday
		}
		if seen[in.DayOfWeek] {
			return nil, ErrDuplicateWeekday
		}
		seen[in.DayOfWeek] = true
		out = append(out, domain.ScheduledSession{
			ID:        primitive.NewObjectID(),
			Name:      in.Name,
			DayOfWeek: in.DayOfWeek,
			Exercises: in.Exercises,
		})
	}
	return out, nil
}

// CreateProgram creates and activates a program for an assigned client,
// deactivating any previously active one. totalPlanned is fixed here as
// sessionCount x totalWeeks.
func (s *programService) CreateProgram(ctx context.Context, trainerID primitive.ObjectID, input CreateProgramInput) (*domain.Program, error) {
	if input.Frequency < 3 || input.Frequency > 5 {
		return nil, ErrInvalidFrequency
	}
	if input.TotalWeeks < 1 {
		return nil, ErrInvalidTotalWeeks
	}

	client, err := s.userRepo.GetByID(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientUserNotFound
		}
		return nil, err
	}
	if client.AssignedTrainerID == nil || *client.AssignedTrainerID != trainerID {
		return nil, ErrClientNotAssigned
	}

	sessions, err := validateSessions(input.Sessions, input.Frequency)
	if err != nil {
		return nil, err
	}

	startDate := input.StartDate
	if startDate.IsZero() {
		startDate = time.Now().UTC()
	}

	program := &domain.Program{
		TrainerID:   trainerID,
		ClientID:    input.ClientID,
		Name:        input.Name,
		Description: input.Description,
		Frequency:   input.Frequency,
		Sessions:    sessions,
		StartDate:   startDate.UTC().Truncate(24 * time.Hour),
		CurrentWeek: 1,
		TotalWeeks:  input.TotalWeeks,
		IsActive:    true,
		Progress: domain.Progress{
			TotalPlanned:   len(sessions) * input.TotalWeeks,
			TotalCompleted: 0,
			CompletionRate: 0,
		},
	}

	// One active program per client: retire the old one first.
	if err := s.programRepo.DeactivateActiveByClient(ctx, input.ClientID); err != nil {
		return nil, err
	}

	id, err := s.programRepo.Create(ctx, program)
	if err != nil {
		return nil, err
	}
	program.ID = id
	return program, nil
}

// GetProgram retrieves a program for its client or its owning trainer.
func (s *programService) GetProgram(ctx context.Context, callerID, programID primitive.ObjectID) (*domain.Program, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	if program.ClientID != callerID && program.TrainerID != callerID {
		return nil, ErrProgramAccess
	}
	return program, nil
}

// ListClientPrograms retrieves a client's programs for their assigned trainer.
func (s *programService) ListClientPrograms(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]domain.Program, error) {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientUserNotFound
		}
		return nil, err
	}
	if client.AssignedTrainerID == nil || *client.AssignedTrainerID != trainerID {
		return nil, ErrClientNotAssigned
	}
	return s.programRepo.GetByClientID(ctx, clientID)
}

// ReplaceSessions swaps the program's session set and re-fixes totalPlanned to
// the new sessionCount x totalWeeks.
func (s *programService) ReplaceSessions(ctx context.Context, trainerID, programID primitive.ObjectID, sessions []SessionInput) (*domain.Program, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	if program.TrainerID != trainerID {
		return nil, ErrProgramAccess
	}

	validated, err := validateSessions(sessions, program.Frequency)
	if err != nil {
		return nil, err
	}

	totalPlanned := len(validated) * program.TotalWeeks
	if err := s.programRepo.ReplaceSessions(ctx, programID, validated, totalPlanned); err != nil {
		return nil, err
	}

	program.Sessions = validated
	program.Progress.TotalPlanned = totalPlanned
	return program, nil
}

// DeactivateProgram soft-deactivates a program owned by the trainer.
func (s *programService) DeactivateProgram(ctx context.Context, trainerID, programID primitive.ObjectID) error {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProgramNotFound
		}
		return err
	}
	if program.TrainerID != trainerID {
		return ErrProgramAccess
	}
	return s.programRepo.Deactivate(ctx, programID)
}
