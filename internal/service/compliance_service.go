package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/repository"
	"gymflow/gym-backend/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrNoActiveProgram       = errors.New("no active program for this client")
	ErrNoSessionScheduled    = errors.New("no session scheduled for this weekday")
	ErrSessionNotInProgram   = errors.New("session does not belong to this program")
	ErrProgramNotOwned       = errors.New("program does not belong to this client")
	ErrProgramInactive       = errors.New("program is not active")
	ErrNotProgramTrainer     = errors.New("program does not belong to this trainer")
	ErrRecordNotFound        = errors.New("compliance record not found")
	ErrRecordNotOwned        = errors.New("compliance record does not belong to this client")
	ErrReasonRequired        = errors.New("a non-completion reason is required when the session was not completed")
	ErrInvalidReason         = errors.New("invalid non-completion reason")
	ErrNotesRequired         = errors.New("notes are required when the reason is other")
	ErrWeekOutOfRange        = errors.New("week is outside the program's range")
	ErrDailyRecordConflict   = errors.New("a record for this day was created concurrently, retry")
	ErrInvalidProofType      = errors.New("proof uploads must be images")
	ErrProofUploadURLFailure = errors.New("failed to generate proof upload URL")
)

// ProofUploadResponse carries the presigned URL and the object key the client
// reports back on confirmation.
type ProofUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// --- Service Interface ---

// ComplianceService is the append/update ledger of per-session workout
// compliance. Every mutation that flips a record from not-completed to
// completed (and only those) feeds the progress tracker; every creation or
// transition that leaves a record not-completed triggers a best-effort miss
// notification after the ledger write commits.
type ComplianceService interface {
	// RecordDailyStatus is the daily shortcut: it resolves the active program's
	// session for the date's weekday and finds-or-updates the single record for
	// that calendar day.
	RecordDailyStatus(ctx context.Context, clientID primitive.ObjectID, date time.Time, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error)

	// RecordSessionLog is the explicit full-log variant with per-exercise
	// results. It always creates a new record; per-day deduplication does not
	// apply here.
	RecordSessionLog(ctx context.Context, clientID, programID, sessionID primitive.ObjectID, week int, results []domain.ExerciseResult, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error)

	// RecordSessionLogForClient is the trainer manual-entry variant: the
	// program's trainer logs a session on the client's behalf.
	RecordSessionLogForClient(ctx context.Context, trainerID, clientID, programID, sessionID primitive.ObjectID, week int, results []domain.ExerciseResult, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error)

	// UpdateRecordStatus is the client-owned correction of an existing record.
	UpdateRecordStatus(ctx context.Context, recordID, clientID primitive.ObjectID, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error)

	ListRecords(ctx context.Context, clientID primitive.ObjectID, filter repository.ComplianceFilter) ([]domain.ComplianceRecord, error)

	// Proof image upload (presigned URL flow).
	RequestProofUploadURL(ctx context.Context, clientID, recordID primitive.ObjectID, contentType string) (*ProofUploadResponse, error)
	ConfirmProofUpload(ctx context.Context, clientID, recordID primitive.ObjectID, objectKey string) (*domain.ComplianceRecord, error)
}

// --- Service Implementation ---

type complianceService struct {
	complianceRepo repository.ComplianceRepository
	programRepo    repository.ProgramRepository
	progress       ProgressService
	notifier       NotificationService
	tx             repository.TxRunner
	fileStorage    storage.FileStorage
	logger         *zap.Logger
}

// NewComplianceService creates a new instance of complianceService.
func NewComplianceService(
	complianceRepo repository.ComplianceRepository,
	programRepo repository.ProgramRepository,
	progress ProgressService,
	notifier NotificationService,
	tx repository.TxRunner,
	fileStorage storage.FileStorage,
	logger *zap.Logger,
) ComplianceService {
	return &complianceService{
		complianceRepo: complianceRepo,
		programRepo:    programRepo,
		progress:       progress,
		notifier:       notifier,
		tx:             tx,
		fileStorage:    fileStorage,
		logger:         logger,
	}
}

// validateReason enforces the reason/notes contract for not-completed records.
func validateReason(isCompleted bool, reason domain.NonCompletionReason, notes string) error {
	if isCompleted {
		return nil
	}
	if reason == "" {
		return ErrReasonRequired
	}
	if !reason.Valid() {
		return ErrInvalidReason
	}
	if reason == domain.ReasonOther && strings.TrimSpace(notes) == "" {
		return ErrNotesRequired
	}
	return nil
}

// truncateToDay normalizes a timestamp to the UTC calendar day it falls on.
func truncateToDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// === Daily status ===

// RecordDailyStatus finds-or-updates the one record per (client, program,
// session, calendar day). Resubmission for the same day updates in place,
// last write wins.
func (s *complianceService) RecordDailyStatus(ctx context.Context, clientID primitive.ObjectID, date time.Time, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error) {
	program, err := s.programRepo.GetActiveByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveProgram
		}
		return nil, err
	}

	day := truncateToDay(date)
	weekday := domain.WeekdayFromTime(day)
	session := program.SessionForDay(weekday)
	if session == nil {
		return nil, ErrNoSessionScheduled
	}

	if err := validateReason(isCompleted, reason, notes); err != nil {
		return nil, err
	}

	week := program.WeekFor(day)
	if week < 1 || week > program.TotalWeeks {
		return nil, ErrWeekOutOfRange
	}

	existing, err := s.complianceRepo.FindDaily(ctx, clientID, program.ID, session.ID, day)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		return s.applyStatusChange(ctx, existing, program, isCompleted, reason, notes)
	}

	record := &domain.ComplianceRecord{
		ClientID:    clientID,
		TrainerID:   program.TrainerID,
		ProgramID:   program.ID,
		SessionID:   session.ID,
		Week:        week,
		DayOfWeek:   weekday,
		CompletedAt: day,
		IsCompleted: isCompleted,
		Source:      domain.SourceDaily,
	}
	if !isCompleted {
		record.NonCompletionReason = reason
		record.NonCompletionNotes = notes
	}

	// Ledger write and the triggered tracker update commit as one unit.
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		id, err := s.complianceRepo.Create(txCtx, record)
		if err != nil {
			return err
		}
		record.ID = id
		if isCompleted {
			return s.progress.RecordCompletion(txCtx, program.ID, session.ID, week)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDailyRecordConflict
		}
		return nil, err
	}

	if !isCompleted {
		s.notifyMissAsync(program.TrainerID, clientID, program.ID, record.ID, reason, day)
	}
	return record, nil
}

// === Full session log ===

// RecordSessionLog always creates a new record; the daily dedupe contract does
// not apply to this entry point.
func (s *complianceService) RecordSessionLog(ctx context.Context, clientID, programID, sessionID primitive.ObjectID, week int, results []domain.ExerciseResult, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	if program.ClientID != clientID {
		return nil, ErrProgramNotOwned
	}
	return s.logSession(ctx, program, sessionID, week, results, isCompleted, reason, notes)
}

// RecordSessionLogForClient lets the program's trainer enter a session log
// manually on behalf of the client.
func (s *complianceService) RecordSessionLogForClient(ctx context.Context, trainerID, clientID, programID, sessionID primitive.ObjectID, week int, results []domain.ExerciseResult, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	if program.TrainerID != trainerID {
		return nil, ErrNotProgramTrainer
	}
	if program.ClientID != clientID {
		return nil, ErrProgramNotOwned
	}
	return s.logSession(ctx, program, sessionID, week, results, isCompleted, reason, notes)
}

// logSession creates a full-log ledger record on a program whose ownership has
// already been verified by the caller.
func (s *complianceService) logSession(ctx context.Context, program *domain.Program, sessionID primitive.ObjectID, week int, results []domain.ExerciseResult, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error) {
	if !program.IsActive {
		return nil, ErrProgramInactive
	}

	session := program.SessionByID(sessionID)
	if session == nil {
		return nil, ErrSessionNotInProgram
	}
	if week < 1 || week > program.TotalWeeks {
		return nil, ErrWeekOutOfRange
	}
	if err := validateReason(isCompleted, reason, notes); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.ComplianceRecord{
		ClientID:    program.ClientID,
		TrainerID:   program.TrainerID,
		ProgramID:   program.ID,
		SessionID:   sessionID,
		Week:        week,
		DayOfWeek:   session.DayOfWeek,
		CompletedAt: truncateToDay(now),
		IsCompleted: isCompleted,
		Source:      domain.SourceLog,
		Results:     results,
	}
	if !isCompleted {
		record.NonCompletionReason = reason
		record.NonCompletionNotes = notes
	}

	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		id, err := s.complianceRepo.Create(txCtx, record)
		if err != nil {
			return err
		}
		record.ID = id
		if isCompleted {
			return s.progress.RecordCompletion(txCtx, program.ID, sessionID, week)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !isCompleted {
		s.notifyMissAsync(program.TrainerID, program.ClientID, program.ID, record.ID, reason, record.CompletedAt)
	}
	return record, nil
}

// === Status correction ===

// UpdateRecordStatus lets a client amend a previously logged record. A
// false-to-true flip feeds the tracker; a true-to-false flip triggers a miss
// notification. The tracker is never decremented.
func (s *complianceService) UpdateRecordStatus(ctx context.Context, recordID, clientID primitive.ObjectID, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error) {
	record, err := s.complianceRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if record.ClientID != clientID {
		return nil, ErrRecordNotOwned
	}
	if err := validateReason(isCompleted, reason, notes); err != nil {
		return nil, err
	}

	program, err := s.programRepo.GetByID(ctx, record.ProgramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}

	return s.applyStatusChange(ctx, record, program, isCompleted, reason, notes)
}

// applyStatusChange persists a status mutation on an existing record and fires
// the transition triggers exactly once per transition.
func (s *complianceService) applyStatusChange(ctx context.Context, record *domain.ComplianceRecord, program *domain.Program, isCompleted bool, reason domain.NonCompletionReason, notes string) (*domain.ComplianceRecord, error) {
	wasCompleted := record.IsCompleted

	record.IsCompleted = isCompleted
	if isCompleted {
		record.NonCompletionReason = ""
		record.NonCompletionNotes = ""
	} else {
		record.NonCompletionReason = reason
		record.NonCompletionNotes = notes
	}

	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.complianceRepo.Update(txCtx, record); err != nil {
			return err
		}
		if !wasCompleted && isCompleted {
			return s.progress.RecordCompletion(txCtx, record.ProgramID, record.SessionID, record.Week)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if !isCompleted {
		s.notifyMissAsync(program.TrainerID, record.ClientID, record.ProgramID, record.ID, reason, record.CompletedAt)
	}
	return record, nil
}

// ListRecords retrieves a client's ledger entries with optional filters.
func (s *complianceService) ListRecords(ctx context.Context, clientID primitive.ObjectID, filter repository.ComplianceFilter) ([]domain.ComplianceRecord, error) {
	return s.complianceRepo.ListByClient(ctx, clientID, filter)
}

// === Proof uploads ===

// RequestProofUploadURL generates a presigned URL for a proof image upload.
func (s *complianceService) RequestProofUploadURL(ctx context.Context, clientID, recordID primitive.ObjectID, contentType string) (*ProofUploadResponse, error) {
	if contentType == "" || !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, ErrInvalidProofType
	}

	record, err := s.complianceRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if record.ClientID != clientID {
		return nil, ErrRecordNotOwned
	}

	ext := ""
	if parts := strings.Split(contentType, "/"); len(parts) == 2 {
		ext = parts[1]
	}
	objectKey := path.Join("proofs", clientID.Hex(), recordID.Hex(), fmt.Sprintf("%s.%s", uuid.NewString(), ext))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrProofUploadURLFailure
	}

	return &ProofUploadResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmProofUpload attaches the uploaded object key to the record. Called
// after the client has PUT the file to the presigned URL.
func (s *complianceService) ConfirmProofUpload(ctx context.Context, clientID, recordID primitive.ObjectID, objectKey string) (*domain.ComplianceRecord, error) {
	if objectKey == "" {
		return nil, errors.New("object key is required")
	}

	record, err := s.complianceRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if record.ClientID != clientID {
		return nil, ErrRecordNotOwned
	}

	if err := s.complianceRepo.SetProofRef(ctx, recordID, objectKey); err != nil {
		return nil, err
	}
	record.ProofRef = objectKey
	return record, nil
}

// notifyMissAsync dispatches the compliance-miss notification after the ledger
// write has committed. Best-effort: failure is logged and swallowed, and a
// crash may lose the notification without affecting ledger truth.
func (s *complianceService) notifyMissAsync(trainerID, clientID, programID, recordID primitive.ObjectID, reason domain.NonCompletionReason, day time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.NotifyMiss(ctx, trainerID, clientID, programID, recordID, reason, day); err != nil {
			s.logger.Warn("miss notification dispatch failed",
				zap.String("record", recordID.Hex()),
				zap.Error(err),
			)
		}
	}()
}
