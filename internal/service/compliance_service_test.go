package service

import (
	"context"
	"testing"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MockProgressService is a mock type for the ProgressService interface
type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) RecordCompletion(ctx context.Context, programID, sessionID primitive.ObjectID, week int) error {
	args := m.Called(ctx, programID, sessionID, week)
	return args.Error(0)
}

func (m *MockProgressService) Stats(ctx context.Context, programID primitive.ObjectID) (*ProgramStats, error) {
	args := m.Called(ctx, programID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProgramStats), args.Error(1)
}

func (m *MockProgressService) AdvanceWeek(ctx context.Context, programID primitive.ObjectID) error {
	args := m.Called(ctx, programID)
	return args.Error(0)
}

// mondayDate falls on the program's start, so WeekFor yields week 1.
var mondayDate = time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC) // a Monday

func newActiveProgram(clientID primitive.ObjectID) *domain.Program {
	return &domain.Program{
		ID:        primitive.NewObjectID(),
		TrainerID: primitive.NewObjectID(),
		ClientID:  clientID,
		Name:      "Strength Block A",
		Frequency: 3,
		Sessions: []domain.ScheduledSession{
			{ID: primitive.NewObjectID(), Name: "Upper", DayOfWeek: domain.Monday},
			{ID: primitive.NewObjectID(), Name: "Lower", DayOfWeek: domain.Wednesday},
			{ID: primitive.NewObjectID(), Name: "Full", DayOfWeek: domain.Friday},
		},
		StartDate:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		CurrentWeek: 1,
		TotalWeeks:  8,
		IsActive:    true,
		Progress:    domain.Progress{TotalPlanned: 24},
	}
}

func newComplianceFixture() (*MockComplianceRepository, *MockProgramRepository, *MockProgressService, *recordingNotifier, ComplianceService) {
	complianceRepo := new(MockComplianceRepository)
	programRepo := new(MockProgramRepository)
	progress := new(MockProgressService)
	notifier := newRecordingNotifier()
	svc := NewComplianceService(complianceRepo, programRepo, progress, notifier, passthroughTx{}, new(MockFileStorage), zap.NewNop())
	return complianceRepo, programRepo, progress, notifier, svc
}

func TestComplianceService_RecordDailyStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("completed day creates one record and feeds the tracker", func(t *testing.T) {
		complianceRepo, programRepo, progress, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		session := program.Sessions[0] // Monday

		programRepo.On("GetActiveByClientID", ctx, clientID).Return(program, nil).Once()
		complianceRepo.On("FindDaily", ctx, clientID, program.ID, session.ID, mock.AnythingOfType("time.Time")).
			Return(nil, repository.ErrNotFound).Once()
		recordID := primitive.NewObjectID()
		complianceRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ComplianceRecord")).
			Return(recordID, nil).Once()
		progress.On("RecordCompletion", mock.Anything, program.ID, session.ID, 1).Return(nil).Once()

		record, err := svc.RecordDailyStatus(ctx, clientID, mondayDate, true, "", "")

		require.NoError(t, err)
		assert.Equal(t, recordID, record.ID)
		assert.True(t, record.IsCompleted)
		assert.Equal(t, domain.SourceDaily, record.Source)
		assert.Equal(t, domain.Monday, record.DayOfWeek)
		assert.Equal(t, 1, record.Week)
		// The covered day is normalized to UTC midnight.
		assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), record.CompletedAt)
		progress.AssertExpectations(t)
	})

	t.Run("resubmission for the same day updates in place", func(t *testing.T) {
		complianceRepo, programRepo, progress, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		session := program.Sessions[0]
		existing := &domain.ComplianceRecord{
			ID:          primitive.NewObjectID(),
			ClientID:    clientID,
			ProgramID:   program.ID,
			SessionID:   session.ID,
			Week:        1,
			DayOfWeek:   domain.Monday,
			CompletedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			IsCompleted: true,
			Source:      domain.SourceDaily,
		}

		programRepo.On("GetActiveByClientID", ctx, clientID).Return(program, nil).Once()
		complianceRepo.On("FindDaily", ctx, clientID, program.ID, session.ID, mock.AnythingOfType("time.Time")).
			Return(existing, nil).Once()
		complianceRepo.On("Update", mock.Anything, existing).Return(nil).Once()

		record, err := svc.RecordDailyStatus(ctx, clientID, mondayDate, true, "", "")

		require.NoError(t, err)
		assert.Equal(t, existing.ID, record.ID)
		// Last write wins on the existing record; no second record is created.
		complianceRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		// Already completed, so the tracker is not fed again.
		progress.AssertNotCalled(t, "RecordCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("racing double-create surfaces as a conflict", func(t *testing.T) {
		complianceRepo, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		session := program.Sessions[0]

		programRepo.On("GetActiveByClientID", ctx, clientID).Return(program, nil).Once()
		complianceRepo.On("FindDaily", ctx, clientID, program.ID, session.ID, mock.AnythingOfType("time.Time")).
			Return(nil, repository.ErrNotFound).Once()
		complianceRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ComplianceRecord")).
			Return(primitive.NilObjectID, repository.ErrDuplicate).Once()

		_, err := svc.RecordDailyStatus(ctx, clientID, mondayDate, true, "", "")
		assert.ErrorIs(t, err, ErrDailyRecordConflict)
	})

	t.Run("a miss requires a reason and dispatches one notification", func(t *testing.T) {
		complianceRepo, programRepo, progress, notifier, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		session := program.Sessions[0]

		programRepo.On("GetActiveByClientID", ctx, clientID).Return(program, nil).Once()
		complianceRepo.On("FindDaily", ctx, clientID, program.ID, session.ID, mock.AnythingOfType("time.Time")).
			Return(nil, repository.ErrNotFound).Once()
		recordID := primitive.NewObjectID()
		complianceRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ComplianceRecord")).
			Return(recordID, nil).Once()

		record, err := svc.RecordDailyStatus(ctx, clientID, mondayDate, false, domain.ReasonInjury, "")

		require.NoError(t, err)
		assert.False(t, record.IsCompleted)
		assert.Equal(t, domain.ReasonInjury, record.NonCompletionReason)

		// The miss notification is fire-and-forget; wait for the goroutine.
		require.True(t, notifier.waitForSignal(2*time.Second), "expected a miss notification")
		calls := notifier.MissCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, program.TrainerID, calls[0].TrainerID)
		assert.Equal(t, recordID, calls[0].RecordID)
		assert.Equal(t, domain.ReasonInjury, calls[0].Reason)

		// A miss never feeds the tracker.
		progress.AssertNotCalled(t, "RecordCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a miss without a reason is rejected", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		programRepo.On("GetActiveByClientID", ctx, clientID).Return(program, nil).Once()

		_, err := svc.RecordDailyStatus(ctx, clientID, mondayDate, false, "", "")
		assert.ErrorIs(t, err, ErrReasonRequired)
	})

	t.Run("reason other requires notes", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		programRepo.On("GetActiveByClientID", ctx, clientID).Return(program, nil).Once()

		_, err := svc.RecordDailyStatus(ctx, clientID, mondayDate, false, domain.ReasonOther, "  ")
		assert.ErrorIs(t, err, ErrNotesRequired)
	})

	t.Run("no session scheduled on that weekday", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		programRepo.On("GetActiveByClientID", ctx, clientID).Return(program, nil).Once()

		tuesday := mondayDate.AddDate(0, 0, 1)
		_, err := svc.RecordDailyStatus(ctx, clientID, tuesday, true, "", "")
		assert.ErrorIs(t, err, ErrNoSessionScheduled)
	})

	t.Run("no active program", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		programRepo.On("GetActiveByClientID", ctx, clientID).Return(nil, repository.ErrNotFound).Once()

		_, err := svc.RecordDailyStatus(ctx, clientID, mondayDate, true, "", "")
		assert.ErrorIs(t, err, ErrNoActiveProgram)
	})

	t.Run("date before the program start is out of range", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		programRepo.On("GetActiveByClientID", ctx, clientID).Return(program, nil).Once()

		before := program.StartDate.AddDate(0, 0, -7) // the Monday before
		_, err := svc.RecordDailyStatus(ctx, clientID, before, true, "", "")
		assert.ErrorIs(t, err, ErrWeekOutOfRange)
	})
}

func TestComplianceService_RecordSessionLog(t *testing.T) {
	ctx := context.Background()

	t.Run("always creates a new record, even on a day with a daily record", func(t *testing.T) {
		complianceRepo, programRepo, progress, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		session := program.Sessions[1]
		results := []domain.ExerciseResult{{Name: "Squat", SetsDone: 5, RepsDone: "5,5,5,5,4"}}

		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()
		recordID := primitive.NewObjectID()
		complianceRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.ComplianceRecord) bool {
			return r.Source == domain.SourceLog && len(r.Results) == 1
		})).Return(recordID, nil).Once()
		progress.On("RecordCompletion", mock.Anything, program.ID, session.ID, 2).Return(nil).Once()

		record, err := svc.RecordSessionLog(ctx, clientID, program.ID, session.ID, 2, results, true, "", "")

		require.NoError(t, err)
		assert.Equal(t, recordID, record.ID)
		// The daily dedupe lookup never runs on this path.
		complianceRepo.AssertNotCalled(t, "FindDaily", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a program owned by another client", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		program := newActiveProgram(primitive.NewObjectID())
		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()

		_, err := svc.RecordSessionLog(ctx, primitive.NewObjectID(), program.ID, program.Sessions[0].ID, 1, nil, true, "", "")
		assert.ErrorIs(t, err, ErrProgramNotOwned)
	})

	t.Run("rejects a session foreign to the program", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()

		_, err := svc.RecordSessionLog(ctx, clientID, program.ID, primitive.NewObjectID(), 1, nil, true, "", "")
		assert.ErrorIs(t, err, ErrSessionNotInProgram)
	})

	t.Run("rejects an inactive program", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		program.IsActive = false
		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()

		_, err := svc.RecordSessionLog(ctx, clientID, program.ID, program.Sessions[0].ID, 1, nil, true, "", "")
		assert.ErrorIs(t, err, ErrProgramInactive)
	})

	t.Run("rejects a week beyond the program range", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()

		_, err := svc.RecordSessionLog(ctx, clientID, program.ID, program.Sessions[0].ID, 9, nil, true, "", "")
		assert.ErrorIs(t, err, ErrWeekOutOfRange)
	})
}

func TestComplianceService_RecordSessionLogForClient(t *testing.T) {
	ctx := context.Background()

	t.Run("the program's trainer logs on the client's behalf", func(t *testing.T) {
		complianceRepo, programRepo, progress, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		session := program.Sessions[0]

		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()
		recordID := primitive.NewObjectID()
		complianceRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.ComplianceRecord) bool {
			return r.ClientID == clientID && r.TrainerID == program.TrainerID && r.Source == domain.SourceLog
		})).Return(recordID, nil).Once()
		progress.On("RecordCompletion", mock.Anything, program.ID, session.ID, 1).Return(nil).Once()

		record, err := svc.RecordSessionLogForClient(ctx, program.TrainerID, clientID, program.ID, session.ID, 1, nil, true, "", "")

		require.NoError(t, err)
		assert.Equal(t, recordID, record.ID)
		// The ledger row belongs to the client even though the trainer wrote it.
		assert.Equal(t, clientID, record.ClientID)
		progress.AssertExpectations(t)
	})

	t.Run("refuses a trainer who does not own the program", func(t *testing.T) {
		complianceRepo, programRepo, _, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()

		_, err := svc.RecordSessionLogForClient(ctx, primitive.NewObjectID(), clientID, program.ID, program.Sessions[0].ID, 1, nil, true, "", "")

		assert.ErrorIs(t, err, ErrNotProgramTrainer)
		complianceRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("refuses a client who is not on the program", func(t *testing.T) {
		_, programRepo, _, _, svc := newComplianceFixture()

		program := newActiveProgram(primitive.NewObjectID())
		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()

		_, err := svc.RecordSessionLogForClient(ctx, program.TrainerID, primitive.NewObjectID(), program.ID, program.Sessions[0].ID, 1, nil, true, "", "")
		assert.ErrorIs(t, err, ErrProgramNotOwned)
	})
}

func TestComplianceService_UpdateRecordStatus(t *testing.T) {
	ctx := context.Background()

	newRecord := func(clientID primitive.ObjectID, program *domain.Program, completed bool) *domain.ComplianceRecord {
		return &domain.ComplianceRecord{
			ID:          primitive.NewObjectID(),
			ClientID:    clientID,
			TrainerID:   program.TrainerID,
			ProgramID:   program.ID,
			SessionID:   program.Sessions[0].ID,
			Week:        1,
			DayOfWeek:   domain.Monday,
			CompletedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			IsCompleted: completed,
			Source:      domain.SourceDaily,
		}
	}

	t.Run("flipping to completed feeds the tracker once", func(t *testing.T) {
		complianceRepo, programRepo, progress, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		record := newRecord(clientID, program, false)
		record.NonCompletionReason = domain.ReasonIllness

		complianceRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()
		complianceRepo.On("Update", mock.Anything, record).Return(nil).Once()
		progress.On("RecordCompletion", mock.Anything, program.ID, record.SessionID, 1).Return(nil).Once()

		updated, err := svc.UpdateRecordStatus(ctx, record.ID, clientID, true, "", "")

		require.NoError(t, err)
		assert.True(t, updated.IsCompleted)
		// The reason is cleared on completion.
		assert.Empty(t, updated.NonCompletionReason)
		// The record keeps the day it covers; only the tracker carries the
		// moment of completion.
		assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), updated.CompletedAt)
		progress.AssertExpectations(t)
	})

	t.Run("uncompleting never decrements the tracker but flags the miss", func(t *testing.T) {
		complianceRepo, programRepo, progress, notifier, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		record := newRecord(clientID, program, true)

		complianceRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()
		complianceRepo.On("Update", mock.Anything, record).Return(nil).Once()

		updated, err := svc.UpdateRecordStatus(ctx, record.ID, clientID, false, domain.ReasonTravel, "")

		require.NoError(t, err)
		assert.False(t, updated.IsCompleted)
		progress.AssertNotCalled(t, "RecordCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		require.True(t, notifier.waitForSignal(2*time.Second), "expected a miss notification")
		calls := notifier.MissCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, domain.ReasonTravel, calls[0].Reason)
	})

	t.Run("re-completing an already completed record is a plain update", func(t *testing.T) {
		complianceRepo, programRepo, progress, _, svc := newComplianceFixture()

		clientID := primitive.NewObjectID()
		program := newActiveProgram(clientID)
		record := newRecord(clientID, program, true)

		complianceRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		programRepo.On("GetByID", ctx, program.ID).Return(program, nil).Once()
		complianceRepo.On("Update", mock.Anything, record).Return(nil).Once()

		_, err := svc.UpdateRecordStatus(ctx, record.ID, clientID, true, "", "")

		require.NoError(t, err)
		progress.AssertNotCalled(t, "RecordCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("only the owning client may amend a record", func(t *testing.T) {
		complianceRepo, _, _, _, svc := newComplianceFixture()

		program := newActiveProgram(primitive.NewObjectID())
		record := newRecord(program.ClientID, program, true)
		complianceRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()

		_, err := svc.UpdateRecordStatus(ctx, record.ID, primitive.NewObjectID(), false, domain.ReasonWork, "")
		assert.ErrorIs(t, err, ErrRecordNotOwned)
	})
}

func TestComplianceService_ProofUploads(t *testing.T) {
	ctx := context.Background()

	t.Run("request returns a presigned URL for an image", func(t *testing.T) {
		complianceRepo := new(MockComplianceRepository)
		fileStorage := new(MockFileStorage)
		svc := NewComplianceService(complianceRepo, new(MockProgramRepository), new(MockProgressService), newRecordingNotifier(), passthroughTx{}, fileStorage, zap.NewNop())

		clientID := primitive.NewObjectID()
		record := &domain.ComplianceRecord{ID: primitive.NewObjectID(), ClientID: clientID}
		complianceRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		fileStorage.On("GeneratePresignedUploadURL", ctx, mock.AnythingOfType("string"), "image/jpeg", mock.AnythingOfType("time.Duration")).
			Return("https://bucket.example.com/signed", nil).Once()

		resp, err := svc.RequestProofUploadURL(ctx, clientID, record.ID, "image/jpeg")

		require.NoError(t, err)
		assert.Equal(t, "https://bucket.example.com/signed", resp.UploadURL)
		assert.Contains(t, resp.ObjectKey, clientID.Hex())
	})

	t.Run("non-image content types are refused", func(t *testing.T) {
		svc := NewComplianceService(new(MockComplianceRepository), new(MockProgramRepository), new(MockProgressService), newRecordingNotifier(), passthroughTx{}, new(MockFileStorage), zap.NewNop())

		_, err := svc.RequestProofUploadURL(ctx, primitive.NewObjectID(), primitive.NewObjectID(), "application/pdf")
		assert.ErrorIs(t, err, ErrInvalidProofType)
	})

	t.Run("confirm attaches the object key", func(t *testing.T) {
		complianceRepo := new(MockComplianceRepository)
		svc := NewComplianceService(complianceRepo, new(MockProgramRepository), new(MockProgressService), newRecordingNotifier(), passthroughTx{}, new(MockFileStorage), zap.NewNop())

		clientID := primitive.NewObjectID()
		record := &domain.ComplianceRecord{ID: primitive.NewObjectID(), ClientID: clientID}
		complianceRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		complianceRepo.On("SetProofRef", ctx, record.ID, "proofs/a/b/c.jpeg").Return(nil).Once()

		updated, err := svc.ConfirmProofUpload(ctx, clientID, record.ID, "proofs/a/b/c.jpeg")

		require.NoError(t, err)
		assert.Equal(t, "proofs/a/b/c.jpeg", updated.ProofRef)
	})
}
