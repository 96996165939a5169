package service

import (
	"context"
	"sync"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/repository"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUserRepository is a mock type for the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) SetTrainerApproval(ctx context.Context, trainerID primitive.ObjectID, approved bool) error {
	args := m.Called(ctx, trainerID, approved)
	return args.Error(0)
}

func (m *MockUserRepository) CommitAssignedTrainer(ctx context.Context, clientID, trainerID primitive.ObjectID, expectedVersion int64) error {
	args := m.Called(ctx, clientID, trainerID, expectedVersion)
	return args.Error(0)
}

func (m *MockUserRepository) CommitAssignedTrainerWithChangeRequest(ctx context.Context, clientID, trainerID primitive.ObjectID, expectedVersion int64, req *domain.TrainerChangeRequest) error {
	args := m.Called(ctx, clientID, trainerID, expectedVersion, req)
	return args.Error(0)
}

func (m *MockUserRepository) SetChangeRequest(ctx context.Context, clientID primitive.ObjectID, req *domain.TrainerChangeRequest) error {
	args := m.Called(ctx, clientID, req)
	return args.Error(0)
}

// MockAssignmentRequestRepository is a mock type for the AssignmentRequestRepository interface
type MockAssignmentRequestRepository struct {
	mock.Mock
}

func (m *MockAssignmentRequestRepository) Create(ctx context.Context, req *domain.AssignmentRequest) (primitive.ObjectID, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockAssignmentRequestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AssignmentRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentRequest), args.Error(1)
}

func (m *MockAssignmentRequestRepository) GetPendingByClientAndTrainer(ctx context.Context, clientID, trainerID primitive.ObjectID) (*domain.AssignmentRequest, error) {
	args := m.Called(ctx, clientID, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentRequest), args.Error(1)
}

func (m *MockAssignmentRequestRepository) Respond(ctx context.Context, req *domain.AssignmentRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockAssignmentRequestRepository) ListByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.AssignmentRequest, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AssignmentRequest), args.Error(1)
}

func (m *MockAssignmentRequestRepository) ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.AssignmentRequest, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AssignmentRequest), args.Error(1)
}

// MockProgramRepository is a mock type for the ProgramRepository interface
type MockProgramRepository struct {
	mock.Mock
}

func (m *MockProgramRepository) Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error) {
	args := m.Called(ctx, program)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockProgramRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Program), args.Error(1)
}

func (m *MockProgramRepository) GetActiveByClientID(ctx context.Context, clientID primitive.ObjectID) (*domain.Program, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Program), args.Error(1)
}

func (m *MockProgramRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Program, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Program), args.Error(1)
}

func (m *MockProgramRepository) ReplaceSessions(ctx context.Context, id primitive.ObjectID, sessions []domain.ScheduledSession, totalPlanned int) error {
	args := m.Called(ctx, id, sessions, totalPlanned)
	return args.Error(0)
}

func (m *MockProgramRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProgramRepository) DeactivateActiveByClient(ctx context.Context, clientID primitive.ObjectID) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

func (m *MockProgramRepository) SetCurrentWeek(ctx context.Context, id primitive.ObjectID, week int) error {
	args := m.Called(ctx, id, week)
	return args.Error(0)
}

func (m *MockProgramRepository) IncrementCompleted(ctx context.Context, id primitive.ObjectID, last domain.LastCompletedSession) (*domain.Program, error) {
	args := m.Called(ctx, id, last)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Program), args.Error(1)
}

func (m *MockProgramRepository) SetCompletionRate(ctx context.Context, id primitive.ObjectID, rate int) error {
	args := m.Called(ctx, id, rate)
	return args.Error(0)
}

// MockComplianceRepository is a mock type for the ComplianceRepository interface
type MockComplianceRepository struct {
	mock.Mock
}

func (m *MockComplianceRepository) Create(ctx context.Context, record *domain.ComplianceRecord) (primitive.ObjectID, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockComplianceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ComplianceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComplianceRecord), args.Error(1)
}

func (m *MockComplianceRepository) FindDaily(ctx context.Context, clientID, programID, sessionID primitive.ObjectID, day time.Time) (*domain.ComplianceRecord, error) {
	args := m.Called(ctx, clientID, programID, sessionID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComplianceRecord), args.Error(1)
}

func (m *MockComplianceRepository) Update(ctx context.Context, record *domain.ComplianceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockComplianceRepository) SetProofRef(ctx context.Context, id primitive.ObjectID, proofRef string) error {
	args := m.Called(ctx, id, proofRef)
	return args.Error(0)
}

func (m *MockComplianceRepository) ListByClient(ctx context.Context, clientID primitive.ObjectID, filter repository.ComplianceFilter) ([]domain.ComplianceRecord, error) {
	args := m.Called(ctx, clientID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplianceRecord), args.Error(1)
}

// MockNotificationRepository is a mock type for the NotificationRepository interface
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) (primitive.ObjectID, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID primitive.ObjectID, unreadOnly bool, limit, offset int64) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID, unreadOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	args := m.Called(ctx, id, recipientID)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error {
	args := m.Called(ctx, recipientID)
	return args.Error(0)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, id, recipientID primitive.ObjectID) error {
	args := m.Called(ctx, id, recipientID)
	return args.Error(0)
}

// MockPusher is a mock type for the realtime.Pusher interface
type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) PushToUser(ctx context.Context, userID primitive.ObjectID, event string, payload interface{}) error {
	args := m.Called(ctx, userID, event, payload)
	return args.Error(0)
}

// MockFileStorage is a mock type for the storage.FileStorage interface
type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	args := m.Called(ctx, objectKey, contentType, expires)
	return args.String(0), args.Error(1)
}

func (m *MockFileStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	args := m.Called(ctx, objectKey, expires)
	return args.String(0), args.Error(1)
}

func (m *MockFileStorage) DeleteObject(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}

// passthroughTx runs the transactional function inline, without a real session.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// missCall captures one NotifyMiss invocation.
type missCall struct {
	TrainerID primitive.ObjectID
	ClientID  primitive.ObjectID
	ProgramID primitive.ObjectID
	RecordID  primitive.ObjectID
	Reason    domain.NonCompletionReason
	Date      time.Time
}

// recordingNotifier is a NotificationService stand-in that records calls and
// signals on a channel so tests can wait for the fire-and-forget goroutines.
type recordingNotifier struct {
	mu         sync.Mutex
	missCalls  []missCall
	eventCalls []string
	signal     chan struct{}
	err        error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{signal: make(chan struct{}, 16)}
}

func (r *recordingNotifier) NotifyMiss(ctx context.Context, trainerID, clientID, programID, recordID primitive.ObjectID, reason domain.NonCompletionReason, date time.Time) error {
	r.mu.Lock()
	r.missCalls = append(r.missCalls, missCall{trainerID, clientID, programID, recordID, reason, date})
	r.mu.Unlock()
	r.signal <- struct{}{}
	return r.err
}

func (r *recordingNotifier) NotifyTrainerAlert(ctx context.Context, trainerID, clientID primitive.ObjectID, message string, programID, recordID *primitive.ObjectID) error {
	r.mu.Lock()
	r.eventCalls = append(r.eventCalls, "trainer-alert")
	r.mu.Unlock()
	r.signal <- struct{}{}
	return r.err
}

func (r *recordingNotifier) NotifyRelationshipEvent(ctx context.Context, recipientID, actorID primitive.ObjectID, title, message string) error {
	r.mu.Lock()
	r.eventCalls = append(r.eventCalls, title)
	r.mu.Unlock()
	r.signal <- struct{}{}
	return r.err
}

func (r *recordingNotifier) List(ctx context.Context, recipientID primitive.ObjectID, unreadOnly bool, limit, offset int64) ([]domain.Notification, error) {
	return nil, nil
}

func (r *recordingNotifier) MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	return nil
}

func (r *recordingNotifier) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error {
	return nil
}

func (r *recordingNotifier) Delete(ctx context.Context, id, recipientID primitive.ObjectID) error {
	return nil
}

// waitForSignal blocks until one notification call lands or the timeout hits.
func (r *recordingNotifier) waitForSignal(timeout time.Duration) bool {
	select {
	case <-r.signal:
		return true
	case <-time.After(timeout):
		return false
	}
}

// MissCalls returns a snapshot of the recorded NotifyMiss invocations.
func (r *recordingNotifier) MissCalls() []missCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]missCall, len(r.missCalls))
	copy(out, r.missCalls)
	return out
}

// EventCalls returns a snapshot of the recorded relationship/alert titles.
func (r *recordingNotifier) EventCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.eventCalls))
	copy(out, r.eventCalls)
	return out
}
