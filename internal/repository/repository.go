package repository

import (
	"context"
	"time"

	"gymflow/gym-backend/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound        = RepositoryError("not found")
	ErrDuplicate       = RepositoryError("duplicate key")
	ErrVersionConflict = RepositoryError("version conflict")
	ErrUpdateFailed    = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TxRunner runs a function inside a storage transaction. The ledger write and
// its triggered progress update use this to commit as a single unit.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
	SetTrainerApproval(ctx context.Context, trainerID primitive.ObjectID, approved bool) error

	// CommitAssignedTrainer overwrites the client's assignedTrainer pointer iff the
	// client's assignment version still equals expectedVersion, bumping the version.
	// Returns ErrVersionConflict when another commit won the race. This is the single
	// primitive shared by the request/accept, legacy change-request and direct-assign
	// paths.
	CommitAssignedTrainer(ctx context.Context, clientID, trainerID primitive.ObjectID, expectedVersion int64) error

	// CommitAssignedTrainerWithChangeRequest is the same versioned pointer swap,
	// plus the embedded change-request stamp, in one document write. The swap can
	// therefore never commit while the request is still recorded as pending.
	CommitAssignedTrainerWithChangeRequest(ctx context.Context, clientID, trainerID primitive.ObjectID, expectedVersion int64, req *domain.TrainerChangeRequest) error

	// SetChangeRequest replaces the client's embedded legacy change-request slot.
	SetChangeRequest(ctx context.Context, clientID primitive.ObjectID, req *domain.TrainerChangeRequest) error
}

// AssignmentRequestRepository defines the interface for trainer-assignment requests.
type AssignmentRequestRepository interface {
	// Create inserts a pending request. Returns ErrDuplicate when a pending
	// request for the same (client, trainer) pair already exists.
	Create(ctx context.Context, req *domain.AssignmentRequest) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AssignmentRequest, error)
	GetPendingByClientAndTrainer(ctx context.Context, clientID, trainerID primitive.ObjectID) (*domain.AssignmentRequest, error)

	// Respond persists the response fields iff the request is still pending.
	// Returns ErrVersionConflict when another response already left pending, so
	// a responded request can never be rewritten.
	Respond(ctx context.Context, req *domain.AssignmentRequest) error
	ListByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.AssignmentRequest, error)
	ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.AssignmentRequest, error)
}

// ProgramRepository defines the interface for interacting with workout programs.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error)
	GetActiveByClientID(ctx context.Context, clientID primitive.ObjectID) (*domain.Program, error)
	GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Program, error)
	ReplaceSessions(ctx context.Context, id primitive.ObjectID, sessions []domain.ScheduledSession, totalPlanned int) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	DeactivateActiveByClient(ctx context.Context, clientID primitive.ObjectID) error
	SetCurrentWeek(ctx context.Context, id primitive.ObjectID, week int) error

	// IncrementCompleted atomically bumps totalCompleted by one and records the
	// last-completed pointer, returning the updated program. It never decrements.
	IncrementCompleted(ctx context.Context, id primitive.ObjectID, last domain.LastCompletedSession) (*domain.Program, error)
	SetCompletionRate(ctx context.Context, id primitive.ObjectID, rate int) error
}

// ComplianceFilter narrows ListByClient queries. TrainerID scopes a trainer's
// view to the records created under their programs.
type ComplianceFilter struct {
	ProgramID *primitive.ObjectID
	TrainerID *primitive.ObjectID
	Week      *int
	DayOfWeek *domain.Weekday
	From      *time.Time
	To        *time.Time
	Completed *bool
}

// ComplianceRepository defines the interface for the workout-compliance ledger.
type ComplianceRepository interface {
	Create(ctx context.Context, record *domain.ComplianceRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ComplianceRecord, error)
	// FindDaily looks up the daily-status record covering one calendar day.
	FindDaily(ctx context.Context, clientID, programID, sessionID primitive.ObjectID, day time.Time) (*domain.ComplianceRecord, error)
	Update(ctx context.Context, record *domain.ComplianceRecord) error
	SetProofRef(ctx context.Context, id primitive.ObjectID, proofRef string) error
	ListByClient(ctx context.Context, clientID primitive.ObjectID, filter ComplianceFilter) ([]domain.ComplianceRecord, error)
}

// NotificationRepository defines the interface for persisted notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID primitive.ObjectID, unreadOnly bool, limit, offset int64) ([]domain.Notification, error)
	// MarkRead is idempotent: re-marking an already-read notification is a no-op.
	MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error
	Delete(ctx context.Context, id, recipientID primitive.ObjectID) error
}
