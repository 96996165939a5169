package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/realtime"
	"gymflow/gym-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// --- Service Interface ---

// NotificationService translates compliance and relationship transitions into
// persisted notification records and a best-effort real-time push. Push failure
// is logged and swallowed; the persisted record is the source of truth.
type NotificationService interface {
	NotifyMiss(ctx context.Context, trainerID, clientID, programID, recordID primitive.ObjectID, reason domain.NonCompletionReason, date time.Time) error
	NotifyTrainerAlert(ctx context.Context, trainerID, clientID primitive.ObjectID, message string, programID, recordID *primitive.ObjectID) error
	NotifyRelationshipEvent(ctx context.Context, recipientID, actorID primitive.ObjectID, title, message string) error

	List(ctx context.Context, recipientID primitive.ObjectID, unreadOnly bool, limit, offset int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error
	Delete(ctx context.Context, id, recipientID primitive.ObjectID) error
}

// --- Service Implementation ---

type notificationService struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	pusher           realtime.Pusher
	logger           *zap.Logger
}

// NewNotificationService creates a new instance of notificationService.
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	pusher realtime.Pusher,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		pusher:           pusher,
		logger:           logger,
	}
}

// NotifyMiss alerts a trainer that their client skipped a scheduled session.
func (s *notificationService) NotifyMiss(ctx context.Context, trainerID, clientID, programID, recordID primitive.ObjectID, reason domain.NonCompletionReason, date time.Time) error {
	clientName := "Your client"
	if client, err := s.userRepo.GetByID(ctx, clientID); err == nil {
		clientName = client.Name
	}

	n := &domain.Notification{
		RecipientID: trainerID,
		Type:        domain.NotificationComplianceMiss,
		Title:       "Missed workout",
		Message:     fmt.Sprintf("%s missed the session on %s (%s).", clientName, date.Format("2006-01-02"), reason),
		Priority:    domain.PriorityHigh,
		ActorID:     &clientID,
		ProgramID:   &programID,
		RecordID:    &recordID,
	}
	return s.persistAndPush(ctx, n, realtime.EventComplianceMiss)
}

// NotifyTrainerAlert is the symmetric direction: a trainer manually flags a
// missed session to the client.
func (s *notificationService) NotifyTrainerAlert(ctx context.Context, trainerID, clientID primitive.ObjectID, message string, programID, recordID *primitive.ObjectID) error {
	if message == "" {
		message = "Your trainer flagged a missed session. Check your program."
	}
	n := &domain.Notification{
		RecipientID: clientID,
		Type:        domain.NotificationTrainerAlert,
		Title:       "Message from your trainer",
		Message:     message,
		Priority:    domain.PriorityHigh,
		ActorID:     &trainerID,
		ProgramID:   programID,
		RecordID:    recordID,
	}
	return s.persistAndPush(ctx, n, realtime.EventTrainerAlert)
}

// NotifyRelationshipEvent is emitted on assignment accept/reject/approve for UX;
// the relationship state machine does not depend on it.
func (s *notificationService) NotifyRelationshipEvent(ctx context.Context, recipientID, actorID primitive.ObjectID, title, message string) error {
	n := &domain.Notification{
		RecipientID: recipientID,
		Type:        domain.NotificationRelationshipChange,
		Title:       title,
		Message:     message,
		Priority:    domain.PriorityNormal,
		ActorID:     &actorID,
	}
	return s.persistAndPush(ctx, n, realtime.EventRelationshipChange)
}

// persistAndPush stores the notification, then attempts the real-time push.
// The push is best-effort: its failure never surfaces past the log line.
func (s *notificationService) persistAndPush(ctx context.Context, n *domain.Notification, event string) error {
	id, err := s.notificationRepo.Create(ctx, n)
	if err != nil {
		return err
	}
	n.ID = id

	if err := s.pusher.PushToUser(ctx, n.RecipientID, event, n); err != nil {
		s.logger.Warn("real-time push failed",
			zap.String("recipient", n.RecipientID.Hex()),
			zap.String("event", event),
			zap.Error(err),
		)
	}
	return nil
}

// List retrieves a recipient's notifications.
func (s *notificationService) List(ctx context.Context, recipientID primitive.ObjectID, unreadOnly bool, limit, offset int64) ([]domain.Notification, error) {
	return s.notificationRepo.ListByRecipient(ctx, recipientID, unreadOnly, limit, offset)
}

// MarkRead transitions a notification to read. Idempotent.
func (s *notificationService) MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	err := s.notificationRepo.MarkRead(ctx, id, recipientID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// MarkAllRead marks all of a recipient's notifications read.
func (s *notificationService) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error {
	return s.notificationRepo.MarkAllRead(ctx, recipientID)
}

// Delete removes a notification owned by the recipient.
func (s *notificationService) Delete(ctx context.Context, id, recipientID primitive.ObjectID) error {
	err := s.notificationRepo.Delete(ctx, id, recipientID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
