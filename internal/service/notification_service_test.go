package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/realtime"
	"gymflow/gym-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestNotificationService_NotifyMiss(t *testing.T) {
	ctx := context.Background()

	t.Run("persists one compliance-miss record and pushes it", func(t *testing.T) {
		notificationRepo := new(MockNotificationRepository)
		userRepo := new(MockUserRepository)
		pusher := new(MockPusher)
		svc := NewNotificationService(notificationRepo, userRepo, pusher, zap.NewNop())

		trainerID := primitive.NewObjectID()
		client := newTestClient(0)
		programID := primitive.NewObjectID()
		recordID := primitive.NewObjectID()

		userRepo.On("GetByID", ctx, client.ID).Return(client, nil).Once()
		notifID := primitive.NewObjectID()
		notificationRepo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.Type == domain.NotificationComplianceMiss &&
				n.RecipientID == trainerID &&
				n.Priority == domain.PriorityHigh &&
				n.RecordID != nil && *n.RecordID == recordID
		})).Return(notifID, nil).Once()
		pusher.On("PushToUser", ctx, trainerID, realtime.EventComplianceMiss, mock.Anything).Return(nil).Once()

		err := svc.NotifyMiss(ctx, trainerID, client.ID, programID, recordID, domain.ReasonFatigue, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

		require.NoError(t, err)
		notificationRepo.AssertExpectations(t)
		pusher.AssertExpectations(t)
	})

	t.Run("push failure is swallowed, the persisted record stands", func(t *testing.T) {
		notificationRepo := new(MockNotificationRepository)
		userRepo := new(MockUserRepository)
		pusher := new(MockPusher)
		svc := NewNotificationService(notificationRepo, userRepo, pusher, zap.NewNop())

		trainerID := primitive.NewObjectID()
		clientID := primitive.NewObjectID()

		userRepo.On("GetByID", ctx, clientID).Return(nil, repository.ErrNotFound).Once()
		notificationRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Return(primitive.NewObjectID(), nil).Once()
		pusher.On("PushToUser", ctx, trainerID, realtime.EventComplianceMiss, mock.Anything).
			Return(errors.New("redis down")).Once()

		err := svc.NotifyMiss(ctx, trainerID, clientID, primitive.NewObjectID(), primitive.NewObjectID(), domain.ReasonIllness, time.Now().UTC())

		assert.NoError(t, err)
	})

	t.Run("persist failure surfaces and skips the push", func(t *testing.T) {
		notificationRepo := new(MockNotificationRepository)
		userRepo := new(MockUserRepository)
		pusher := new(MockPusher)
		svc := NewNotificationService(notificationRepo, userRepo, pusher, zap.NewNop())

		clientID := primitive.NewObjectID()
		userRepo.On("GetByID", ctx, clientID).Return(nil, repository.ErrNotFound).Once()
		notificationRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Return(primitive.NilObjectID, errors.New("write failed")).Once()

		err := svc.NotifyMiss(ctx, primitive.NewObjectID(), clientID, primitive.NewObjectID(), primitive.NewObjectID(), domain.ReasonWork, time.Now().UTC())

		assert.Error(t, err)
		pusher.AssertNotCalled(t, "PushToUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNotificationService_NotifyRelationshipEvent(t *testing.T) {
	ctx := context.Background()
	notificationRepo := new(MockNotificationRepository)
	pusher := new(MockPusher)
	svc := NewNotificationService(notificationRepo, new(MockUserRepository), pusher, zap.NewNop())

	recipientID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	notificationRepo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.Type == domain.NotificationRelationshipChange && n.Title == "Assignment request accepted"
	})).Return(primitive.NewObjectID(), nil).Once()
	pusher.On("PushToUser", ctx, recipientID, realtime.EventRelationshipChange, mock.Anything).Return(nil).Once()

	err := svc.NotifyRelationshipEvent(ctx, recipientID, actorID, "Assignment request accepted", "Your trainer request was accepted.")
	require.NoError(t, err)
	notificationRepo.AssertExpectations(t)
}

func TestNotificationService_ReadLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("mark read maps missing notifications", func(t *testing.T) {
		notificationRepo := new(MockNotificationRepository)
		svc := NewNotificationService(notificationRepo, new(MockUserRepository), new(MockPusher), zap.NewNop())

		id := primitive.NewObjectID()
		recipientID := primitive.NewObjectID()
		notificationRepo.On("MarkRead", ctx, id, recipientID).Return(repository.ErrNotFound).Once()

		err := svc.MarkRead(ctx, id, recipientID)
		assert.ErrorIs(t, err, ErrNotificationNotFound)
	})

	t.Run("re-marking an already read notification stays a no-op", func(t *testing.T) {
		notificationRepo := new(MockNotificationRepository)
		svc := NewNotificationService(notificationRepo, new(MockUserRepository), new(MockPusher), zap.NewNop())

		id := primitive.NewObjectID()
		recipientID := primitive.NewObjectID()
		// The repository treats the second mark as success without rewriting readAt.
		notificationRepo.On("MarkRead", ctx, id, recipientID).Return(nil).Twice()

		require.NoError(t, svc.MarkRead(ctx, id, recipientID))
		require.NoError(t, svc.MarkRead(ctx, id, recipientID))
		notificationRepo.AssertExpectations(t)
	})
}
