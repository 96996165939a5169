package service

import (
	"context"
	"errors"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrTrainerNotFound          = errors.New("trainer not found")
	ErrTrainerNotApproved       = errors.New("requested trainer is not an approved trainer")
	ErrClientUserNotFound       = errors.New("client user not found")
	ErrDuplicatePendingRequest  = errors.New("a pending request to this trainer already exists")
	ErrRequestNotFound          = errors.New("assignment request not found")
	ErrRequestAlreadyResponded  = errors.New("assignment request has already been responded to")
	ErrNotRequestTarget         = errors.New("only the request's target trainer may respond")
	ErrInvalidDecision          = errors.New("decision must be accept or reject")
	ErrChangeRequestNotFound    = errors.New("no trainer change request found")
	ErrChangeRequestPending     = errors.New("a trainer change request is already pending")
	ErrChangeRequestProcessed   = errors.New("trainer change request has already been processed")
	ErrAssignmentVersionClash   = errors.New("assignment was modified concurrently, retry")
)

// Decision is a trainer's response to an assignment request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// --- Service Interface ---

// RelationshipService owns the trainer-client assignment state: the modern
// request/accept workflow, the legacy admin-mediated change request embedded on
// the client record, and the admin direct-assign override. All three commit the
// assignedTrainer pointer through the same version-checked repository primitive.
type RelationshipService interface {
	SubmitRequest(ctx context.Context, clientID, trainerID primitive.ObjectID, message string) (*domain.AssignmentRequest, error)
	RespondToRequest(ctx context.Context, requestID, responderID primitive.ObjectID, decision Decision, reason string) (*domain.AssignmentRequest, error)
	ListIncoming(ctx context.Context, trainerID primitive.ObjectID) ([]domain.AssignmentRequest, error)
	ListOutgoing(ctx context.Context, clientID primitive.ObjectID) ([]domain.AssignmentRequest, error)

	// Legacy change-request workflow (admin-processed, embedded on the client record).
	SubmitChangeRequest(ctx context.Context, clientID, requestedTrainerID primitive.ObjectID, reason string) error
	ProcessChangeRequest(ctx context.Context, clientID primitive.ObjectID, approve bool, adminID primitive.ObjectID, adminReason string) error

	// AssignDirect bypasses both workflows; admin only.
	AssignDirect(ctx context.Context, clientID, trainerID, adminID primitive.ObjectID) error
}

// --- Service Implementation ---

type relationshipService struct {
	userRepo    repository.UserRepository
	requestRepo repository.AssignmentRequestRepository
	tx          repository.TxRunner
	notifier    NotificationService
	logger      *zap.Logger
}

// NewRelationshipService creates a new instance of relationshipService.
func NewRelationshipService(
	userRepo repository.UserRepository,
	requestRepo repository.AssignmentRequestRepository,
	tx repository.TxRunner,
	notifier NotificationService,
	logger *zap.Logger,
) RelationshipService {
	return &relationshipService{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		tx:          tx,
		notifier:    notifier,
		logger:      logger,
	}
}

// === Modern request/accept workflow ===

// SubmitRequest creates a pending assignment request from a client to a trainer.
// It has no effect on the client's assignedTrainer pointer.
func (s *relationshipService) SubmitRequest(ctx context.Context, clientID, trainerID primitive.ObjectID, message string) (*domain.AssignmentRequest, error) {
	if clientID == primitive.NilObjectID || trainerID == primitive.NilObjectID {
		return nil, errors.New("client ID and trainer ID are required")
	}

	trainer, err := s.userRepo.GetByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}
	if !trainer.IsTrainer() {
		return nil, ErrTrainerNotFound
	}

	// Pre-check for an identical pending request. The partial unique index
	// closes the race two concurrent submissions would otherwise open.
	if _, err := s.requestRepo.GetPendingByClientAndTrainer(ctx, clientID, trainerID); err == nil {
		return nil, ErrDuplicatePendingRequest
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	req := &domain.AssignmentRequest{
		ClientID:  clientID,
		TrainerID: trainerID,
		Status:    domain.RequestPending,
		Message:   message,
	}
	reqID, err := s.requestRepo.Create(ctx, req)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicatePendingRequest
		}
		return nil, err
	}
	req.ID = reqID

	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.NotifyRelationshipEvent(ctx, trainerID, clientID,
			"New assignment request",
			"A client has requested you as their trainer.")
	})
	return req, nil
}

// RespondToRequest applies a trainer's accept/reject decision. Responses are
// terminal: once a request has left pending, any further response fails with a
// conflict and the request never changes again. Accepting unconditionally
// overwrites the client's assignedTrainer, silently superseding any prior one.
func (s *relationshipService) RespondToRequest(ctx context.Context, requestID, responderID primitive.ObjectID, decision Decision, reason string) (*domain.AssignmentRequest, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, ErrInvalidDecision
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.TrainerID != responderID {
		return nil, ErrNotRequestTarget
	}
	if !req.IsPending() {
		return nil, ErrRequestAlreadyResponded
	}

	if decision == DecisionAccept {
		req.Status = domain.RequestAccepted
	} else {
		req.Status = domain.RequestRejected
		req.Reason = reason
	}
	now := time.Now().UTC()
	req.RespondedAt = &now
	req.RespondedBy = &responderID

	// The pending-to-responded transition is won first: Respond is a
	// compare-and-set on status, so a responder holding a stale pending snapshot
	// loses here without ever touching the assignment pointer. Running both
	// writes in one transaction keeps an accepted request and its pointer swap
	// committed together.
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Respond(txCtx, req); err != nil {
			return err
		}
		if decision == DecisionAccept {
			return s.commitAssignment(txCtx, req.ClientID, req.TrainerID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrRequestAlreadyResponded
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	clientID, trainerID := req.ClientID, req.TrainerID
	title, message := "Assignment request accepted", "Your trainer request was accepted."
	if decision == DecisionReject {
		title, message = "Assignment request rejected", "Your trainer request was rejected."
	}
	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.NotifyRelationshipEvent(ctx, clientID, trainerID, title, message)
	})
	return req, nil
}

// ListIncoming retrieves requests targeting the trainer.
func (s *relationshipService) ListIncoming(ctx context.Context, trainerID primitive.ObjectID) ([]domain.AssignmentRequest, error) {
	return s.requestRepo.ListByTrainerID(ctx, trainerID)
}

// ListOutgoing retrieves requests submitted by the client.
func (s *relationshipService) ListOutgoing(ctx context.Context, clientID primitive.ObjectID) ([]domain.AssignmentRequest, error) {
	return s.requestRepo.ListByClientID(ctx, clientID)
}

// === Legacy change-request workflow ===

// SubmitChangeRequest places a pending change request in the client's embedded
// slot. Only one may be pending at a time.
func (s *relationshipService) SubmitChangeRequest(ctx context.Context, clientID, requestedTrainerID primitive.ObjectID, reason string) error {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientUserNotFound
		}
		return err
	}
	if client.HasPendingChangeRequest() {
		return ErrChangeRequestPending
	}

	trainer, err := s.userRepo.GetByID(ctx, requestedTrainerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTrainerNotFound
		}
		return err
	}
	if !trainer.IsTrainer() {
		return ErrTrainerNotFound
	}

	return s.userRepo.SetChangeRequest(ctx, clientID, &domain.TrainerChangeRequest{
		RequestedTrainerID: requestedTrainerID,
		Reason:             reason,
		Status:             domain.ChangeRequestPending,
		RequestedAt:        time.Now().UTC(),
	})
}

// ProcessChangeRequest resolves the client's pending change request. Processed
// by an admin, not the trainer; approval re-verifies the requested trainer is
// still approved before committing the pointer swap.
func (s *relationshipService) ProcessChangeRequest(ctx context.Context, clientID primitive.ObjectID, approve bool, adminID primitive.ObjectID, adminReason string) error {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientUserNotFound
		}
		return err
	}
	cr := client.TrainerChangeRequest
	if cr == nil {
		return ErrChangeRequestNotFound
	}
	if cr.Status != domain.ChangeRequestPending {
		return ErrChangeRequestProcessed
	}

	now := time.Now().UTC()
	processed := *cr
	processed.ProcessedAt = &now
	processed.ProcessedBy = &adminID
	processed.AdminReason = adminReason

	if approve {
		trainer, err := s.userRepo.GetByID(ctx, cr.RequestedTrainerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTrainerNotApproved
			}
			return err
		}
		if !trainer.IsTrainer() || !trainer.IsApproved {
			return ErrTrainerNotApproved
		}
		// One document write: the pointer swap and the approved stamp land
		// together or not at all.
		processed.Status = domain.ChangeRequestApproved
		if err := s.userRepo.CommitAssignedTrainerWithChangeRequest(ctx, clientID, cr.RequestedTrainerID, client.AssignmentVersion, &processed); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrAssignmentVersionClash
			}
			return err
		}
	} else {
		processed.Status = domain.ChangeRequestRejected
		if err := s.userRepo.SetChangeRequest(ctx, clientID, &processed); err != nil {
			return err
		}
	}

	title, message := "Trainer change approved", "Your trainer change request was approved."
	if !approve {
		title, message = "Trainer change rejected", "Your trainer change request was rejected."
	}
	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.NotifyRelationshipEvent(ctx, clientID, adminID, title, message)
	})
	return nil
}

// === Admin override ===

// AssignDirect overwrites the client's assignedTrainer without either request
// workflow, writing a synthetic approved legacy record for audit purposes.
func (s *relationshipService) AssignDirect(ctx context.Context, clientID, trainerID, adminID primitive.ObjectID) error {
	trainer, err := s.userRepo.GetByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTrainerNotApproved
		}
		return err
	}
	if !trainer.IsTrainer() || !trainer.IsApproved {
		return ErrTrainerNotApproved
	}

	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientUserNotFound
		}
		return err
	}

	now := time.Now().UTC()
	audit := &domain.TrainerChangeRequest{
		RequestedTrainerID: trainerID,
		Reason:             "direct assignment by admin",
		Status:             domain.ChangeRequestApproved,
		RequestedAt:        now,
		ProcessedAt:        &now,
		ProcessedBy:        &adminID,
	}
	if err := s.userRepo.CommitAssignedTrainerWithChangeRequest(ctx, clientID, trainerID, client.AssignmentVersion, audit); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrAssignmentVersionClash
		}
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientUserNotFound
		}
		return err
	}

	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.NotifyRelationshipEvent(ctx, clientID, adminID,
			"Trainer assigned",
			"An administrator assigned you a new trainer.")
	})
	return nil
}

// commitAssignment reads the client's current assignment version and commits the
// pointer swap against it.
func (s *relationshipService) commitAssignment(ctx context.Context, clientID, trainerID primitive.ObjectID) error {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientUserNotFound
		}
		return err
	}
	if err := s.userRepo.CommitAssignedTrainer(ctx, clientID, trainerID, client.AssignmentVersion); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrAssignmentVersionClash
		}
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientUserNotFound
		}
		return err
	}
	return nil
}

// notifyAsync dispatches a notification after the state change has committed.
// Failures are logged and swallowed: relationship truth never depends on the
// notification channel.
func (s *relationshipService) notifyAsync(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn("relationship notification dispatch failed", zap.Error(err))
		}
	}()
}
