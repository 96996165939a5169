package api

import (
	"fmt"
	"net/http"

	"gymflow/gym-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelationshipHandler exposes the trainer-client assignment workflows.
type RelationshipHandler struct {
	relationshipService service.RelationshipService
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(relationshipService service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relationshipService: relationshipService}
}

// --- Request/Response Structs ---

type SubmitRequestRequest struct {
	TrainerID string `json:"trainerId" binding:"required"`
	Message   string `json:"message"`
}

type RespondRequestRequest struct {
	Decision service.Decision `json:"decision" binding:"required,oneof=accept reject"`
	Reason   string           `json:"reason"`
}

type ChangeRequestRequest struct {
	RequestedTrainerID string `json:"requestedTrainerId" binding:"required"`
	Reason             string `json:"reason"`
}

type ProcessChangeRequestRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

type DirectAssignRequest struct {
	ClientID  string `json:"clientId" binding:"required"`
	TrainerID string `json:"trainerId" binding:"required"`
}

// --- Handler Methods ---

// SubmitRequest lets a client ask a trainer to take them on. The request is
// pending until the trainer responds; the assignment pointer is untouched.
func (h *RelationshipHandler) SubmitRequest(c *gin.Context) {
	clientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	var req SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	trainerID, err := primitive.ObjectIDFromHex(req.TrainerID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid trainerId format.")
		return
	}

	created, err := h.relationshipService.SubmitRequest(c.Request.Context(), clientID, trainerID, req.Message)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// RespondToRequest applies the trainer's terminal accept/reject decision.
func (h *RelationshipHandler) RespondToRequest(c *gin.Context) {
	trainerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	requestID, ok := parsePathObjectID(c, "requestId")
	if !ok {
		return
	}

	var req RespondRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	updated, err := h.relationshipService.RespondToRequest(c.Request.Context(), requestID, trainerID, req.Decision, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListIncoming returns the requests targeting the calling trainer.
func (h *RelationshipHandler) ListIncoming(c *gin.Context) {
	trainerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	requests, err := h.relationshipService.ListIncoming(c.Request.Context(), trainerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ListOutgoing returns the requests the calling client has submitted.
func (h *RelationshipHandler) ListOutgoing(c *gin.Context) {
	clientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	requests, err := h.relationshipService.ListOutgoing(c.Request.Context(), clientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// SubmitChangeRequest places the legacy admin-mediated trainer change request.
func (h *RelationshipHandler) SubmitChangeRequest(c *gin.Context) {
	clientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	var req ChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	requestedTrainerID, err := primitive.ObjectIDFromHex(req.RequestedTrainerID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid requestedTrainerId format.")
		return
	}

	if err := h.relationshipService.SubmitChangeRequest(c.Request.Context(), clientID, requestedTrainerID, req.Reason); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Trainer change request submitted."})
}

// ProcessChangeRequest resolves a client's pending change request. Admin only.
func (h *RelationshipHandler) ProcessChangeRequest(c *gin.Context) {
	adminID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	clientID, ok := parsePathObjectID(c, "clientId")
	if !ok {
		return
	}

	var req ProcessChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.relationshipService.ProcessChangeRequest(c.Request.Context(), clientID, req.Approve, adminID, req.Reason); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trainer change request processed."})
}

// AssignDirect overwrites a client's assigned trainer without either workflow.
// Admin only.
func (h *RelationshipHandler) AssignDirect(c *gin.Context) {
	adminID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	var req DirectAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
		return
	}
	trainerID, err := primitive.ObjectIDFromHex(req.TrainerID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid trainerId format.")
		return
	}

	if err := h.relationshipService.AssignDirect(c.Request.Context(), clientID, trainerID, adminID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trainer assigned."})
}
