package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/repository"
	"gymflow/gym-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComplianceHandler exposes the workout-compliance ledger.
type ComplianceHandler struct {
	complianceService   service.ComplianceService
	notificationService service.NotificationService
}

// NewComplianceHandler creates a new ComplianceHandler.
func NewComplianceHandler(complianceService service.ComplianceService, notificationService service.NotificationService) *ComplianceHandler {
	return &ComplianceHandler{
		complianceService:   complianceService,
		notificationService: notificationService,
	}
}

// --- Request/Response Structs ---

type DailyStatusRequest struct {
	Date        *time.Time                 `json:"date"` // defaults to today
	IsCompleted *bool                      `json:"isCompleted" binding:"required"`
	Reason      domain.NonCompletionReason `json:"nonCompletionReason"`
	Notes       string                     `json:"nonCompletionNotes"`
}

type SessionLogRequest struct {
	ProgramID   string                     `json:"programId" binding:"required"`
	SessionID   string                     `json:"sessionId" binding:"required"`
	Week        int                        `json:"week" binding:"required"`
	Results     []domain.ExerciseResult    `json:"results"`
	IsCompleted *bool                      `json:"isCompleted" binding:"required"`
	Reason      domain.NonCompletionReason `json:"nonCompletionReason"`
	Notes       string                     `json:"nonCompletionNotes"`
}

type UpdateRecordRequest struct {
	IsCompleted *bool                      `json:"isCompleted" binding:"required"`
	Reason      domain.NonCompletionReason `json:"nonCompletionReason"`
	Notes       string                     `json:"nonCompletionNotes"`
}

type ProofUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type ProofConfirmRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

type TrainerAlertRequest struct {
	ClientID  string  `json:"clientId" binding:"required"`
	Message   string  `json:"message"`
	ProgramID *string `json:"programId"`
	RecordID  *string `json:"recordId"`
}

// --- Handler Methods ---

// RecordDailyStatus is the daily check-in: did today's session happen or not.
func (h *ComplianceHandler) RecordDailyStatus(c *gin.Context) {
	clientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	var req DailyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	date := time.Now().UTC()
	if req.Date != nil {
		date = *req.Date
	}

	record, err := h.complianceService.RecordDailyStatus(c.Request.Context(), clientID, date, *req.IsCompleted, req.Reason, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// RecordSessionLog is the explicit full-log variant with per-exercise results.
func (h *ComplianceHandler) RecordSessionLog(c *gin.Context) {
	clientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	var req SessionLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	programID, err := primitive.ObjectIDFromHex(req.ProgramID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid programId format.")
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(req.SessionID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid sessionId format.")
		return
	}

	record, err := h.complianceService.RecordSessionLog(c.Request.Context(), clientID, programID, sessionID, req.Week, req.Results, *req.IsCompleted, req.Reason, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// RecordSessionLogForClient is the trainer manual-entry variant: the program's
// trainer logs a session on the client's behalf.
func (h *ComplianceHandler) RecordSessionLogForClient(c *gin.Context) {
	trainerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	clientID, ok := parsePathObjectID(c, "clientId")
	if !ok {
		return
	}

	var req SessionLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	programID, err := primitive.ObjectIDFromHex(req.ProgramID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid programId format.")
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(req.SessionID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid sessionId format.")
		return
	}

	record, err := h.complianceService.RecordSessionLogForClient(c.Request.Context(), trainerID, clientID, programID, sessionID, req.Week, req.Results, *req.IsCompleted, req.Reason, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// UpdateRecordStatus lets a client amend one of their existing records.
func (h *ComplianceHandler) UpdateRecordStatus(c *gin.Context) {
	clientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	recordID, ok := parsePathObjectID(c, "recordId")
	if !ok {
		return
	}

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	record, err := h.complianceService.UpdateRecordStatus(c.Request.Context(), recordID, clientID, *req.IsCompleted, req.Reason, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListRecords returns ledger entries. Clients see their own; trainers pass
// ?clientId= and see only records created under their programs.
func (h *ComplianceHandler) ListRecords(c *gin.Context) {
	callerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	role, err := getUserRoleFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller role.")
		return
	}

	clientID := callerID
	filter := repository.ComplianceFilter{}
	if role == domain.RoleTrainer {
		clientIDStr := c.Query("clientId")
		if clientIDStr == "" {
			abortWithError(c, http.StatusBadRequest, "clientId query parameter is required for trainers.")
			return
		}
		clientID, err = primitive.ObjectIDFromHex(clientIDStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
			return
		}
		filter.TrainerID = &callerID
	}

	if programIDStr := c.Query("programId"); programIDStr != "" {
		programID, err := primitive.ObjectIDFromHex(programIDStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid programId format.")
			return
		}
		filter.ProgramID = &programID
	}
	if weekStr := c.Query("week"); weekStr != "" {
		week, err := strconv.Atoi(weekStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid week value.")
			return
		}
		filter.Week = &week
	}
	if completedStr := c.Query("completed"); completedStr != "" {
		completed, err := strconv.ParseBool(completedStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid completed value.")
			return
		}
		filter.Completed = &completed
	}
	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD.")
			return
		}
		filter.From = &from
	}
	if toStr := c.Query("to"); toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD.")
			return
		}
		filter.To = &to
	}

	records, err := h.complianceService.ListRecords(c.Request.Context(), clientID, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// RequestProofUpload returns a presigned URL for attaching a proof image.
func (h *ComplianceHandler) RequestProofUpload(c *gin.Context) {
	clientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	recordID, ok := parsePathObjectID(c, "recordId")
	if !ok {
		return
	}

	var req ProofUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	resp, err := h.complianceService.RequestProofUploadURL(c.Request.Context(), clientID, recordID, req.ContentType)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmProofUpload attaches the uploaded object key to the record.
func (h *ComplianceHandler) ConfirmProofUpload(c *gin.Context) {
	clientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	recordID, ok := parsePathObjectID(c, "recordId")
	if !ok {
		return
	}

	var req ProofConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	record, err := h.complianceService.ConfirmProofUpload(c.Request.Context(), clientID, recordID, req.ObjectKey)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// SendTrainerAlert lets a trainer manually flag a missed session to a client.
func (h *ComplianceHandler) SendTrainerAlert(c *gin.Context) {
	trainerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	var req TrainerAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
		return
	}

	var programID, recordID *primitive.ObjectID
	if req.ProgramID != nil {
		id, err := primitive.ObjectIDFromHex(*req.ProgramID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid programId format.")
			return
		}
		programID = &id
	}
	if req.RecordID != nil {
		id, err := primitive.ObjectIDFromHex(*req.RecordID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid recordId format.")
			return
		}
		recordID = &id
	}

	if err := h.notificationService.NotifyTrainerAlert(c.Request.Context(), trainerID, clientID, req.Message, programID, recordID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Alert sent."})
}
