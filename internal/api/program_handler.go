package api

import (
	"fmt"
	"net/http"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgramHandler exposes workout program management for trainers and the
// progress read surface for both roles.
type ProgramHandler struct {
	programService  service.ProgramService
	progressService service.ProgressService
}

// NewProgramHandler creates a new ProgramHandler.
func NewProgramHandler(programService service.ProgramService, progressService service.ProgressService) *ProgramHandler {
	return &ProgramHandler{
		programService:  programService,
		progressService: progressService,
	}
}

// --- Request/Response Structs ---

type SessionRequest struct {
	Name      string                   `json:"name" binding:"required"`
	DayOfWeek domain.Weekday           `json:"dayOfWeek" binding:"required"`
	Exercises []domain.SessionExercise `json:"exercises"`
}

type CreateProgramRequest struct {
	ClientID    string           `json:"clientId" binding:"required"`
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Frequency   int              `json:"frequency" binding:"required"`
	TotalWeeks  int              `json:"totalWeeks" binding:"required"`
	StartDate   *time.Time       `json:"startDate"`
	Sessions    []SessionRequest `json:"sessions" binding:"required"`
}

type ReplaceSessionsRequest struct {
	Sessions []SessionRequest `json:"sessions" binding:"required"`
}

func toSessionInputs(sessions []SessionRequest) []service.SessionInput {
	out := make([]service.SessionInput, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, service.SessionInput{
			Name:      s.Name,
			DayOfWeek: s.DayOfWeek,
			Exercises: s.Exercises,
		})
	}
	return out
}

// --- Handler Methods ---

// CreateProgram creates an active program for one of the trainer's clients.
func (h *ProgramHandler) CreateProgram(c *gin.Context) {
	trainerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	var req CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
		return
	}

	input := service.CreateProgramInput{
		ClientID:    clientID,
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		TotalWeeks:  req.TotalWeeks,
		Sessions:    toSessionInputs(req.Sessions),
	}
	if req.StartDate != nil {
		input.StartDate = *req.StartDate
	}

	program, err := h.programService.CreateProgram(c.Request.Context(), trainerID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, program)
}

// GetProgram retrieves a program for its client or its owning trainer.
func (h *ProgramHandler) GetProgram(c *gin.Context) {
	callerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	programID, ok := parsePathObjectID(c, "programId")
	if !ok {
		return
	}

	program, err := h.programService.GetProgram(c.Request.Context(), callerID, programID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

// ListClientPrograms lists a client's programs for their assigned trainer.
func (h *ProgramHandler) ListClientPrograms(c *gin.Context) {
	trainerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	clientID, ok := parsePathObjectID(c, "clientId")
	if !ok {
		return
	}

	programs, err := h.programService.ListClientPrograms(c.Request.Context(), trainerID, clientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, programs)
}

// ReplaceSessions swaps a program's scheduled sessions.
func (h *ProgramHandler) ReplaceSessions(c *gin.Context) {
	trainerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	programID, ok := parsePathObjectID(c, "programId")
	if !ok {
		return
	}

	var req ReplaceSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	program, err := h.programService.ReplaceSessions(c.Request.Context(), trainerID, programID, toSessionInputs(req.Sessions))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

// DeactivateProgram soft-deactivates a program owned by the trainer.
func (h *ProgramHandler) DeactivateProgram(c *gin.Context) {
	trainerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	programID, ok := parsePathObjectID(c, "programId")
	if !ok {
		return
	}

	if err := h.programService.DeactivateProgram(c.Request.Context(), trainerID, programID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Program deactivated."})
}

// GetProgress returns the progress aggregate for a program the caller may see.
func (h *ProgramHandler) GetProgress(c *gin.Context) {
	callerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	programID, ok := parsePathObjectID(c, "programId")
	if !ok {
		return
	}

	// Access check rides on GetProgram; stats are a projection of the same doc.
	if _, err := h.programService.GetProgram(c.Request.Context(), callerID, programID); err != nil {
		respondServiceError(c, err)
		return
	}

	stats, err := h.progressService.Stats(c.Request.Context(), programID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AdvanceWeek bumps the program's current week. Trainer owned.
func (h *ProgramHandler) AdvanceWeek(c *gin.Context) {
	trainerID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	programID, ok := parsePathObjectID(c, "programId")
	if !ok {
		return
	}

	program, err := h.programService.GetProgram(c.Request.Context(), trainerID, programID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if program.TrainerID != trainerID {
		abortWithError(c, http.StatusForbidden, "Only the owning trainer may advance the week.")
		return
	}

	if err := h.progressService.AdvanceWeek(c.Request.Context(), programID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Week advanced."})
}
