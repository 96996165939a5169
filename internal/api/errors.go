package api

import (
	"errors"
	"net/http"

	"gymflow/gym-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps service-layer sentinel errors onto HTTP statuses.
// Anything unmapped becomes a 500 with a generic message.
func respondServiceError(c *gin.Context, err error) {
	switch {
	// 404 Not Found
	case errors.Is(err, service.ErrTrainerNotFound),
		errors.Is(err, service.ErrClientUserNotFound),
		errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrChangeRequestNotFound),
		errors.Is(err, service.ErrProgramNotFound),
		errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, service.ErrNoActiveProgram),
		errors.Is(err, service.ErrNotificationNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())

	// 403 Forbidden
	case errors.Is(err, service.ErrNotRequestTarget),
		errors.Is(err, service.ErrRecordNotOwned),
		errors.Is(err, service.ErrProgramNotOwned),
		errors.Is(err, service.ErrNotProgramTrainer),
		errors.Is(err, service.ErrProgramAccess),
		errors.Is(err, service.ErrClientNotAssigned),
		errors.Is(err, service.ErrTrainerNotApproved):
		abortWithError(c, http.StatusForbidden, err.Error())

	// 409 Conflict
	case errors.Is(err, service.ErrDuplicatePendingRequest),
		errors.Is(err, service.ErrRequestAlreadyResponded),
		errors.Is(err, service.ErrChangeRequestPending),
		errors.Is(err, service.ErrChangeRequestProcessed),
		errors.Is(err, service.ErrAssignmentVersionClash),
		errors.Is(err, service.ErrDailyRecordConflict),
		errors.Is(err, service.ErrUserAlreadyExists):
		abortWithError(c, http.StatusConflict, err.Error())

	// 400 Bad Request
	case errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidFrequency),
		errors.Is(err, service.ErrInvalidTotalWeeks),
		errors.Is(err, service.ErrTooManySessions),
		errors.Is(err, service.ErrNoSessions),
		errors.Is(err, service.ErrDuplicateWeekday),
		errors.Is(err, service.ErrInvalidWeekday),
		errors.Is(err, service.ErrNoSessionScheduled),
		errors.Is(err, service.ErrSessionNotInProgram),
		errors.Is(err, service.ErrProgramInactive),
		errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrInvalidReason),
		errors.Is(err, service.ErrNotesRequired),
		errors.Is(err, service.ErrWeekOutOfRange),
		errors.Is(err, service.ErrInvalidProofType):
		abortWithError(c, http.StatusBadRequest, err.Error())

	// 401 Unauthorized
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())

	default:
		abortWithError(c, http.StatusInternalServerError, "An internal error occurred.")
	}
}
