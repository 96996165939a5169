package api

import (
	"net/http"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	relationshipService service.RelationshipService,
	programService service.ProgramService,
	progressService service.ProgressService,
	complianceService service.ComplianceService,
	notificationService service.NotificationService,
) {

	authHandler := NewAuthHandler(authService)
	relationshipHandler := NewRelationshipHandler(relationshipService)
	programHandler := NewProgramHandler(programService, progressService)
	complianceHandler := NewComplianceHandler(complianceService, notificationService)
	notificationHandler := NewNotificationHandler(notificationService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Assignment Routes ---
		assignmentGroup := protected.Group("/assignments")
		{
			// Modern request/accept workflow
			assignmentGroup.POST("/requests", RoleMiddleware(domain.RoleClient), relationshipHandler.SubmitRequest)
			assignmentGroup.GET("/requests/incoming", RoleMiddleware(domain.RoleTrainer), relationshipHandler.ListIncoming)
			assignmentGroup.GET("/requests/outgoing", RoleMiddleware(domain.RoleClient), relationshipHandler.ListOutgoing)
			assignmentGroup.POST("/requests/:requestId/respond", RoleMiddleware(domain.RoleTrainer), relationshipHandler.RespondToRequest)

			// Legacy admin-mediated change requests
			assignmentGroup.POST("/change-request", RoleMiddleware(domain.RoleClient), relationshipHandler.SubmitChangeRequest)
			assignmentGroup.POST("/change-request/:clientId/process", RoleMiddleware(domain.RoleAdmin), relationshipHandler.ProcessChangeRequest)

			// Admin override
			assignmentGroup.POST("/direct", RoleMiddleware(domain.RoleAdmin), relationshipHandler.AssignDirect)
		}

		// --- Program Routes ---
		programGroup := protected.Group("/programs")
		{
			programGroup.POST("", RoleMiddleware(domain.RoleTrainer), programHandler.CreateProgram)
			programGroup.GET("/:programId", programHandler.GetProgram)
			programGroup.PUT("/:programId/sessions", RoleMiddleware(domain.RoleTrainer), programHandler.ReplaceSessions)
			programGroup.DELETE("/:programId", RoleMiddleware(domain.RoleTrainer), programHandler.DeactivateProgram)
			programGroup.GET("/:programId/stats", programHandler.GetProgress)
			programGroup.POST("/:programId/advance-week", RoleMiddleware(domain.RoleTrainer), programHandler.AdvanceWeek)
		}
		protected.GET("/clients/:clientId/programs", RoleMiddleware(domain.RoleTrainer), programHandler.ListClientPrograms)

		// --- Compliance Routes ---
		complianceGroup := protected.Group("/compliance")
		{
			complianceGroup.POST("/daily", RoleMiddleware(domain.RoleClient), complianceHandler.RecordDailyStatus)
			complianceGroup.POST("/logs", RoleMiddleware(domain.RoleClient), complianceHandler.RecordSessionLog)
			complianceGroup.POST("/clients/:clientId/logs", RoleMiddleware(domain.RoleTrainer), complianceHandler.RecordSessionLogForClient)
			complianceGroup.PATCH("/records/:recordId", RoleMiddleware(domain.RoleClient), complianceHandler.UpdateRecordStatus)
			complianceGroup.GET("/records", RoleMiddleware(domain.RoleClient, domain.RoleTrainer), complianceHandler.ListRecords)
			complianceGroup.POST("/records/:recordId/proof", RoleMiddleware(domain.RoleClient), complianceHandler.RequestProofUpload)
			complianceGroup.POST("/records/:recordId/proof/confirm", RoleMiddleware(domain.RoleClient), complianceHandler.ConfirmProofUpload)
			complianceGroup.POST("/alerts", RoleMiddleware(domain.RoleTrainer), complianceHandler.SendTrainerAlert)
		}

		// --- Notification Routes ---
		notificationGroup := protected.Group("/notifications")
		{
			notificationGroup.GET("", notificationHandler.List)
			notificationGroup.POST("/:notificationId/read", notificationHandler.MarkRead)
			notificationGroup.POST("/read-all", notificationHandler.MarkAllRead)
			notificationGroup.DELETE("/:notificationId", notificationHandler.Delete)
		}

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.POST("/trainers/:trainerId/approve", authHandler.ApproveTrainer)
		}
	}
}
