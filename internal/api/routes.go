package api

import (
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	horseService service.HorseService,
	healthService service.HealthService,
	scheduleService service.ScheduleService,
	logService service.LogService,
) {
	authHandler := NewAuthHandler(authService)
	horseHandler := NewHorseHandler(horseService)
	healthHandler := NewHealthHandler(healthService)
	scheduleHandler := NewScheduleHandler(scheduleService)
	logHandler := NewLogHandler(logService)

	authMiddleware := AuthMiddleware(jwtSecret)
	managerOnly := RoleMiddleware(domain.RoleManager)

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

		// --- Horses ---
		horseGroup := protected.Group("/horses")
		{
			horseGroup.POST("", managerOnly, horseHandler.CreateHorse)
			horseGroup.GET("", horseHandler.GetHorses)
			horseGroup.GET("/:horseId", horseHandler.GetHorse)
			horseGroup.PUT("/:horseId", managerOnly, horseHandler.UpdateHorse)
			horseGroup.DELETE("/:horseId", managerOnly, horseHandler.DeleteHorse)
			horseGroup.POST("/:horseId/share", managerOnly, horseHandler.ShareHorse)

			horseGroup.POST("/:horseId/photo/upload-url", managerOnly, horseHandler.GeneratePhotoUploadURL)
			horseGroup.POST("/:horseId/photo/confirm", managerOnly, horseHandler.ConfirmPhotoUpload)
			horseGroup.GET("/:horseId/photo/download-url", horseHandler.GetPhotoDownloadURL)

			// Health records live under their horse.
			horseGroup.POST("/:horseId/health-records", managerOnly, healthHandler.CreateRecord)
			horseGroup.GET("/:horseId/health-records", healthHandler.GetRecords)

			// Plans, the planner grid and session logs.
			horseGroup.GET("/:horseId/plans", scheduleHandler.GetPlansForHorse)
			horseGroup.GET("/:horseId/calendar", scheduleHandler.GetCalendar)
			horseGroup.POST("/:horseId/logs", logHandler.LogUnscheduledSession)
			horseGroup.GET("/:horseId/logs", logHandler.GetLogsForHorse)
		}

		// --- Health records (record-scoped operations) ---
		healthGroup := protected.Group("/health-records")
		healthGroup.Use(managerOnly)
		{
			healthGroup.DELETE("/:recordId", healthHandler.DeleteRecord)
			healthGroup.POST("/:recordId/attachment/upload-url", healthHandler.GenerateAttachmentUploadURL)
			healthGroup.POST("/:recordId/attachment/confirm", healthHandler.ConfirmAttachmentUpload)
		}
		protected.GET("/health-records/:recordId/attachment/download-url", healthHandler.GetAttachmentDownloadURL)

		// --- Schedules (programme versions) ---
		scheduleGroup := protected.Group("/schedules")
		scheduleGroup.Use(managerOnly)
		{
			scheduleGroup.POST("/parse", scheduleHandler.ParseSchedule)
			scheduleGroup.POST("", scheduleHandler.CreateSchedule)
			scheduleGroup.GET("", scheduleHandler.GetSchedules)
			scheduleGroup.GET("/:scheduleId", scheduleHandler.GetSchedule)
			scheduleGroup.POST("/:scheduleId/publish", scheduleHandler.PublishSchedule)
			scheduleGroup.POST("/:scheduleId/archive", scheduleHandler.ArchiveSchedule)
			scheduleGroup.POST("/:scheduleId/apply", scheduleHandler.ApplySchedule)
			scheduleGroup.POST("/:scheduleId/source/upload-url", scheduleHandler.GenerateSourceUploadURL)
			scheduleGroup.POST("/:scheduleId/source/confirm", scheduleHandler.ConfirmSourceUpload)
			scheduleGroup.GET("/:scheduleId/source/download-url", scheduleHandler.GetSourceDownloadURL)
		}

		// --- Applied plans ---
		planGroup := protected.Group("/plans")
		{
			planGroup.GET("/:planId/items", scheduleHandler.GetWorkItems)
			planGroup.POST("/:planId/repeat", managerOnly, scheduleHandler.RepeatPlan)
			planGroup.PATCH("/:planId/status", managerOnly, scheduleHandler.SetPlanStatus)
			planGroup.DELETE("/:planId", managerOnly, scheduleHandler.RemovePlan)
		}

		// --- Work items ---
		itemGroup := protected.Group("/work-items")
		itemGroup.Use(managerOnly)
		{
			itemGroup.PATCH("/:itemId", scheduleHandler.UpdateWorkItem)
			itemGroup.POST("/:itemId/reset", scheduleHandler.ResetWorkItem)
		}

		// --- Session logs against calendar records ---
		protected.POST("/calendar-records/:recordId/logs", logHandler.LogSession)
	}
}
