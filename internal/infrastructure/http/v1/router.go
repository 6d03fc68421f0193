// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"campus/internal/domain/course"
	"campus/internal/domain/user"
	"campus/internal/infrastructure/http/v1/handlers"
	"campus/internal/infrastructure/http/v1/middleware"
	"campus/internal/infrastructure/storage/postgres"
	"campus/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool          *postgres.Pool
	Logger        *logger.Logger
	UserService   *user.Service
	CourseService *course.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()
	userHandler := handlers.NewUserHandler(base, cfg.UserService)
	courseHandler := handlers.NewCourseHandler(base, cfg.CourseService)

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("", userHandler.Create)
			users.GET("", userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)

			users.GET("/:id/courses", courseHandler.ListUserCourses)
		}

		courses := api.Group("/courses")
		{
			courses.POST("", courseHandler.Create)
			courses.GET("", courseHandler.List)
			courses.GET("/:id", courseHandler.Get)
			courses.PUT("/:id", courseHandler.Update)
			courses.DELETE("/:id", courseHandler.Delete)

			courses.POST("/:id/enrollments", courseHandler.Enroll)
			courses.GET("/:id/enrollments", courseHandler.ListEnrollments)
			courses.DELETE("/:id/enrollments/:user_id", courseHandler.Unenroll)
		}
	}

	return router
}
