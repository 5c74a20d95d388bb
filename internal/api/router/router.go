package router

import (
	"github.com/cuongbtq/jobmatch-applications/internal/api/auth"
	"github.com/cuongbtq/jobmatch-applications/internal/api/handler"
	"github.com/cuongbtq/jobmatch-applications/internal/metrics"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, verifier *auth.Verifier) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	r.Use(MetricsMiddleware())

	r.GET("/health", handler.Health(deps))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	applicationHandler := handler.NewApplicationHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(verifier, deps.Logger))
	{
		applications := v1.Group("/applications")
		{
			// POST /api/v1/applications - Apply to a job
			applications.POST("", RequireRole(auth.RoleJobSeeker), applicationHandler.SubmitApplication)

			// GET /api/v1/applications/mine - The caller's applications
			applications.GET("/mine", RequireRole(auth.RoleJobSeeker), applicationHandler.ListMyApplications)

			// POST /api/v1/applications/:application_id/accept - Accept an application
			applications.POST("/:application_id/accept", RequireRole(auth.RoleEmployer), applicationHandler.AcceptApplication)

			// POST /api/v1/applications/:application_id/reject - Reject an application
			applications.POST("/:application_id/reject", RequireRole(auth.RoleEmployer), applicationHandler.RejectApplication)
		}

		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs/:job_id/applications - Applications to an owned job
			jobs.GET("/:job_id/applications", RequireRole(auth.RoleEmployer), applicationHandler.ListApplicationsForJob)
		}
	}

	return r
}
