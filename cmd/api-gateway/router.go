package main

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-directory-api/api/swagger"
	"github.com/noah-isme/academic-directory-api/internal/middleware"
	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/internal/service"
	"github.com/noah-isme/academic-directory-api/pkg/config"
	"github.com/noah-isme/academic-directory-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-directory-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-directory-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, app *application, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.metrics, "/health", "/ready", "/metrics"))

	r.GET("/health", app.ops.Health)
	r.GET("/ready", app.ops.Ready)
	r.GET("/metrics", app.ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	requireAuth := middleware.JWT(app.auth)
	staff := []gin.HandlerFunc{requireAuth, middleware.Staff()}
	admin := []gin.HandlerFunc{requireAuth, middleware.RequireRoles(models.RoleAdmin)}
	audit := func(action string) gin.HandlerFunc {
		return middleware.Audit(app.users, logr, action, service.RepresentativeResource)
	}

	auth := api.Group("/auth")
	auth.Use(middleware.RateLimit(app.rateLimits, middleware.RateLimitConfig{Name: "auth", Limit: 30, Window: time.Minute}, app.metrics, logr))
	auth.POST("/register", app.authHandler.Register)
	auth.POST("/login", app.authHandler.Login)
	auth.POST("/refresh", app.authHandler.Refresh)
	auth.POST("/logout", requireAuth, app.authHandler.Logout)
	auth.POST("/change-password", requireAuth, app.authHandler.ChangePassword)
	auth.GET("/me", requireAuth, app.authHandler.Me)

	dir := api.Group("/directory")
	dir.GET("/universities", app.directory.ListUniversities)
	dir.GET("/universities/:id", app.directory.GetUniversity)
	dir.POST("/universities", append(admin, app.directory.CreateUniversity)...)
	dir.PUT("/universities/:id", append(admin, app.directory.UpdateUniversity)...)
	dir.GET("/faculties", app.directory.ListFaculties)
	dir.POST("/faculties", append(admin, app.directory.CreateFaculty)...)
	dir.PUT("/faculties/:id", append(admin, app.directory.UpdateFaculty)...)
	dir.GET("/departments", app.directory.ListDepartments)
	dir.POST("/departments", append(admin, app.directory.CreateDepartment)...)
	dir.PUT("/departments/:id", append(admin, app.directory.UpdateDepartment)...)
	dir.GET("/program-durations", app.directory.ListProgramDurations)
	dir.POST("/program-durations", append(admin, app.directory.CreateProgramDuration)...)

	submissionLimit := middleware.RateLimit(app.rateLimits, middleware.RateLimitConfig{
		Name:   "submissions",
		Limit:  cfg.Directory.SubmissionLimit,
		Window: cfg.Directory.SubmissionWindow,
	}, app.metrics, logr)
	dir.POST("/submissions", submissionLimit, app.representatives.Submit)

	reps := dir.Group("/representatives")
	reps.GET("", middleware.OptionalJWT(app.auth), app.representatives.List)
	reps.GET("/export", append(staff, audit(models.AuditActionExport), app.representatives.Export)...)
	reps.GET("/:id", app.representatives.Get)
	reps.PUT("/:id", append(staff, audit(models.AuditActionUpdate), app.representatives.Update)...)
	reps.POST("/:id/verify", append(staff, audit(models.AuditActionVerify), app.representatives.Verify)...)
	reps.POST("/:id/dispute", append(staff, audit(models.AuditActionDispute), app.representatives.Dispute)...)
	reps.POST("/:id/deactivate", append(staff, audit(models.AuditActionDeactivate), app.representatives.Deactivate)...)
	reps.GET("/:id/history", append(staff, app.representatives.History)...)

	if app.exports != nil {
		dir.POST("/exports", append(staff, audit(models.AuditActionExport), app.exports.Create)...)
		dir.GET("/exports/:id", append(staff, app.exports.Status)...)
		dir.GET("/exports/download/:token", app.exports.Download)
	}

	measurements := api.Group("/measurements", requireAuth)
	measurements.GET("", app.measurements.List)
	measurements.POST("", app.measurements.Create)
	measurements.GET("/trash", app.measurements.Trash)
	measurements.GET("/:id", app.measurements.Get)
	measurements.PUT("/:id", app.measurements.Update)
	measurements.DELETE("/:id", app.measurements.Delete)
	measurements.POST("/:id/restore", app.measurements.Restore)

	accounts := api.Group("/admin/users", admin...)
	accounts.GET("", app.accounts.List)
	accounts.POST("", app.accounts.Create)
	accounts.GET("/:id", app.accounts.Get)
	accounts.PUT("/:id", app.accounts.Update)
	accounts.DELETE("/:id", app.accounts.Deactivate)

	api.GET("/metrics/summary", append(admin, app.ops.Summary)...)
	return r
}
