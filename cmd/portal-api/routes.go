package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-portal-api/internal/handler"
	"github.com/noah-isme/mentor-portal-api/internal/middleware"
	"github.com/noah-isme/mentor-portal-api/internal/models"
	"github.com/noah-isme/mentor-portal-api/internal/service"
	"github.com/noah-isme/mentor-portal-api/pkg/config"
	"github.com/noah-isme/mentor-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mentor-portal-api/pkg/middleware/cors"
	"github.com/noah-isme/mentor-portal-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/mentor-portal-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth       *handler.AuthHandler
	users      *handler.UserHandler
	attendance *handler.AttendanceHandler
	messages   *handler.MessageHandler
	metrics    *handler.MetricsHandler

	metricsSvc  *service.MetricsService
	tokens      middleware.TokenValidator
	audit       middleware.AuditWriter
	authLimiter ratelimit.Limiter
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metricsSvc))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	{
		public := auth.Group("", ratelimit.Middleware(deps.authLimiter, logr))
		public.POST("/register", deps.auth.Register)
		public.POST("/login", deps.auth.Login)
		public.POST("/refresh", deps.auth.Refresh)

		session := auth.Group("", middleware.JWT(deps.tokens))
		session.POST("/logout", deps.auth.Logout)
		session.POST("/change-password", deps.auth.ChangePassword)
		session.GET("/me", deps.auth.Me)
	}

	secured := api.Group("", middleware.JWT(deps.tokens))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	mentorOnly := middleware.RequireRoles(models.RoleMentor)
	studentOnly := middleware.RequireRoles(models.RoleStudent)
	chatRoles := middleware.RequireRoles(models.RoleMentor, models.RoleStudent)

	secured.GET("/profile", deps.users.Profile)
	secured.PUT("/profile", deps.users.UpdateProfile)

	users := secured.Group("/users", adminOnly)
	{
		users.GET("", deps.users.List)
		users.GET("/:id", deps.users.Get)
		users.PUT("/:id", deps.users.Update)
		users.DELETE("/:id", deps.users.Delete)
		users.POST("/:id/approve", deps.users.Approve)
		users.POST("/:id/reset-password", deps.users.ResetPassword)
	}
	secured.GET("/mentors", adminOnly, deps.users.Mentors)

	admin := secured.Group("/admin", adminOnly)
	{
		admin.GET("/stats", deps.users.Stats)
		admin.GET("/metrics", deps.metrics.Snapshot)
	}

	att := secured.Group("/attendance")
	{
		att.GET("/window", deps.attendance.GetWindow)
		att.PUT("/window", adminOnly, deps.attendance.SetWindow)
		att.GET("/me", studentOnly, deps.attendance.Me)

		mentor := att.Group("", mentorOnly)
		mentor.GET("/overview", deps.attendance.Overview)
		mentor.GET("/days/:date", deps.attendance.Day)
		mentor.PUT("/today/:studentId", deps.attendance.Stage)
		mentor.POST("/today/submit", deps.attendance.Submit)
		mentor.GET("/calendar", deps.attendance.Calendar)
		mentor.GET("/report",
			middleware.Audit(deps.audit, logr, models.AuditActionReportExport, "attendance_report"),
			deps.attendance.Report,
		)
	}

	chats := secured.Group("/chats", chatRoles)
	{
		chats.GET("/contacts", deps.messages.Contacts)
		chats.GET("/:peerId/messages", deps.messages.History)
		chats.POST("/:peerId/messages", deps.messages.Send)
		chats.POST("/:peerId/read", deps.messages.MarkRead)
		chats.GET("/:peerId/stream", deps.messages.Stream)
	}

	return r
}
