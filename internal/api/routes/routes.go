package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Wikid82/aegis/internal/api/handlers"
	"github.com/Wikid82/aegis/internal/api/middleware"
	"github.com/Wikid82/aegis/internal/config"
	"github.com/Wikid82/aegis/internal/metrics"
	"github.com/Wikid82/aegis/internal/models"
	"github.com/Wikid82/aegis/internal/services"
)

// Register wires up API routes and performs automatic migrations.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.PatientRecord{},
		&models.AuditEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	// Services
	authService := services.NewAuthService(db, cfg)
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(cfg.AlertNotifyURL)
	anomalyService := services.NewAnomalyService(auditService, notificationService, cfg.AnomalyTimeout)
	scopeService := services.NewScopeService(auditService, notificationService)
	userService := services.NewUserService(db)
	recordService := services.NewRecordService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, auditService, anomalyService)
	auditHandler := handlers.NewAuditHandler(auditService)
	adminHandler := handlers.NewAdminHandler(userService)
	recordHandler := handlers.NewRecordHandler(recordService, scopeService)

	router.GET("/api/v1/health", handlers.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")

	authMiddleware := middleware.AuthMiddleware(authService)
	auditMiddleware := middleware.Audit(auditService, anomalyService)

	// Public auth surface: audited, but pre-identity.
	auth := api.Group("/auth")
	auth.Use(auditMiddleware)
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/logout", authHandler.Logout)

	// Everything below requires a valid credential. Identity extraction
	// runs first so the recorder and the anomaly rules see the actor.
	authed := api.Group("")
	authed.Use(authMiddleware, auditMiddleware)

	authed.GET("/auth/profile", authHandler.Profile)

	doctor := authed.Group("/doctor")
	doctor.Use(middleware.RequireRole(models.RoleDoctor, models.RoleAdmin))
	doctor.GET("/patients", recordHandler.ListMine)
	doctor.GET("/records/:id", recordHandler.Get)
	doctor.POST("/records", recordHandler.Create)
	doctor.PUT("/records/:id", recordHandler.Update)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.GET("/users", adminHandler.ListUsers)
	admin.PUT("/users/:id/role", adminHandler.UpdateRole)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.GET("/stats", adminHandler.Stats)

	audit := authed.Group("/audit")
	audit.Use(middleware.RequireRole(models.RoleAdmin))
	audit.GET("/alerts", auditHandler.ListAlerts)
	audit.GET("/logs", auditHandler.ListTrail)
	audit.PUT("/alerts/:id/resolve", auditHandler.ResolveAlert)

	return nil
}
