package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/alphaani/marks-management-api/api/swagger"
	"github.com/alphaani/marks-management-api/internal/handler"
	"github.com/alphaani/marks-management-api/internal/middleware"
	"github.com/alphaani/marks-management-api/internal/models"
	"github.com/alphaani/marks-management-api/internal/repository"
	"github.com/alphaani/marks-management-api/internal/service"
	"github.com/alphaani/marks-management-api/pkg/cache"
	"github.com/alphaani/marks-management-api/pkg/config"
	"github.com/alphaani/marks-management-api/pkg/database"
	"github.com/alphaani/marks-management-api/pkg/logger"
	corsmiddleware "github.com/alphaani/marks-management-api/pkg/middleware/cors"
	reqidmiddleware "github.com/alphaani/marks-management-api/pkg/middleware/requestid"
)

// @title Marks Management API
// @version 1.0.0
// @description School mark management with a student-driven correction workflow
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, statistics caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	markRepo := repository.NewMarkRepository(db)
	correctionRepo := repository.NewCorrectionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	catalogSvc := service.NewCatalogService(catalogRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	employeeSvc := service.NewEmployeeService(employeeRepo, validate, logr)
	markSvc := service.NewMarkService(markRepo, studentRepo, employeeRepo, userRepo, validate, logr)
	correctionSvc := service.NewCorrectionService(
		correctionRepo, markRepo, studentRepo, employeeRepo, userRepo, validate, logr,
		service.WithStatsCache(cacheRepo, cfg.Corrections.StatsCacheTTL),
		service.WithAdminOverride(cfg.Corrections.AdminOverride),
	)
	exportSvc := service.NewExportService(markRepo, correctionRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	employeeHandler := handler.NewEmployeeHandler(employeeSvc)
	markHandler := handler.NewMarkHandler(markSvc)
	correctionHandler := handler.NewCorrectionHandler(correctionSvc, metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)
	authed.POST("/auth/change-password", authHandler.ChangePassword)

	authed.GET("/classes", catalogHandler.ListClasses)
	authed.GET("/subjects", catalogHandler.ListSubjects)
	authed.GET("/exams", catalogHandler.ListExams)

	adminOnly := authed.Group("")
	adminOnly.Use(middleware.RequireRoles(models.RoleAdmin))
	adminOnly.POST("/classes", catalogHandler.CreateClass)
	adminOnly.PUT("/classes/:id", catalogHandler.UpdateClass)
	adminOnly.DELETE("/classes/:id", catalogHandler.DeleteClass)
	adminOnly.POST("/subjects", catalogHandler.CreateSubject)
	adminOnly.PUT("/subjects/:id", catalogHandler.UpdateSubject)
	adminOnly.DELETE("/subjects/:id", catalogHandler.DeleteSubject)
	adminOnly.POST("/exams", catalogHandler.CreateExam)
	adminOnly.PUT("/exams/:id", catalogHandler.UpdateExam)
	adminOnly.DELETE("/exams/:id", catalogHandler.DeleteExam)

	adminOnly.POST("/students", studentHandler.Create)
	adminOnly.PUT("/students/:id", studentHandler.Update)
	adminOnly.DELETE("/students/:id", studentHandler.Delete)
	adminOnly.POST("/employees", employeeHandler.Create)
	adminOnly.PUT("/employees/:id", employeeHandler.Update)
	adminOnly.DELETE("/employees/:id", employeeHandler.Delete)

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	staff.GET("/students", studentHandler.List)
	staff.GET("/students/:id", studentHandler.Get)
	staff.GET("/employees", employeeHandler.List)
	staff.GET("/employees/:id", employeeHandler.Get)
	staff.PUT("/marks", markHandler.Upsert)

	authed.GET("/marks", markHandler.List)
	authed.GET("/marks/:id", markHandler.Get)

	corrections := authed.Group("/corrections")
	corrections.POST("", middleware.RequireRoles(models.RoleStudent), correctionHandler.Submit)
	corrections.GET("/history", correctionHandler.History)
	corrections.GET("/statistics", correctionHandler.Statistics)
	corrections.GET("/pending/teacher", middleware.RequireRoles(models.RoleTeacher), correctionHandler.PendingForTeacher)
	corrections.GET("/pending/admin", middleware.RequireRoles(models.RoleAdmin), correctionHandler.PendingForAdmin)
	corrections.GET("/:id", correctionHandler.Get)
	corrections.POST("/:id/teacher-approve", middleware.RequireRoles(models.RoleTeacher), correctionHandler.TeacherApprove)
	corrections.POST("/:id/teacher-reject", middleware.RequireRoles(models.RoleTeacher), correctionHandler.TeacherReject)
	corrections.POST("/:id/admin-approve", middleware.RequireRoles(models.RoleAdmin), correctionHandler.AdminApprove)
	corrections.POST("/:id/admin-override-approve", middleware.RequireRoles(models.RoleAdmin), correctionHandler.AdminOverrideApprove)
	corrections.POST("/:id/admin-reject", middleware.RequireRoles(models.RoleAdmin), correctionHandler.AdminReject)

	if cfg.Exports.Enabled {
		exports := authed.Group("/exports")
		exports.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
		exports.GET("/marks", exportHandler.MarkSheet)
		exports.GET("/corrections", exportHandler.CorrectionHistory)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
