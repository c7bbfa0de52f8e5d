package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/studynote/studynote-api/api/swagger"
	"github.com/studynote/studynote-api/internal/handler"
	"github.com/studynote/studynote-api/internal/middleware"
	"github.com/studynote/studynote-api/internal/models"
	"github.com/studynote/studynote-api/internal/platform"
	"github.com/studynote/studynote-api/internal/repository"
	"github.com/studynote/studynote-api/internal/service"
	"github.com/studynote/studynote-api/pkg/cache"
	"github.com/studynote/studynote-api/pkg/config"
	"github.com/studynote/studynote-api/pkg/database"
	"github.com/studynote/studynote-api/pkg/logger"
	corsmiddleware "github.com/studynote/studynote-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studynote/studynote-api/pkg/middleware/requestid"
)

// @title StudyNote API
// @version 1.0.0
// @description Teacher/parent communication backend: classes, attendance, grades, AI reports and statistics
// @BasePath /api
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

	if err := database.Migrate(cfg.Database); err != nil {
		logr.Sugar().Fatalw("migrations failed", "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	provider := platform.New(cfg.Platform)
	logr.Sugar().Infow("platform adapter selected", "platform", provider.Name())

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	homeworkRepo := repository.NewHomeworkRepository(db)
	examRepo := repository.NewExamRepository(db)
	reportRepo := repository.NewReportRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	responseCache := service.NewCacheService(cacheRepo, metrics, cfg.Stats.ResponseCacheTL, logr, cfg.Stats.ResponseCache)

	authService := service.NewAuthService(userRepo, provider, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	classService := service.NewClassService(classRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, classRepo, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, classRepo, studentRepo, validate, logr)
	gradeService := service.NewGradeService(gradeRepo, classRepo, studentRepo, validate, logr)
	homeworkService := service.NewHomeworkService(homeworkRepo, classRepo, studentRepo, validate, logr)
	examService := service.NewExamService(examRepo, classRepo, studentRepo, validate, logr)
	reportService := service.NewReportService(reportRepo, studentRepo, classRepo, gradeRepo, validate, logr, service.ReportGeneratorConfig{
		APIBaseURL: cfg.Reports.APIBaseURL,
		APIKey:     cfg.Reports.APIKey,
		Model:      cfg.Reports.Model,
		Timeout:    cfg.Reports.Timeout,
		MaxTokens:  cfg.Reports.MaxTokens,
	})
	notificationService := service.NewNotificationService(reportRepo, studentRepo, classRepo, userRepo, provider, logr, service.NotifyConfig{
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.MaxRetries,
		RetryDelay: cfg.Notify.RetryDelay,
	})
	statsService := service.NewStatsService(service.StatsServiceParams{
		Classes:    classRepo,
		Students:   studentRepo,
		Attendance: attendanceRepo,
		Grades:     gradeRepo,
		Cache:      statsRepo,
		Responses:  responseCache,
		Metrics:    metrics,
		Logger:     logr,
		Config: service.StatsServiceConfig{
			CacheTTL:  cfg.Stats.CacheTTL,
			TrendDays: cfg.Stats.TrendDays,
		},
	})

	queueCtx, queueCancel := context.WithCancel(context.Background())
	defer queueCancel()
	notificationService.Start(queueCtx)
	defer notificationService.Stop()

	authHandler := handler.NewAuthHandler(authService)
	classHandler := handler.NewClassHandler(classService)
	studentHandler := handler.NewStudentHandler(studentService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	gradeHandler := handler.NewGradeHandler(gradeService)
	homeworkHandler := handler.NewHomeworkHandler(homeworkService)
	examHandler := handler.NewExamHandler(examService)
	reportHandler := handler.NewReportHandler(reportService, notificationService)
	statsHandler := handler.NewStatsHandler(statsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	authed.GET("/auth/me", authHandler.Me)

	teacher := authed.Group("")
	teacher.Use(middleware.RequireRoles(models.RoleTeacher))
	{
		teacher.GET("/classes", classHandler.List)
		teacher.POST("/classes", classHandler.Create)
		teacher.GET("/classes/:id", classHandler.Get)
		teacher.PUT("/classes/:id", classHandler.Update)
		teacher.DELETE("/classes/:id", classHandler.Delete)

		teacher.GET("/classes/:id/students", studentHandler.List)
		teacher.POST("/classes/:id/students", studentHandler.Create)
		teacher.POST("/classes/:id/students/batch", studentHandler.CreateBatch)
		teacher.PUT("/students/:id", studentHandler.Rename)
		teacher.DELETE("/students/:id", studentHandler.Delete)

		teacher.GET("/classes/:id/attendance", attendanceHandler.Get)
		teacher.POST("/classes/:id/attendance", attendanceHandler.Save)

		teacher.GET("/classes/:id/grades", gradeHandler.ListByClass)
		teacher.POST("/classes/:id/grades", gradeHandler.Save)
		teacher.DELETE("/grades/:id", gradeHandler.Delete)

		teacher.GET("/classes/:id/homework", homeworkHandler.List)
		teacher.POST("/classes/:id/homework", homeworkHandler.Create)
		teacher.PUT("/homework/:id", homeworkHandler.Update)
		teacher.DELETE("/homework/:id", homeworkHandler.Delete)

		teacher.GET("/classes/:id/exams", examHandler.List)
		teacher.POST("/classes/:id/exams", examHandler.Create)
		teacher.PUT("/exams/:id", examHandler.Update)
		teacher.DELETE("/exams/:id", examHandler.Delete)

		teacher.POST("/reports", reportHandler.Generate)
		teacher.GET("/reports/:id", reportHandler.Get)
		teacher.POST("/reports/:id/send", reportHandler.Send)
		teacher.GET("/students/:id/reports", reportHandler.ListByStudent)

		teacher.GET("/stats/dashboard", statsHandler.Dashboard)
		teacher.GET("/stats/attendance", statsHandler.Attendance)
		teacher.GET("/stats/grades", statsHandler.Grades)
		teacher.GET("/stats/comparison", statsHandler.Comparison)
		teacher.GET("/stats/export", statsHandler.Export)
	}

	parent := authed.Group("")
	parent.Use(middleware.RequireRoles(models.RoleParent))
	{
		parent.POST("/students/connect", studentHandler.Connect)
		parent.GET("/students/mine", studentHandler.ListMine)
		parent.GET("/students/:id/grades", gradeHandler.ListByStudent)
		parent.GET("/students/:id/homework", homeworkHandler.ListForStudent)
		parent.GET("/students/:id/exams", examHandler.ListForStudent)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "platform", provider.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
