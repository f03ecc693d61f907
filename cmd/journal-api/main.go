package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mawebyasmu/jurnal-aliyah-sub000/api/swagger"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/handler"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/middleware"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/repository"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/service"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/cache"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/clock"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/config"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/database"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/events"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/geo"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/jobs"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/logger"
	corsmiddleware "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/middleware/requestid"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/storage"
)

// @title Jurnal Aliyah API
// @version 1.0.0
// @description Teacher attendance and teaching journal service
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	bus := events.NewBus(logr)
	metrics := service.NewMetricsService()

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)
	}

	userRepo := repository.NewUserRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	teachingLogRepo := repository.NewTeachingLogRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userService := service.NewUserService(userRepo, validate, bus, cacheService, logr)
	settingsService := service.NewSettingsService(settingsRepo, cacheService, bus, logr, settingsDefaults(cfg))
	attendanceService := service.NewAttendanceService(
		attendanceRepo, settingsService, clock.NewZoneClock(cfg.Attendance.Timezone), bus, cacheService, validate, logr)
	journalService := service.NewJournalService(teachingLogRepo, studentRepo, bus, cacheService, validate, logr)
	statsService := service.NewStatsService(userRepo, attendanceRepo, teachingLogRepo, cacheService, cfg.Stats.CacheTTL, logr)
	classService := service.NewClassService(classRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, classRepo, validate, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, validate, logr)

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportService := service.NewExportService(
		attendanceRepo, teachingLogRepo, statsService, store, signer,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL}, logr)

	worker := service.NewReportWorker(reportRepo, exportService, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	reportService := service.NewReportService(reportRepo, queue, exportService, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: time.Hour,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportService.RecoverPendingJobs(ctx)
	reportService.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	journalHandler := handler.NewJournalHandler(journalService)
	statsHandler := handler.NewStatsHandler(statsService)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	reportHandler := handler.NewReportHandler(reportService)
	classHandler := handler.NewClassHandler(classService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	studentHandler := handler.NewStudentHandler(studentService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
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
	authed.Use(middleware.JWT(authService))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.POST("/auth/change-password", authHandler.ChangePassword)

		authed.POST("/attendance/check-in", attendanceHandler.CheckIn)
		authed.POST("/attendance/check-out", attendanceHandler.CheckOut)
		authed.GET("/attendance/today", attendanceHandler.Today)
		authed.GET("/attendance", attendanceHandler.List)

		authed.POST("/journal", journalHandler.Create)
		authed.GET("/journal", journalHandler.List)
		authed.GET("/journal/:id", journalHandler.Get)

		authed.GET("/stats/daily", statsHandler.Daily)
		authed.GET("/stats/departments", statsHandler.Departments)
		authed.GET("/stats/teacher-performance", statsHandler.TeacherPerformance)

		authed.POST("/reports/export", reportHandler.Export)
		authed.GET("/reports/status/:id", reportHandler.Status)

		authed.GET("/classes", classHandler.List)
		authed.GET("/classes/:id", classHandler.Get)
		authed.GET("/subjects", subjectHandler.List)
		authed.GET("/subjects/:id", subjectHandler.Get)
		authed.GET("/students", studentHandler.List)
		authed.GET("/students/:id", studentHandler.Get)
		authed.GET("/schedules", scheduleHandler.List)
		authed.GET("/schedules/:id", scheduleHandler.Get)
	}

	// Signed token carries its own authorization.
	api.GET("/reports/download/:token", reportHandler.Download)

	admin := api.Group("")
	admin.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.PATCH("/attendance/:id",
			middleware.Audit(userRepo, models.AuditActionAdminEdit, "attendance"),
			attendanceHandler.AdminUpdate)

		admin.GET("/settings/attendance", settingsHandler.GetAttendance)
		admin.PUT("/settings/attendance",
			middleware.Audit(userRepo, models.AuditActionSettingsUpdate, "settings"),
			settingsHandler.UpdateAttendance)

		admin.GET("/users", userHandler.List)
		admin.GET("/users/:id", userHandler.Get)
		admin.POST("/users", userHandler.Create)
		admin.PUT("/users/:id", userHandler.Update)
		admin.DELETE("/users/:id", userHandler.Delete)

		admin.POST("/classes", classHandler.Create)
		admin.PUT("/classes/:id", classHandler.Update)
		admin.DELETE("/classes/:id", classHandler.Delete)

		admin.POST("/subjects", subjectHandler.Create)
		admin.PUT("/subjects/:id", subjectHandler.Update)
		admin.DELETE("/subjects/:id", subjectHandler.Delete)

		admin.POST("/students", studentHandler.Create)
		admin.PUT("/students/:id", studentHandler.Update)
		admin.DELETE("/students/:id", studentHandler.Delete)

		admin.POST("/schedules", scheduleHandler.Create)
		admin.PUT("/schedules/:id", scheduleHandler.Update)
		admin.DELETE("/schedules/:id", scheduleHandler.Delete)

		admin.GET("/system/metrics", metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

// settingsDefaults builds bootstrap attendance rules from the environment.
// They apply until an admin writes settings through the API.
func settingsDefaults(cfg *config.Config) models.AttendanceSettings {
	start, err := clock.ParseTimeOfDay(cfg.Attendance.StartOfDay)
	if err != nil {
		start, _ = clock.ParseTimeOfDay("06:30")
	}
	late, err := clock.ParseTimeOfDay(cfg.Attendance.LateThreshold)
	if err != nil {
		late, _ = clock.ParseTimeOfDay("07:15")
	}
	end, err := clock.ParseTimeOfDay(cfg.Attendance.EndOfDay)
	if err != nil {
		end, _ = clock.ParseTimeOfDay("16:00")
	}
	return models.AttendanceSettings{
		Zone: models.SchoolZone{
			Center: geo.Point{
				Latitude:  cfg.Attendance.SchoolLatitude,
				Longitude: cfg.Attendance.SchoolLongitude,
			},
			RadiusMeters: cfg.Attendance.RadiusMeters,
		},
		Window: models.TimeWindow{
			StartOfDay:    start,
			LateThreshold: late,
			EndOfDay:      end,
		},
		PreventMultipleCheckin: cfg.Attendance.PreventMultipleCheckin,
		Timezone:               cfg.Attendance.Timezone,
	}
}
