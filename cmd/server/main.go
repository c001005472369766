// Package main runs the team scheduling HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teamslot/backend/config"
	"github.com/teamslot/backend/internal/auth"
	"github.com/teamslot/backend/internal/availability"
	"github.com/teamslot/backend/internal/meetings"
	"github.com/teamslot/backend/internal/middleware"
	"github.com/teamslot/backend/internal/models"
	"github.com/teamslot/backend/internal/planner"
	"github.com/teamslot/backend/internal/realtime"
	"github.com/teamslot/backend/internal/teams"
	"github.com/teamslot/backend/internal/worker"
	"github.com/teamslot/backend/pkg/database"
	"github.com/teamslot/backend/pkg/queue"
	"github.com/teamslot/backend/pkg/redis"
	"github.com/teamslot/backend/pkg/response"
	"github.com/teamslot/backend/pkg/storage"
	"github.com/teamslot/backend/pkg/utils"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Avatars are optional; the interfaces stay nil without S3.
	var avatarStore auth.AvatarStore
	var avatarSigner teams.AvatarSigner
	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AvatarsBucket:        cfg.AWS.AvatarsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			avatarStore, avatarSigner = s3Client, s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, cfg.Worker.PollTimeout, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, avatarStore, logger)
	authHandler.SetAuthorizedEmails(cfg.Schedule.AuthorizedEmails)
	authHandler.SetPasswordHasher(utils.NewPasswordHasher(cfg.Password.BcryptCost))

	// Planning sessions (availability grid + meetings)
	teamRepo := teams.NewRepository(pool)
	plannerSvc := planner.NewService(
		availability.NewRepository(pool),
		meetings.NewRepository(pool),
		teamRepo,
		hub,
		jobQueue,
		cfg.Schedule.Location,
		logger,
	)
	plannerHandler := planner.NewHandler(plannerSvc, logger)
	teamHandler := teams.NewHandler(teamRepo, hub, avatarSigner, plannerSvc, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORS))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(hctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Ping(hctx).Err(); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		if s3Client != nil {
			if err := s3Client.Ping(hctx); err != nil {
				response.ServiceUnavailable(c, "storage unavailable")
				return
			}
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/me", authHandler.Me)
		api.POST("/me/avatar", authHandler.UploadAvatar)

		// Team membership changes do not require a current team
		api.POST("/teams", teamHandler.CreateTeam)
		api.POST("/teams/join", teamHandler.JoinTeam)
	}

	member := api.Group("")
	member.Use(middleware.RequireTeam(teamRepo, logger))
	{
		member.GET("/teams/mine", teamHandler.MyTeam)
		member.GET("/teams/members", teamHandler.ListMembers)
		member.DELETE("/teams/members/:id", middleware.RequireTeamRole(models.TeamRoleOwner), teamHandler.RemoveMember)

		// Availability grid
		member.GET("/availability", plannerHandler.Grid)
		member.PUT("/availability/draft", plannerHandler.SetStatus)
		member.POST("/availability/draft/toggle", plannerHandler.ToggleStatus)
		member.POST("/availability/commit", plannerHandler.Commit)
		member.POST("/availability/commit-default", plannerHandler.CommitDefault)
		member.GET("/availability/best-slots", plannerHandler.BestSlots)

		// Meetings
		member.GET("/meetings", plannerHandler.ListMeetings)
		member.GET("/meetings/compose", plannerHandler.Compose)
		member.POST("/meetings", plannerHandler.CreateMeeting)
		member.GET("/meetings/:id/edit", plannerHandler.EditMeeting)
		member.PATCH("/meetings/:id", plannerHandler.UpdateMeeting)
		member.DELETE("/meetings/:id", plannerHandler.CancelMeeting)
	}

	// WebSocket (token in query; same origin policy as the REST API)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService.UserID, teamRepo.TeamForUser, cfg.Server.CORS.AllowsOrigin))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (meeting notifications)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Worker.InProcess {
		processor := worker.NewNotificationProcessor(jobQueue, redisPubSub, cfg.Schedule.Location, logger)
		go processor.Run(workerCtx)
		logger.Info("notification worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
